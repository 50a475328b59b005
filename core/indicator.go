package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceInstance records one sighting of an indicator from a source
type SourceInstance struct {
	Method    string    `json:"method" bson:"method"`
	Reference string    `json:"reference" bson:"reference"`
	Date      time.Time `json:"date" bson:"date"`
	Analyst   string    `json:"analyst" bson:"analyst"`
}

// Source groups the instances reported by one named source
type Source struct {
	Name      string           `json:"name" bson:"name"`
	Instances []SourceInstance `json:"instances" bson:"instances"`
}

// CampaignRef attributes an indicator to a campaign
type CampaignRef struct {
	Name       string             `json:"name" bson:"name"`
	Confidence CampaignConfidence `json:"confidence" bson:"confidence"`
	Analyst    string             `json:"analyst" bson:"analyst"`
	Date       time.Time          `json:"date" bson:"date"`
}

// Ticket links an indicator to an external ticketing system entry
type Ticket struct {
	TicketNumber string    `json:"ticket_number" bson:"ticket_number"`
	Analyst      string    `json:"analyst" bson:"analyst"`
	Date         time.Time `json:"date" bson:"date"`
}

// Indicator is a recorded observable with its ratings and sub-records
type Indicator struct {
	ID         string        `json:"id" bson:"_id"`
	Type       IndicatorType `json:"type" bson:"type"`
	Value      string        `json:"value" bson:"value"`
	LowerValue string        `json:"lower_value" bson:"lower_value"`
	Confidence Rating        `json:"confidence" bson:"confidence"`
	Impact     Rating        `json:"impact" bson:"impact"`
	Sources    []Source      `json:"sources" bson:"sources"`
	Actions    []Action      `json:"actions" bson:"actions"`
	Activity   []Activity    `json:"activity" bson:"activity"`
	Campaigns  []CampaignRef `json:"campaigns" bson:"campaigns"`
	BucketList []string      `json:"bucket_list" bson:"bucket_list"`
	Tickets    []Ticket      `json:"tickets" bson:"tickets"`
	Created    time.Time     `json:"created" bson:"created"`
	Modified   time.Time     `json:"modified" bson:"modified"`
	Version    int64         `json:"version" bson:"version"`
}

// LowerValue is the duplicate-detection key for a value
func LowerValue(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NewIndicator creates an indicator with unknown ratings. The value is
// normalized for its type; callers validate it first.
func NewIndicator(t IndicatorType, value, analyst string) *Indicator {
	now := Now()
	value = NormalizeIndicatorValue(t, value)
	return &Indicator{
		ID:         uuid.New().String(),
		Type:       t,
		Value:      value,
		LowerValue: LowerValue(value),
		Confidence: Rating{Rating: RatingUnknown, Analyst: analyst, Date: now},
		Impact:     Rating{Rating: RatingUnknown, Analyst: analyst, Date: now},
		Sources:    []Source{},
		Actions:    []Action{},
		Activity:   []Activity{},
		Campaigns:  []CampaignRef{},
		BucketList: []string{},
		Tickets:    []Ticket{},
		Created:    now,
		Modified:   now,
	}
}

// Clone returns a deep copy so cached records are never mutated in place
func (i *Indicator) Clone() *Indicator {
	if i == nil {
		return nil
	}
	c := *i
	c.Sources = make([]Source, len(i.Sources))
	for n, s := range i.Sources {
		c.Sources[n] = Source{Name: s.Name, Instances: append([]SourceInstance{}, s.Instances...)}
	}
	c.Actions = append([]Action{}, i.Actions...)
	c.Activity = append([]Activity{}, i.Activity...)
	c.Campaigns = append([]CampaignRef{}, i.Campaigns...)
	c.BucketList = append([]string{}, i.BucketList...)
	c.Tickets = append([]Ticket{}, i.Tickets...)
	return &c
}

// SetType changes the indicator type and re-keys the value for it
func (i *Indicator) SetType(t IndicatorType) {
	i.Type = t
	i.Value = NormalizeIndicatorValue(t, i.Value)
	i.LowerValue = LowerValue(i.Value)
}

// AddSource appends a source instance, merging into an existing source of
// the same name
func (i *Indicator) AddSource(name string, inst SourceInstance) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	for n := range i.Sources {
		if i.Sources[n].Name == name {
			i.Sources[n].Instances = append(i.Sources[n].Instances, inst)
			return
		}
	}
	i.Sources = append(i.Sources, Source{Name: name, Instances: []SourceInstance{inst}})
}

// SourceNames lists the indicator's source names in insertion order
func (i *Indicator) SourceNames() []string {
	names := make([]string, 0, len(i.Sources))
	for _, s := range i.Sources {
		names = append(names, s.Name)
	}
	return names
}

// AddCampaign attributes the indicator to a campaign. An existing
// attribution is updated in place.
func (i *Indicator) AddCampaign(ref CampaignRef) {
	ref.Name = strings.TrimSpace(ref.Name)
	if ref.Name == "" {
		return
	}
	for n := range i.Campaigns {
		if i.Campaigns[n].Name == ref.Name {
			i.Campaigns[n] = ref
			return
		}
	}
	i.Campaigns = append(i.Campaigns, ref)
}

// CampaignNames lists the campaign names the indicator is attributed to
func (i *Indicator) CampaignNames() []string {
	names := make([]string, 0, len(i.Campaigns))
	for _, c := range i.Campaigns {
		names = append(names, c.Name)
	}
	return names
}

// AddBuckets merges a comma separated bucket list, skipping duplicates
func (i *Indicator) AddBuckets(list string) {
	for _, b := range strings.Split(list, ",") {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		exists := false
		for _, have := range i.BucketList {
			if have == b {
				exists = true
				break
			}
		}
		if !exists {
			i.BucketList = append(i.BucketList, b)
		}
	}
}

// AddTicket records a ticket number once
func (i *Indicator) AddTicket(number, analyst string) {
	number = strings.TrimSpace(number)
	if number == "" {
		return
	}
	for _, t := range i.Tickets {
		if t.TicketNumber == number {
			return
		}
	}
	i.Tickets = append(i.Tickets, Ticket{TicketNumber: number, Analyst: analyst, Date: Now()})
}

// SetRating updates the confidence or impact rating
func (i *Indicator) SetRating(kind RatingKind, value RatingValue, analyst string) error {
	if !value.IsValid() {
		return fmt.Errorf("invalid rating: %s", value)
	}
	switch kind {
	case RatingKindConfidence:
		i.Confidence = NewRating(value, analyst)
	case RatingKindImpact:
		i.Impact = NewRating(value, analyst)
	default:
		return fmt.Errorf("invalid rating kind: %s", kind)
	}
	return nil
}

// =============================================================================
// Date-keyed sub-records
// =============================================================================

// FindAction returns the index of the action with the given date key, or -1
func (i *Indicator) FindAction(date time.Time) int {
	date = TruncateMillis(date)
	for n, a := range i.Actions {
		if TruncateMillis(a.Date).Equal(date) {
			return n
		}
	}
	return -1
}

// ReplaceAction overwrites the action stored under a.Date
func (i *Indicator) ReplaceAction(a Action) bool {
	n := i.FindAction(a.Date)
	if n < 0 {
		return false
	}
	i.Actions[n] = a
	return true
}

// RemoveAction drops the action stored under date
func (i *Indicator) RemoveAction(date time.Time) bool {
	n := i.FindAction(date)
	if n < 0 {
		return false
	}
	i.Actions = append(i.Actions[:n], i.Actions[n+1:]...)
	return true
}

// FindActivity returns the index of the activity entry with the given date
// key, or -1
func (i *Indicator) FindActivity(date time.Time) int {
	date = TruncateMillis(date)
	for n, a := range i.Activity {
		if TruncateMillis(a.Date).Equal(date) {
			return n
		}
	}
	return -1
}

// ReplaceActivity overwrites the activity entry stored under a.Date
func (i *Indicator) ReplaceActivity(a Activity) bool {
	n := i.FindActivity(a.Date)
	if n < 0 {
		return false
	}
	i.Activity[n] = a
	return true
}

// RemoveActivity drops the activity entry stored under date
func (i *Indicator) RemoveActivity(date time.Time) bool {
	n := i.FindActivity(date)
	if n < 0 {
		return false
	}
	i.Activity = append(i.Activity[:n], i.Activity[n+1:]...)
	return true
}
