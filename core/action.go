package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Active flags an action as still in force. The values match the toggle the
// action form submits.
type ActiveState string

const (
	ActiveOn  ActiveState = "on"
	ActiveOff ActiveState = "off"
)

// IsValid checks if the active state is valid
func (a ActiveState) IsValid() bool {
	return a == ActiveOn || a == ActiveOff
}

// Action is a response or mitigation step recorded against an indicator.
// Date is the entry's identity within its indicator.
type Action struct {
	ActionType    string      `json:"action_type" bson:"action_type"`
	BeginDate     time.Time   `json:"begin_date" bson:"begin_date"`
	EndDate       time.Time   `json:"end_date" bson:"end_date"`
	PerformedDate time.Time   `json:"performed_date" bson:"performed_date"`
	Active        ActiveState `json:"active" bson:"active"`
	Reason        string      `json:"reason" bson:"reason"`
	Analyst       string      `json:"analyst" bson:"analyst"`
	Date          time.Time   `json:"date" bson:"date"`
}

type actionJSON struct {
	ActionType    string      `json:"action_type"`
	BeginDate     string      `json:"begin_date"`
	EndDate       string      `json:"end_date"`
	PerformedDate string      `json:"performed_date"`
	Active        ActiveState `json:"active"`
	Reason        string      `json:"reason"`
	Analyst       string      `json:"analyst"`
	Date          string      `json:"date"`
}

// MarshalJSON renders dates in DateTimeFormat with unset dates as ""
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{
		ActionType:    a.ActionType,
		BeginDate:     FormatDate(a.BeginDate),
		EndDate:       FormatDate(a.EndDate),
		PerformedDate: FormatDate(a.PerformedDate),
		Active:        a.Active,
		Reason:        a.Reason,
		Analyst:       a.Analyst,
		Date:          FormatDate(a.Date),
	})
}

// UnmarshalJSON reverses MarshalJSON
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dates, err := parseDates(raw.BeginDate, raw.EndDate, raw.PerformedDate, raw.Date)
	if err != nil {
		return fmt.Errorf("action: %w", err)
	}
	*a = Action{
		ActionType:    raw.ActionType,
		BeginDate:     dates[0],
		EndDate:       dates[1],
		PerformedDate: dates[2],
		Active:        raw.Active,
		Reason:        raw.Reason,
		Analyst:       raw.Analyst,
		Date:          dates[3],
	}
	return nil
}

// Activity is a free-text log entry about an indicator. Date is the entry's
// identity within its indicator.
type Activity struct {
	StartDate   time.Time `json:"start_date" bson:"start_date"`
	EndDate     time.Time `json:"end_date" bson:"end_date"`
	Description string    `json:"description" bson:"description"`
	Analyst     string    `json:"analyst" bson:"analyst"`
	Date        time.Time `json:"date" bson:"date"`
}

type activityJSON struct {
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Description string `json:"description"`
	Analyst     string `json:"analyst"`
	Date        string `json:"date"`
}

// MarshalJSON renders dates in DateTimeFormat with unset dates as ""
func (a Activity) MarshalJSON() ([]byte, error) {
	return json.Marshal(activityJSON{
		StartDate:   FormatDate(a.StartDate),
		EndDate:     FormatDate(a.EndDate),
		Description: a.Description,
		Analyst:     a.Analyst,
		Date:        FormatDate(a.Date),
	})
}

// UnmarshalJSON reverses MarshalJSON
func (a *Activity) UnmarshalJSON(data []byte) error {
	var raw activityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dates, err := parseDates(raw.StartDate, raw.EndDate, raw.Date)
	if err != nil {
		return fmt.Errorf("activity: %w", err)
	}
	*a = Activity{
		StartDate:   dates[0],
		EndDate:     dates[1],
		Description: raw.Description,
		Analyst:     raw.Analyst,
		Date:        dates[2],
	}
	return nil
}

func parseDates(values ...string) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := ParseOptionalDate(v)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// ActionType is a selectable option for the action form
type ActionType struct {
	Name    string    `json:"name" bson:"name"`
	Active  bool      `json:"active" bson:"active"`
	Analyst string    `json:"analyst" bson:"analyst"`
	Created time.Time `json:"created" bson:"created"`
}
