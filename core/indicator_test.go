package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndicator(t *testing.T) {
	ind := NewIndicator(IndicatorTypeDomain, " Evil.Example.com ", "alice")

	assert.NotEmpty(t, ind.ID)
	assert.Equal(t, "evil.example.com", ind.Value)
	assert.Equal(t, "evil.example.com", ind.LowerValue)
	assert.Equal(t, RatingUnknown, ind.Confidence.Rating)
	assert.Equal(t, RatingUnknown, ind.Impact.Rating)
	assert.Equal(t, "alice", ind.Confidence.Analyst)
	assert.NotNil(t, ind.Actions)
	assert.NotNil(t, ind.Activity)
	assert.Equal(t, ind.Created, ind.Modified)
}

func TestIndicator_MergeHelpers(t *testing.T) {
	ind := NewIndicator(IndicatorTypeString, "value", "alice")

	ind.AddSource("OSINT", SourceInstance{Method: "upload", Analyst: "alice", Date: Now()})
	ind.AddSource("OSINT", SourceInstance{Method: "csv", Analyst: "bob", Date: Now()})
	ind.AddSource("  ", SourceInstance{})
	require.Len(t, ind.Sources, 1)
	assert.Len(t, ind.Sources[0].Instances, 2)
	assert.Equal(t, []string{"OSINT"}, ind.SourceNames())

	ind.AddCampaign(CampaignRef{Name: "APT1", Confidence: CampaignConfidenceLow})
	ind.AddCampaign(CampaignRef{Name: "APT1", Confidence: CampaignConfidenceHigh})
	require.Len(t, ind.Campaigns, 1)
	assert.Equal(t, CampaignConfidenceHigh, ind.Campaigns[0].Confidence)

	ind.AddBuckets("phish, malware,,phish")
	ind.AddBuckets("malware")
	assert.Equal(t, []string{"phish", "malware"}, ind.BucketList)

	ind.AddTicket("T-1", "alice")
	ind.AddTicket("T-1", "bob")
	ind.AddTicket("", "bob")
	assert.Len(t, ind.Tickets, 1)
}

func TestIndicator_SetRating(t *testing.T) {
	ind := NewIndicator(IndicatorTypeString, "value", "alice")

	require.NoError(t, ind.SetRating(RatingKindConfidence, RatingHigh, "bob"))
	assert.Equal(t, RatingHigh, ind.Confidence.Rating)
	assert.Equal(t, "bob", ind.Confidence.Analyst)

	require.NoError(t, ind.SetRating(RatingKindImpact, RatingLow, "bob"))
	assert.Equal(t, RatingLow, ind.Impact.Rating)

	assert.Error(t, ind.SetRating(RatingKindImpact, "severe", "bob"))
	assert.Error(t, ind.SetRating("priority", RatingLow, "bob"))
}

func TestIndicator_SetTypeRekeysValue(t *testing.T) {
	ind := NewIndicator(IndicatorTypeString, "CVE-2020-0001", "alice")
	ind.SetType(IndicatorTypeCVE)
	assert.Equal(t, IndicatorTypeCVE, ind.Type)
	assert.Equal(t, "cve-2020-0001", ind.LowerValue)
}

func TestIndicator_DateKeyedActions(t *testing.T) {
	ind := NewIndicator(IndicatorTypeString, "value", "alice")
	key := time.Date(2024, 3, 1, 12, 0, 0, 123000000, time.UTC)
	ind.Actions = append(ind.Actions, Action{ActionType: "Blocked", Date: key})

	// Microsecond noise in the submitted key is truncated away
	noisy := key.Add(456 * time.Microsecond)
	assert.Equal(t, 0, ind.FindAction(noisy))
	assert.Equal(t, -1, ind.FindAction(key.Add(time.Millisecond)))

	ok := ind.ReplaceAction(Action{ActionType: "Sinkholed", Date: noisy})
	require.True(t, ok)
	assert.Equal(t, "Sinkholed", ind.Actions[0].ActionType)

	assert.False(t, ind.RemoveAction(key.Add(time.Second)))
	assert.True(t, ind.RemoveAction(key))
	assert.Empty(t, ind.Actions)
}

func TestIndicator_DateKeyedActivity(t *testing.T) {
	ind := NewIndicator(IndicatorTypeString, "value", "alice")
	first := Now()
	second := first.Add(time.Second)
	ind.Activity = append(ind.Activity,
		Activity{Description: "one", Date: first},
		Activity{Description: "two", Date: second},
	)

	assert.Equal(t, 1, ind.FindActivity(second))
	require.True(t, ind.ReplaceActivity(Activity{Description: "changed", Date: first}))
	assert.Equal(t, "changed", ind.Activity[0].Description)
	require.True(t, ind.RemoveActivity(first))
	require.Len(t, ind.Activity, 1)
	assert.Equal(t, "two", ind.Activity[0].Description)
	assert.False(t, ind.ReplaceActivity(Activity{Date: first}))
}

func TestIndicator_CloneIsIndependent(t *testing.T) {
	ind := NewIndicator(IndicatorTypeString, "value", "alice")
	ind.AddSource("OSINT", SourceInstance{Method: "upload"})
	ind.Actions = append(ind.Actions, Action{ActionType: "Blocked"})

	c := ind.Clone()
	c.Actions[0].ActionType = "changed"
	c.Sources[0].Instances = append(c.Sources[0].Instances, SourceInstance{Method: "csv"})
	c.BucketList = append(c.BucketList, "x")

	assert.Equal(t, "Blocked", ind.Actions[0].ActionType)
	assert.Len(t, ind.Sources[0].Instances, 1)
	assert.Empty(t, ind.BucketList)
}

func TestAction_JSONDates(t *testing.T) {
	date := time.Date(2024, 3, 1, 12, 30, 45, 123000000, time.UTC)
	a := Action{ActionType: "Blocked", Active: ActiveOn, Analyst: "alice", Date: date}

	data, err := json.Marshal(a)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "2024-03-01 12:30:45.123000", raw["date"])
	assert.Equal(t, "", raw["begin_date"])

	var back Action
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Date.Equal(date))
	assert.True(t, back.BeginDate.IsZero())
	assert.Equal(t, ActiveOn, back.Active)
}

func TestActivity_JSONDates(t *testing.T) {
	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := Activity{StartDate: start, Description: "seen", Date: start}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start_date":"2024-01-02 03:04:05.000000"`)

	var back Activity
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.StartDate.Equal(start))
	assert.True(t, back.EndDate.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"date":"yesterday"}`), &back))
}

func TestRelationship_Reverse(t *testing.T) {
	r := Relationship{
		LeftType: TLOIndicator, LeftID: "i1",
		RightType: TLOIP, RightID: "o1", RightValue: "10.0.0.1",
		RelType: RelatedTo, Analyst: "alice",
	}
	rev := r.Reverse("evil.example.com")
	assert.Equal(t, TLOIP, rev.LeftType)
	assert.Equal(t, "o1", rev.LeftID)
	assert.Equal(t, TLOIndicator, rev.RightType)
	assert.Equal(t, "i1", rev.RightID)
	assert.Equal(t, "evil.example.com", rev.RightValue)
	assert.Equal(t, RelatedTo, rev.RelType)
}

func TestAnalyst_IsAdmin(t *testing.T) {
	assert.True(t, Analyst{Username: "a", Roles: []string{"viewer", RoleAdmin}}.IsAdmin())
	assert.False(t, Analyst{Username: "b", Roles: []string{"viewer"}}.IsAdmin())
	assert.False(t, Analyst{}.IsAdmin())
}
