package api

import (
	"net/url"
	"strings"
	"testing"

	"github.com/0x3a/crits/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateForm_UploadIndicator(t *testing.T) {
	api, svc, _ := setupTestAPI(t, newTestConfig())

	tests := []struct {
		name   string
		values url.Values
		errors []string
	}{
		{
			name: "valid",
			values: url.Values{
				"value": {"evil.example.com"}, "indicator_type": {"Domain"}, "source": {"OSINT"},
				"campaign_confidence": {"medium"}, "impact": {"low"},
			},
		},
		{
			name:   "missing required",
			values: url.Values{},
			errors: []string{"value", "indicator_type", "source"},
		},
		{
			name: "bad ratings",
			values: url.Values{
				"value": {"x"}, "indicator_type": {"String"}, "source": {"OSINT"},
				"confidence": {"extreme"}, "campaign_confidence": {"unknown"},
			},
			errors: []string{"confidence", "campaign_confidence"},
		},
		{
			name: "source too long",
			values: url.Values{
				"value": {"x"}, "indicator_type": {"String"}, "source": {strings.Repeat("s", 201)},
			},
			errors: []string{"source"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &uploadIndicatorForm{typeChoices: svc.IndicatorTypeChoices()}
			errs := api.validateForm(f, tt.values)
			assert.Len(t, errs, len(tt.errors), "%v", errs)
			for _, field := range tt.errors {
				assert.Contains(t, errs, field)
			}
		})
	}
}

func TestUploadIndicatorForm_ValidType(t *testing.T) {
	choices := []core.TypeChoice{{Value: "Domain", Label: "Domain"}}
	f := &uploadIndicatorForm{IndicatorType: "Domain", typeChoices: choices}
	assert.True(t, f.validType())
	f.IndicatorType = "Bogus"
	assert.False(t, f.validType())
}

func TestValidateForm_Dates(t *testing.T) {
	api, _, _ := setupTestAPI(t, newTestConfig())

	f := &actionForm{}
	errs := api.validateForm(f, url.Values{
		"action_type": {"Blocked"},
		"active":      {"on"},
		"begin_date":  {"2024-01-02T03:04:05Z"},
		"end_date":    {"soon"},
		"date":        {"2024-01-02"},
	})
	assert.Equal(t, []string{msgInvalidDate}, errs["end_date"])
	assert.Equal(t, []string{msgInvalidDate}, errs["date"])
	assert.NotContains(t, errs, "begin_date")

	a := &activityForm{}
	errs = api.validateForm(a, url.Values{
		"description": {"  beaconing  "},
		"date":        {"2024-01-02 03:04:05.123456"},
	})
	assert.Empty(t, errs)
	assert.Equal(t, "beaconing", a.toActivity().Description)
}

func TestActionForm_ToAction(t *testing.T) {
	f := &actionForm{ActionType: "Blocked", Active: "off", BeginDate: "2024-01-02", Reason: "r"}
	action := f.toAction()
	assert.Equal(t, "Blocked", action.ActionType)
	assert.Equal(t, core.ActiveOff, action.Active)
	assert.Equal(t, "2024-01-02 00:00:00.000000", core.FormatDate(action.BeginDate))
	assert.True(t, action.EndDate.IsZero())
}

func TestRenderFormTable(t *testing.T) {
	api, _, _ := setupTestAPI(t, newTestConfig())

	f := &actionForm{ActionType: "Blocked", actionTypes: []string{"Blocked", "Sinkholed"}}
	errs := formErrors{}
	errs.add("active", msgRequired)
	errs.add("__all__", "Something went wrong.")

	html := string(api.renderFormTable(f, errs))
	require.NotEmpty(t, html)
	assert.Contains(t, html, `name="action_type"`)
	assert.Contains(t, html, "Sinkholed")
	assert.Contains(t, html, msgRequired)
	assert.Contains(t, html, "Something went wrong.")

	assert.Empty(t, api.renderFormTable(nil, nil))
}
