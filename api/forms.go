package api

import (
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"reflect"
	"strings"

	"github.com/0x3a/crits/core"

	"github.com/go-playground/validator/v10"
)

// Form error messages
const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice."
	msgInvalidDate   = "Enter a valid date/time."
)

// Widget kinds for form_table rendering
const (
	widgetText     = "text"
	widgetTextarea = "textarea"
	widgetSelect   = "select"
	widgetCheckbox = "checkbox"
	widgetHidden   = "hidden"
	widgetFile     = "file"
)

// formChoice is one option of a select widget
type formChoice struct {
	Value    string
	Label    string
	Selected bool
}

// formField is one row of a rendered form
type formField struct {
	Name     string
	Label    string
	Value    string
	Widget   string
	Required bool
	Checked  bool
	Choices  []formChoice
	Errors   []string
}

// formErrors maps a field name to its messages; "__all__" holds form-level
// errors
type formErrors map[string][]string

func (e formErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

// form is a bound, validatable request form
type form interface {
	bind(values url.Values)
	fields() []formField
}

// newFormValidator builds the validator used for every form. Field errors
// are reported under the form parameter name.
func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("optdate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseOptionalDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("entrydate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseEntryDate(fl.Field().String())
		return err == nil
	})
	return v
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "oneof":
		return msgInvalidChoice
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "ip":
		return "Enter a valid IPv4 or IPv6 address."
	case "optdate", "entrydate":
		return msgInvalidDate
	}
	return "Enter a valid value."
}

// validateForm binds values into f and returns its field errors
func (a *API) validateForm(f form, values url.Values) formErrors {
	f.bind(values)
	errs := formErrors{}
	err := a.validate.Struct(f)
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			errs.add(fe.Field(), fieldErrorMessage(fe))
		}
	case err != nil:
		errs.add("__all__", "Invalid form submission.")
	}
	return errs
}

// renderFormTable renders the form as table rows with its errors inline
func (a *API) renderFormTable(f form, errs formErrors) template.HTML {
	if f == nil {
		return ""
	}
	fields := f.fields()
	for i := range fields {
		fields[i].Errors = errs[fields[i].Name]
	}
	html, err := a.renderFragment("form_table", struct {
		Fields   []formField
		NonField []string
	}{fields, errs["__all__"]})
	if err != nil {
		a.logger.Errorw("Failed to render form", "error", err)
		return ""
	}
	return html
}

func selectChoices(values []string, selected string) []formChoice {
	choices := make([]formChoice, 0, len(values))
	for _, v := range values {
		choices = append(choices, formChoice{Value: v, Label: v, Selected: v == selected})
	}
	return choices
}

func ratingChoices(selected string) []formChoice {
	values := make([]string, 0, len(core.AllRatings))
	for _, r := range core.AllRatings {
		values = append(values, string(r))
	}
	return selectChoices(values, selected)
}

func formValue(values url.Values, name string) string {
	return strings.TrimSpace(values.Get(name))
}

// =============================================================================
// Forms
// =============================================================================

// actionTypeForm adds an option to the action type list
type actionTypeForm struct {
	Action string `form:"action" validate:"required,max=100"`
}

func (f *actionTypeForm) bind(values url.Values) {
	f.Action = formValue(values, "action")
}

func (f *actionTypeForm) fields() []formField {
	return []formField{{Name: "action", Label: "Action", Value: f.Action, Widget: widgetText, Required: true}}
}

// sourceFields are shared by every upload form
type sourceFields struct {
	Source    string `form:"source" validate:"required,max=200"`
	Method    string `form:"method" validate:"max=200"`
	Reference string `form:"reference" validate:"max=1000"`
}

func (f *sourceFields) bind(values url.Values) {
	f.Source = formValue(values, "source")
	f.Method = formValue(values, "method")
	f.Reference = formValue(values, "reference")
}

func (f *sourceFields) fields() []formField {
	return []formField{
		{Name: "source", Label: "Source", Value: f.Source, Widget: widgetText, Required: true},
		{Name: "method", Label: "Method", Value: f.Method, Widget: widgetText},
		{Name: "reference", Label: "Reference", Value: f.Reference, Widget: widgetText},
	}
}

// uploadCSVForm uploads a CSV file. The file itself is checked by the
// handler since it is not part of the url-encoded values.
type uploadCSVForm struct {
	Meta sourceFields
}

func (f *uploadCSVForm) bind(values url.Values) {
	f.Meta.bind(values)
}

func (f *uploadCSVForm) fields() []formField {
	return append([]formField{{Name: "filedata", Label: "File", Widget: widgetFile, Required: true}},
		f.Meta.fields()...)
}

// uploadTextForm uploads pasted CSV or tab separated text
type uploadTextForm struct {
	Meta sourceFields
	Data string `form:"data" validate:"required"`
}

func (f *uploadTextForm) bind(values url.Values) {
	f.Meta.bind(values)
	f.Data = strings.TrimSpace(values.Get("data"))
}

func (f *uploadTextForm) fields() []formField {
	return append([]formField{{Name: "data", Label: "Data", Value: f.Data, Widget: widgetTextarea, Required: true}},
		f.Meta.fields()...)
}

// uploadIndicatorForm creates or merges a single indicator
type uploadIndicatorForm struct {
	Meta               sourceFields
	Value              string `form:"value" validate:"required,max=4096"`
	IndicatorType      string `form:"indicator_type" validate:"required"`
	Campaign           string `form:"campaign" validate:"max=200"`
	CampaignConfidence string `form:"campaign_confidence" validate:"omitempty,oneof=low medium high"`
	Confidence         string `form:"confidence" validate:"omitempty,oneof=unknown benign low medium high"`
	Impact             string `form:"impact" validate:"omitempty,oneof=unknown benign low medium high"`
	BucketList         string `form:"bucket_list" validate:"max=1000"`
	Ticket             string `form:"ticket" validate:"max=1000"`

	typeChoices []core.TypeChoice
}

func (f *uploadIndicatorForm) bind(values url.Values) {
	f.Meta.bind(values)
	f.Value = formValue(values, "value")
	f.IndicatorType = formValue(values, "indicator_type")
	f.Campaign = formValue(values, "campaign")
	f.CampaignConfidence = formValue(values, "campaign_confidence")
	f.Confidence = formValue(values, "confidence")
	f.Impact = formValue(values, "impact")
	f.BucketList = formValue(values, "bucket_list")
	f.Ticket = formValue(values, "ticket")
}

// validType reports whether the submitted type is one of the form choices
func (f *uploadIndicatorForm) validType() bool {
	for _, c := range f.typeChoices {
		if c.Value == f.IndicatorType {
			return true
		}
	}
	return false
}

func (f *uploadIndicatorForm) fields() []formField {
	types := make([]formChoice, 0, len(f.typeChoices))
	for _, c := range f.typeChoices {
		types = append(types, formChoice{Value: c.Value, Label: c.Label, Selected: c.Value == f.IndicatorType})
	}
	fields := []formField{
		{Name: "indicator_type", Label: "Type", Value: f.IndicatorType, Widget: widgetSelect, Required: true, Choices: types},
		{Name: "value", Label: "Value", Value: f.Value, Widget: widgetTextarea, Required: true},
	}
	fields = append(fields, f.Meta.fields()...)
	return append(fields,
		formField{Name: "campaign", Label: "Campaign", Value: f.Campaign, Widget: widgetText},
		formField{Name: "campaign_confidence", Label: "Campaign Confidence", Value: f.CampaignConfidence,
			Widget: widgetSelect, Choices: selectChoices([]string{"", "low", "medium", "high"}, f.CampaignConfidence)},
		formField{Name: "confidence", Label: "Confidence", Value: f.Confidence, Widget: widgetSelect, Choices: ratingChoices(f.Confidence)},
		formField{Name: "impact", Label: "Impact", Value: f.Impact, Widget: widgetSelect, Choices: ratingChoices(f.Impact)},
		formField{Name: "bucket_list", Label: "Bucket List", Value: f.BucketList, Widget: widgetText},
		formField{Name: "ticket", Label: "Ticket", Value: f.Ticket, Widget: widgetText},
	)
}

// actionForm adds or updates an action entry. Date is the hidden key of the
// entry being updated.
type actionForm struct {
	ActionType    string `form:"action_type" validate:"required,max=100"`
	BeginDate     string `form:"begin_date" validate:"optdate"`
	EndDate       string `form:"end_date" validate:"optdate"`
	PerformedDate string `form:"performed_date" validate:"optdate"`
	Active        string `form:"active" validate:"required,oneof=on off"`
	Reason        string `form:"reason" validate:"max=4000"`
	Date          string `form:"date" validate:"omitempty,entrydate"`

	actionTypes []string
}

func (f *actionForm) bind(values url.Values) {
	f.ActionType = formValue(values, "action_type")
	f.BeginDate = formValue(values, "begin_date")
	f.EndDate = formValue(values, "end_date")
	f.PerformedDate = formValue(values, "performed_date")
	f.Active = formValue(values, "active")
	f.Reason = formValue(values, "reason")
	f.Date = formValue(values, "date")
}

func (f *actionForm) fields() []formField {
	return []formField{
		{Name: "action_type", Label: "Action Type", Value: f.ActionType, Widget: widgetSelect, Required: true,
			Choices: selectChoices(f.actionTypes, f.ActionType)},
		{Name: "begin_date", Label: "Begin Date", Value: f.BeginDate, Widget: widgetText},
		{Name: "end_date", Label: "End Date", Value: f.EndDate, Widget: widgetText},
		{Name: "performed_date", Label: "Performed Date", Value: f.PerformedDate, Widget: widgetText},
		{Name: "active", Label: "Active", Value: f.Active, Widget: widgetSelect, Required: true,
			Choices: selectChoices([]string{string(core.ActiveOn), string(core.ActiveOff)}, f.Active)},
		{Name: "reason", Label: "Reason", Value: f.Reason, Widget: widgetTextarea},
		{Name: "date", Label: "Date", Value: f.Date, Widget: widgetHidden},
	}
}

// toAction converts the validated form; dates already passed validation
func (f *actionForm) toAction() core.Action {
	begin, _ := core.ParseOptionalDate(f.BeginDate)
	end, _ := core.ParseOptionalDate(f.EndDate)
	performed, _ := core.ParseOptionalDate(f.PerformedDate)
	return core.Action{
		ActionType:    f.ActionType,
		BeginDate:     begin,
		EndDate:       end,
		PerformedDate: performed,
		Active:        core.ActiveState(f.Active),
		Reason:        f.Reason,
	}
}

// activityForm adds or updates an activity entry
type activityForm struct {
	StartDate   string `form:"start_date" validate:"optdate"`
	EndDate     string `form:"end_date" validate:"optdate"`
	Description string `form:"description" validate:"required,max=4000"`
	Date        string `form:"date" validate:"omitempty,entrydate"`
}

func (f *activityForm) bind(values url.Values) {
	f.StartDate = formValue(values, "start_date")
	f.EndDate = formValue(values, "end_date")
	f.Description = formValue(values, "description")
	f.Date = formValue(values, "date")
}

func (f *activityForm) fields() []formField {
	return []formField{
		{Name: "start_date", Label: "Start Date", Value: f.StartDate, Widget: widgetText},
		{Name: "end_date", Label: "End Date", Value: f.EndDate, Widget: widgetText},
		{Name: "description", Label: "Description", Value: f.Description, Widget: widgetTextarea, Required: true},
		{Name: "date", Label: "Date", Value: f.Date, Widget: widgetHidden},
	}
}

func (f *activityForm) toActivity() core.Activity {
	start, _ := core.ParseOptionalDate(f.StartDate)
	end, _ := core.ParseOptionalDate(f.EndDate)
	return core.Activity{StartDate: start, EndDate: end, Description: f.Description}
}
