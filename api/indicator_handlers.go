package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/service"
	"github.com/0x3a/crits/storage"

	"github.com/gorilla/mux"
)

// Paths the handlers link and redirect to
const (
	listingPath = "/indicators/list/"
	detailsPath = "/indicators/details/%s/"
)

// Upload submit button values that select the upload form
const (
	submitCSV       = "Upload CSV"
	submitText      = "Upload Text"
	submitIndicator = "Upload Indicator"
)

const (
	msgExpectedAJAXPost = "Expected AJAX POST"
	msgRemoveDenied     = "You do not have permission to remove this item."
)

// jsonResponse is the envelope of every AJAX answer
type jsonResponse struct {
	Success bool          `json:"success"`
	Message template.HTML `json:"message,omitempty"`
	Form    template.HTML `json:"form,omitempty"`
	Errors  formErrors    `json:"errors,omitempty"`
}

// subRecordResponse is an add/update result with its rendered table row
type subRecordResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Object  interface{}   `json:"object,omitempty"`
	HTML    template.HTML `json:"html,omitempty"`
}

// listResponse is one page of the listing table
type listResponse struct {
	Success bool `json:"success"`
	*service.IndicatorPage
}

func detailsURL(id string) string {
	return fmt.Sprintf(detailsPath, url.PathEscape(id))
}

// parsePostForm parses url-encoded or multipart bodies
func (a *API) parsePostForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.API.MaxUploadSize)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(a.config.API.MaxUploadSize)
	}
	return r.ParseForm()
}

// =============================================================================
// Pages
// =============================================================================

// indicator renders the detail page
//
//	@Summary		Indicator details
//	@Description	Renders the detail page of one indicator
//	@Tags			indicators
//	@Produce		html
//	@Param			id	path	string	true	"Indicator ID"
//	@Success		200	{string}	string	"Detail page"
//	@Failure		404	{string}	string	"Error page"
//	@Security		ApiKeyAuth
//	@Router			/indicators/details/{id}/ [get]
func (a *API) indicator(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	analyst := analystFromContext(r.Context())

	details, err := a.service.GetIndicatorDetails(r.Context(), id, analyst)
	if err != nil {
		if storage.IsNotFound(err) {
			a.renderErrorPage(w, http.StatusNotFound, "Indicator not found")
			return
		}
		a.logger.Errorw("Failed to load indicator", "indicator_id", id, "error", err)
		a.renderErrorPage(w, http.StatusInternalServerError, "Failed to load indicator")
		return
	}

	a.renderPage(w, http.StatusOK, "indicator_detail.html", struct {
		Details *service.IndicatorDetails
		Analyst string
	}{details, analyst.Username})
}

// filtersFromQuery reads search filters and paging from the query string
func filtersFromQuery(q url.Values) *core.IndicatorFilters {
	filters := &core.IndicatorFilters{}
	for _, name := range core.SearchFields {
		if v := q.Get(name); v != "" {
			filters.Set(name, v)
		}
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filters.Offset = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filters.Limit = v
	}
	if sortBy := q.Get("sort_by"); sortBy != "" {
		filters.SortBy = sortBy
		filters.SortDesc = strings.EqualFold(q.Get("sort_dir"), "desc")
	}
	return filters
}

// indicatorsListing serves the listing page, its JSON data and CSV export
//
//	@Summary		List indicators
//	@Description	Renders the listing page, or with option csv exports, jtlist returns a JSON page and jtdelete removes the posted id
//	@Tags			indicators
//	@Produce		html,json,text/csv
//	@Param			option	path	string	false	"csv, jtlist or jtdelete"
//	@Param			offset	query	int	false	"Page offset"	minimum(0)
//	@Param			limit	query	int	false	"Page size"	minimum(1)	maximum(1000)	default(25)
//	@Param			sort_by	query	string	false	"value, type, created or modified"
//	@Param			sort_dir	query	string	false	"asc or desc"
//	@Param			q	query	string	false	"Free text search"
//	@Success		200	{object}	listResponse
//	@Failure		404	{string}	string	"Unknown option"
//	@Security		ApiKeyAuth
//	@Router			/indicators/list/{option}/ [get]
func (a *API) indicatorsListing(w http.ResponseWriter, r *http.Request) {
	option := mux.Vars(r)["option"]
	query := r.URL.Query()
	filters := filtersFromQuery(query)

	switch option {
	case "csv":
		var buf bytes.Buffer
		if err := a.service.ExportCSV(r.Context(), &buf, filters); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to export indicators", err, a.logger)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="indicators.csv"`)
		_, _ = io.Copy(w, &buf)

	case "jtlist":
		page, err := a.service.ListIndicators(r.Context(), filters)
		if err != nil {
			a.logger.Errorw("Failed to list indicators", "error", err)
			writeJSON(w, http.StatusOK, jsonResponse{Message: "Failed to list indicators"}, a.logger)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Success: true, IndicatorPage: page}, a.logger)

	case "jtdelete":
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
			return
		}
		id := r.Form.Get("id")
		if id == "" {
			writeJSON(w, http.StatusOK, jsonResponse{Message: "Need an indicator id"}, a.logger)
			return
		}
		if err := a.service.RemoveIndicator(r.Context(), id, analystFromContext(r.Context())); err != nil {
			writeJSON(w, http.StatusOK, jsonResponse{Message: template.HTML(template.HTMLEscapeString(a.removalFailure(err)))}, a.logger)
			return
		}
		writeJSON(w, http.StatusOK, jsonResponse{Success: true}, a.logger)

	case "", "inline":
		page, err := a.service.ListIndicators(r.Context(), filters)
		if err != nil {
			a.logger.Errorw("Failed to list indicators", "error", err)
			a.renderErrorPage(w, http.StatusInternalServerError, "Failed to list indicators")
			return
		}
		a.renderPage(w, http.StatusOK, "indicators_listing.html", struct {
			Page         *service.IndicatorPage
			Filters      *core.IndicatorFilters
			SearchFields []string
			Query        template.URL
		}{page, filters, core.SearchFields, template.URL(query.Encode())})

	default:
		a.renderErrorPage(w, http.StatusNotFound, "Unknown listing option: "+option)
	}
}

// indicatorSearch redirects to the listing filtered by one field
//
//	@Summary		Search indicators
//	@Description	Redirects to the listing filtered by search_type; unknown fields search everything
//	@Tags			indicators
//	@Param			search_type	query	string	false	"value, type, source, campaign, bucket_list, ticket or q"	default(q)
//	@Param			q	query	string	false	"Search term"
//	@Success		302	{string}	string	"Redirect to the listing"
//	@Security		ApiKeyAuth
//	@Router			/indicators/search/ [get]
func (a *API) indicatorSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := q.Get("search_type")
	if !core.IsSearchField(field) {
		field = "q"
	}
	target := url.Values{}
	target.Set(field, strings.TrimSpace(q.Get("q")))
	http.Redirect(w, r, listingPath+"?"+target.Encode(), http.StatusFound)
}

// removalFailure maps a RemoveIndicator error to the analyst message
func (a *API) removalFailure(err error) string {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return msgRemoveDenied
	case storage.IsNotFound(err):
		return "Could not find Indicator"
	}
	a.logger.Errorw("Failed to remove indicator", "error", err)
	return "Failed to remove indicator"
}

// removeIndicator deletes an indicator and returns to the listing
//
//	@Summary		Remove indicator
//	@Description	Deletes an indicator and its relationships. Admin only.
//	@Tags			indicators
//	@Param			id	path	string	true	"Indicator ID"
//	@Success		302	{string}	string	"Redirect to the listing"
//	@Failure		403	{string}	string	"Permission denied"
//	@Failure		404	{string}	string	"Indicator not found"
//	@Security		ApiKeyAuth
//	@Router			/indicators/remove/{id}/ [post]
func (a *API) removeIndicator(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := a.service.RemoveIndicator(r.Context(), id, analystFromContext(r.Context()))
	if err == nil {
		http.Redirect(w, r, listingPath, http.StatusFound)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	case storage.IsNotFound(err):
		status = http.StatusNotFound
	}
	a.renderErrorPage(w, status, a.removalFailure(err))
}

// =============================================================================
// Action types and uploads
// =============================================================================

// newIndicatorAction adds an option to the action type list
//
//	@Summary		Add action type
//	@Description	Adds an option to the action type list. AJAX only.
//	@Tags			actions
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			action	formData	string	true	"Action type name"
//	@Success		200	{object}	jsonResponse
//	@Failure		400	{string}	string	"Not an AJAX POST"
//	@Security		ApiKeyAuth
//	@Router			/indicators/add_action/ [post]
func (a *API) newIndicatorAction(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		a.renderErrorPage(w, http.StatusBadRequest, msgExpectedAJAXPost)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}

	f := &actionTypeForm{}
	if errs := a.validateForm(f, r.PostForm); len(errs) > 0 {
		writeJSON(w, http.StatusOK, jsonResponse{Form: a.renderFormTable(f, errs), Errors: errs}, a.logger)
		return
	}

	analyst := analystFromContext(r.Context())
	result := a.service.AddActionType(r.Context(), f.Action, analyst.Username)
	message := result.Message
	if !result.Success && message == "" {
		message = "Indicator Action addition failed!"
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		Success: result.Success,
		Message: template.HTML("<div>" + template.HTMLEscapeString(message) + "</div>"),
	}, a.logger)
}

// uploadIndicator creates indicators from a CSV file, pasted text or a
// single form value
//
//	@Summary		Upload indicators
//	@Description	Creates indicators from a CSV file, pasted text or a single value, selected by svalue
//	@Tags			indicators
//	@Accept			multipart/form-data
//	@Produce		json,html
//	@Param			svalue	formData	string	true	"Upload CSV, Upload Text or Upload Indicator"
//	@Param			source	formData	string	true	"Source name"
//	@Param			method	formData	string	false	"Source method"
//	@Param			reference	formData	string	false	"Source reference"
//	@Param			filedata	formData	file	false	"CSV file (Upload CSV)"
//	@Param			data	formData	string	false	"Pasted CSV or tab separated text (Upload Text)"
//	@Param			value	formData	string	false	"Indicator value (Upload Indicator)"
//	@Param			indicator_type	formData	string	false	"Indicator type (Upload Indicator)"
//	@Param			campaign	formData	string	false	"Campaign"
//	@Param			campaign_confidence	formData	string	false	"low, medium or high"
//	@Param			confidence	formData	string	false	"Confidence rating"
//	@Param			impact	formData	string	false	"Impact rating"
//	@Param			bucket_list	formData	string	false	"Comma separated buckets"
//	@Param			ticket	formData	string	false	"Comma separated tickets"
//	@Success		200	{object}	jsonResponse
//	@Failure		405	{string}	string	"Not a POST"
//	@Security		ApiKeyAuth
//	@Router			/indicators/upload/ [post]
func (a *API) uploadIndicator(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.renderErrorPage(w, http.StatusMethodNotAllowed, "Expected POST")
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		a.respondUpload(w, r, jsonResponse{Message: template.HTML(template.HTMLEscapeString("Invalid upload: " + sanitizeErrorMessage(err.Error())))})
		return
	}

	ctx := r.Context()
	analyst := analystFromContext(ctx).Username
	allLink := `<a href="` + listingPath + `">Go to all indicators</a>`

	var (
		f         form
		errs      formErrors
		succeeded bool
		message   string
		failed    string
	)

	switch r.PostForm.Get("svalue") {
	case submitCSV:
		csvForm := &uploadCSVForm{}
		f = csvForm
		errs = a.validateForm(csvForm, r.PostForm)
		file, _, err := r.FormFile("filedata")
		if err != nil {
			errs.add("filedata", msgRequired)
		} else {
			defer file.Close()
		}
		if len(errs) == 0 {
			res := a.service.HandleCSV(ctx, file, service.BulkRequest{
				Source:    csvForm.Meta.Source,
				Method:    csvForm.Meta.Method,
				Reference: csvForm.Meta.Reference,
				Mode:      service.ModeFile,
				AddDomain: true,
			}, analyst)
			succeeded = res.Success
			message, failed = bulkMessages(res, allLink)
		}

	case submitText:
		textForm := &uploadTextForm{}
		f = textForm
		errs = a.validateForm(textForm, r.PostForm)
		if len(errs) == 0 {
			res := a.service.HandleCSV(ctx, strings.NewReader(textForm.Data), service.BulkRequest{
				Source:    textForm.Meta.Source,
				Method:    textForm.Meta.Method,
				Reference: textForm.Meta.Reference,
				Mode:      service.ModeText,
				AddDomain: true,
			}, analyst)
			succeeded = res.Success
			message, failed = bulkMessages(res, allLink)
		}

	case submitIndicator:
		indForm := &uploadIndicatorForm{typeChoices: a.service.IndicatorTypeChoices()}
		f = indForm
		errs = a.validateForm(indForm, r.PostForm)
		if _, bad := errs["indicator_type"]; !bad && !indForm.validType() {
			errs.add("indicator_type", msgInvalidChoice)
		}
		if len(errs) == 0 {
			res := a.service.HandleSingle(ctx, service.SingleRequest{
				Value:              indForm.Value,
				Type:               core.IndicatorType(indForm.IndicatorType),
				Source:             indForm.Meta.Source,
				Method:             indForm.Meta.Method,
				Reference:          indForm.Meta.Reference,
				Campaign:           indForm.Campaign,
				CampaignConfidence: core.CampaignConfidence(indForm.CampaignConfidence),
				Confidence:         core.RatingValue(indForm.Confidence),
				Impact:             core.RatingValue(indForm.Impact),
				BucketList:         indForm.BucketList,
				Ticket:             indForm.Ticket,
				AddDomain:          true,
			}, analyst)
			succeeded = res.Success
			if res.Success {
				link := ` - <a href="` + detailsURL(res.ObjectID) + `">Go to this indicator</a> or <a href="` +
					listingPath + `">all indicators</a>.</div>`
				if res.IsNew {
					message = "<div>Indicator added successfully!" + link
				} else {
					message = "<div>Warning: Updated existing Indicator!" + link
				}
			} else {
				failed = template.HTMLEscapeString(res.Message) + " - "
			}
		}

	default:
		failed = "<div>Unknown upload type. "
	}

	if !succeeded {
		a.respondUpload(w, r, jsonResponse{
			Message: a.safeMessage(failed + `<a href="` + listingPath + `"> Go to all indicators</a></div>`),
			Form:    a.renderFormTable(f, errs),
			Errors:  errs,
		})
		return
	}
	a.respondUpload(w, r, jsonResponse{Success: true, Message: a.safeMessage(message)})
}

// bulkMessages builds the success and failure text of a CSV or text upload
func bulkMessages(res service.BulkResult, allLink string) (message, failed string) {
	text := template.HTMLEscapeString(res.Message)
	for _, f := range res.Failures {
		text += "<br>" + template.HTMLEscapeString(f)
	}
	if res.Success {
		return "<div>" + text + " " + allLink + "</div>", ""
	}
	return "", "<div>" + text + "</div>"
}

// respondUpload answers AJAX uploads with JSON and form posts with a page
// that hands the JSON to the parent frame
func (a *API) respondUpload(w http.ResponseWriter, r *http.Request, resp jsonResponse) {
	if isAJAX(r) {
		writeJSON(w, http.StatusOK, resp, a.logger)
		return
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode upload response", err, a.logger)
		return
	}
	a.renderPage(w, http.StatusOK, "file_upload_response.html", struct{ Response string }{string(payload)})
}

// =============================================================================
// Indicator fields
// =============================================================================

// updateIndicatorType changes an indicator's type
//
//	@Summary		Update indicator type
//	@Tags			indicators
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			id	path	string	true	"Indicator ID"
//	@Param			type	formData	string	true	"New indicator type"
//	@Success		200	{object}	jsonResponse
//	@Failure		400	{string}	string	"Not an AJAX POST"
//	@Security		ApiKeyAuth
//	@Router			/indicators/type/{id}/ [post]
func (a *API) updateIndicatorType(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		a.renderErrorPage(w, http.StatusBadRequest, msgExpectedAJAXPost)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	newType := strings.TrimSpace(r.PostForm.Get("type"))
	if newType == "" {
		writeJSON(w, http.StatusOK, service.Result{}, a.logger)
		return
	}
	result := a.service.SetIndicatorType(r.Context(), mux.Vars(r)["id"], core.IndicatorType(newType), analystFromContext(r.Context()).Username)
	writeJSON(w, http.StatusOK, result, a.logger)
}

// updateCI sets the confidence or impact rating
//
//	@Summary		Update confidence or impact
//	@Tags			indicators
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			id	path	string	true	"Indicator ID"
//	@Param			ci_type	path	string	true	"confidence or impact"
//	@Param			value	formData	string	true	"unknown, benign, low, medium or high"
//	@Success		200	{object}	jsonResponse
//	@Security		ApiKeyAuth
//	@Router			/indicators/ci/update/{id}/{ci_type}/ [post]
func (a *API) updateCI(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		writeJSON(w, http.StatusOK, jsonResponse{Message: msgExpectedAJAXPost}, a.logger)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	vars := mux.Vars(r)
	result := a.service.UpdateCI(r.Context(), vars["id"],
		core.RatingKind(vars["ci_type"]),
		core.RatingValue(strings.TrimSpace(r.PostForm.Get("value"))),
		analystFromContext(r.Context()).Username)
	writeJSON(w, http.StatusOK, result, a.logger)
}

// =============================================================================
// Actions and activity
// =============================================================================

// emptyJSON answers sub-record requests that were not AJAX POSTs
func (a *API) emptyJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, struct{}{}, a.logger)
}

// addUpdateAction adds an action or updates the one keyed by the hidden date
//
//	@Summary		Add or update action
//	@Description	Adds an action, or with method update replaces the one keyed by date
//	@Tags			actions
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			method	path	string	true	"add or update"
//	@Param			id	path	string	true	"Indicator ID"
//	@Param			action_type	formData	string	true	"Action type"
//	@Param			active	formData	string	true	"on or off"
//	@Param			begin_date	formData	string	false	"Begin date"
//	@Param			end_date	formData	string	false	"End date"
//	@Param			performed_date	formData	string	false	"Performed date"
//	@Param			reason	formData	string	false	"Reason"
//	@Param			date	formData	string	false	"Key of the action to update"
//	@Success		200	{object}	subRecordResponse
//	@Security		ApiKeyAuth
//	@Router			/indicators/actions/{method}/{id}/ [post]
func (a *API) addUpdateAction(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		a.emptyJSON(w)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	vars := mux.Vars(r)
	id, method := vars["id"], vars["method"]
	analyst := analystFromContext(r.Context())

	f := &actionForm{}
	errs := a.validateForm(f, r.PostForm)
	if method == "update" && f.Date == "" {
		errs.add("date", msgRequired)
	}
	if len(errs) > 0 {
		if types, err := a.service.ListActionTypes(r.Context(), true); err == nil {
			for _, t := range types {
				f.actionTypes = append(f.actionTypes, t.Name)
			}
		}
		writeJSON(w, http.StatusOK, jsonResponse{Form: a.renderFormTable(f, errs), Errors: errs}, a.logger)
		return
	}

	action := f.toAction()
	var result service.ActionResult
	if method == "add" {
		result = a.service.AddAction(r.Context(), id, action, analyst.Username)
	} else {
		action.Date, _ = core.ParseEntryDate(f.Date)
		result = a.service.UpdateAction(r.Context(), id, action, analyst.Username)
	}

	resp := subRecordResponse{Success: result.Success, Message: result.Message}
	if result.Object != nil {
		resp.Object = result.Object
		html, err := a.renderFragment("action_row", actionRowData{Action: *result.Object, Admin: analyst.IsAdmin(), IndicatorID: id})
		if err != nil {
			a.logger.Errorw("Failed to render action row", "error", err)
		}
		resp.HTML = html
	}
	writeJSON(w, http.StatusOK, resp, a.logger)
}

// removeAction deletes the action keyed by the posted date
//
//	@Summary		Remove action
//	@Description	Admin only
//	@Tags			actions
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			id	path	string	true	"Indicator ID"
//	@Param			key	formData	string	true	"Date key of the action"
//	@Success		200	{object}	jsonResponse
//	@Failure		403	{string}	string	"Permission denied"
//	@Security		ApiKeyAuth
//	@Router			/indicators/actions/remove/{id}/ [post]
func (a *API) removeAction(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		a.emptyJSON(w)
		return
	}
	a.removeSubRecord(w, r, a.service.RemoveAction)
}

// addUpdateActivity adds an activity entry or updates the one keyed by the
// hidden date
//
//	@Summary		Add or update activity
//	@Description	Adds an activity entry, or with method update replaces the one keyed by date
//	@Tags			activity
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			method	path	string	true	"add or update"
//	@Param			id	path	string	true	"Indicator ID"
//	@Param			description	formData	string	true	"Description"
//	@Param			start_date	formData	string	false	"Start date"
//	@Param			end_date	formData	string	false	"End date"
//	@Param			date	formData	string	false	"Key of the entry to update"
//	@Success		200	{object}	subRecordResponse
//	@Security		ApiKeyAuth
//	@Router			/indicators/activity/{method}/{id}/ [post]
func (a *API) addUpdateActivity(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		a.emptyJSON(w)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	vars := mux.Vars(r)
	id, method := vars["id"], vars["method"]
	analyst := analystFromContext(r.Context())

	f := &activityForm{}
	errs := a.validateForm(f, r.PostForm)
	if method == "update" && f.Date == "" {
		errs.add("date", msgRequired)
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusOK, jsonResponse{Form: a.renderFormTable(f, errs), Errors: errs}, a.logger)
		return
	}

	activity := f.toActivity()
	var result service.ActivityResult
	if method == "add" {
		result = a.service.AddActivity(r.Context(), id, activity, analyst.Username)
	} else {
		activity.Date, _ = core.ParseEntryDate(f.Date)
		result = a.service.UpdateActivity(r.Context(), id, activity, analyst.Username)
	}

	resp := subRecordResponse{Success: result.Success, Message: result.Message}
	if result.Object != nil {
		resp.Object = result.Object
		html, err := a.renderFragment("activity_row", activityRowData{Activity: *result.Object, Admin: analyst.IsAdmin(), IndicatorID: id})
		if err != nil {
			a.logger.Errorw("Failed to render activity row", "error", err)
		}
		resp.HTML = html
	}
	writeJSON(w, http.StatusOK, resp, a.logger)
}

// removeActivity deletes the activity entry keyed by the posted date
//
//	@Summary		Remove activity
//	@Description	Admin only
//	@Tags			activity
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			id	path	string	true	"Indicator ID"
//	@Param			key	formData	string	true	"Date key of the entry"
//	@Success		200	{object}	jsonResponse
//	@Failure		403	{string}	string	"Permission denied"
//	@Security		ApiKeyAuth
//	@Router			/indicators/activity/remove/{id}/ [post]
func (a *API) removeActivity(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		writeJSON(w, http.StatusOK, jsonResponse{Message: msgExpectedAJAXPost}, a.logger)
		return
	}
	a.removeSubRecord(w, r, a.service.RemoveActivity)
}

// removeSubRecord handles the admin-only removal of an action or activity
// entry identified by the "key" date
func (a *API) removeSubRecord(w http.ResponseWriter, r *http.Request,
	remove func(ctx context.Context, id string, date time.Time, analyst core.Analyst) service.Result) {
	analyst := analystFromContext(r.Context())
	if !analyst.IsAdmin() {
		a.renderErrorPage(w, http.StatusForbidden, msgRemoveDenied)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	date, err := core.ParseEntryDate(r.PostForm.Get("key"))
	if err != nil {
		writeJSON(w, http.StatusOK, service.Result{Message: err.Error()}, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, remove(r.Context(), mux.Vars(r)["id"], date, analyst), a.logger)
}

// =============================================================================
// Relationships
// =============================================================================

// relationshipResponse renders the relationships listing of the source
// object, or the failure prefixed for the relationship dialog
func (a *API) relationshipResponse(w http.ResponseWriter, result service.RelationshipResult, refType string) {
	if !result.Success {
		writeJSON(w, http.StatusOK, jsonResponse{
			Message: template.HTML(template.HTMLEscapeString("Error adding relationship: " + result.Message)),
		}, a.logger)
		return
	}
	html, err := a.renderFragment("relationships_listing", relationshipsData{
		Relationships: result.Relationships,
		Relationship:  relationshipRef{Type: refType, Value: result.ObjectID},
	})
	if err != nil {
		a.logger.Errorw("Failed to render relationships", "error", err)
		writeJSON(w, http.StatusOK, jsonResponse{Message: "Error adding relationship: failed to render relationships"}, a.logger)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{Success: true, Message: html}, a.logger)
}

// indicatorAndIP creates an IP indicator and IP object related to an
// existing object
//
//	@Summary		Create indicator and IP
//	@Description	Creates an IP indicator and IP object related to an existing object
//	@Tags			relationships
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			type	formData	string	true	"Object type"
//	@Param			oid	formData	string	true	"Object ID"
//	@Param			ip	formData	string	true	"IP address"
//	@Success		200	{object}	jsonResponse
//	@Security		ApiKeyAuth
//	@Router			/indicators/and_ip/ [post]
func (a *API) indicatorAndIP(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		writeJSON(w, http.StatusOK, jsonResponse{Message: msgExpectedAJAXPost}, a.logger)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	objType := formValue(r.PostForm, "type")
	objID := formValue(r.PostForm, "oid")
	ip := formValue(r.PostForm, "ip")
	if objType == "" || objID == "" || ip == "" {
		writeJSON(w, http.StatusOK, jsonResponse{Message: "Need type, oid, and ip"}, a.logger)
		return
	}

	result := a.service.CreateIndicatorAndIP(r.Context(), core.TLOType(objType), objID, ip,
		analystFromContext(r.Context()).Username)
	a.relationshipResponse(w, result, objType)
}

// indicatorFromTLO creates an indicator from a value found on another
// object and relates the two
//
//	@Summary		Create indicator from object
//	@Description	Creates an indicator from a value found on another object and relates the two
//	@Tags			relationships
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			ind_type	formData	string	true	"Indicator type"
//	@Param			obj_type	formData	string	true	"Object type"
//	@Param			oid	formData	string	true	"Object ID"
//	@Param			value	formData	string	true	"Indicator value"
//	@Param			source	formData	string	false	"Source, defaults to the object's"
//	@Success		200	{object}	jsonResponse
//	@Security		ApiKeyAuth
//	@Router			/indicators/from_obj/ [post]
func (a *API) indicatorFromTLO(w http.ResponseWriter, r *http.Request) {
	if !isAJAXPost(r) {
		writeJSON(w, http.StatusOK, jsonResponse{Message: msgExpectedAJAXPost}, a.logger)
		return
	}
	if err := a.parsePostForm(w, r); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form", err, a.logger)
		return
	}
	req := service.FromTLORequest{
		IndicatorType: core.IndicatorType(formValue(r.PostForm, "ind_type")),
		ObjectType:    core.TLOType(formValue(r.PostForm, "obj_type")),
		ObjectID:      formValue(r.PostForm, "oid"),
		Value:         formValue(r.PostForm, "value"),
		Source:        formValue(r.PostForm, "source"),
	}
	if req.IndicatorType == "" || req.ObjectType == "" || req.ObjectID == "" || req.Value == "" {
		writeJSON(w, http.StatusOK, jsonResponse{Message: "Need indicator type, tlo type, oid, and value"}, a.logger)
		return
	}

	result := a.service.CreateIndicatorFromTLO(r.Context(), req, analystFromContext(r.Context()).Username)
	a.relationshipResponse(w, result, string(req.IndicatorType))
}
