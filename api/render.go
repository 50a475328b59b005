package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/0x3a/crits/core"
)

//go:embed templates/*.html
var templateFS embed.FS

// actionRowData renders one row of the actions table
type actionRowData struct {
	Action      core.Action
	Admin       bool
	IndicatorID string
}

// activityRowData renders one row of the activity table
type activityRowData struct {
	Activity    core.Activity
	Admin       bool
	IndicatorID string
}

// relationshipRef names the object a relationships listing belongs to
type relationshipRef struct {
	Type  string
	Value string
}

// relationshipsData renders the relationships of one object
type relationshipsData struct {
	Relationships []core.Relationship
	Relationship  relationshipRef
}

var templateFuncs = template.FuncMap{
	"fmtdate": core.FormatDate,
	"join":    strings.Join,
	"actionRow": func(a core.Action, admin bool, id string) actionRowData {
		return actionRowData{Action: a, Admin: admin, IndicatorID: id}
	},
	"activityRow": func(a core.Activity, admin bool, id string) activityRowData {
		return activityRowData{Activity: a, Admin: admin, IndicatorID: id}
	},
	"relationshipsListing": func(rels []core.Relationship, objType, value string) relationshipsData {
		return relationshipsData{Relationships: rels, Relationship: relationshipRef{Type: objType, Value: value}}
	},
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}

// renderFragment executes a named template into a string for embedding in
// a JSON response
func (a *API) renderFragment(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// renderPage writes a full HTML page
func (a *API) renderPage(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render page", err, a.logger)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderErrorPage writes error.html with the given message
func (a *API) renderErrorPage(w http.ResponseWriter, status int, message string) {
	a.renderPage(w, status, "error.html", struct{ Error string }{message})
}

// safeMessage strips markup a service message should not carry, keeping the
// links the upload responses add
func (a *API) safeMessage(msg string) template.HTML {
	return template.HTML(a.policy.Sanitize(msg))
}
