package core

import "strings"

// Listing defaults
const (
	DefaultPageSize = 25
	MaxPageSize     = 1000
)

// Sortable listing columns
var sortableFields = map[string]bool{
	"value":    true,
	"type":     true,
	"created":  true,
	"modified": true,
}

// IndicatorFilters selects and pages indicators for listing and export.
// Empty fields do not filter.
type IndicatorFilters struct {
	Type       IndicatorType `json:"type,omitempty"`
	Value      string        `json:"value,omitempty"`
	Source     string        `json:"source,omitempty"`
	Campaign   string        `json:"campaign,omitempty"`
	BucketList string        `json:"bucket_list,omitempty"`
	Ticket     string        `json:"ticket,omitempty"`
	Search     string        `json:"q,omitempty"`

	SortBy    string `json:"sort_by,omitempty"`
	SortDesc  bool   `json:"sort_desc,omitempty"`
	Offset    int    `json:"offset,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// SearchFields are the query parameter names the search box may target
var SearchFields = []string{"value", "type", "source", "campaign", "bucket_list", "ticket", "q"}

// IsSearchField reports whether name is a listing filter parameter
func IsSearchField(name string) bool {
	for _, f := range SearchFields {
		if f == name {
			return true
		}
	}
	return false
}

// Set assigns a filter by its query parameter name. Unknown names are
// ignored.
func (f *IndicatorFilters) Set(name, value string) {
	value = strings.TrimSpace(value)
	switch name {
	case "value":
		f.Value = value
	case "type":
		f.Type = IndicatorType(value)
	case "source":
		f.Source = value
	case "campaign":
		f.Campaign = value
	case "bucket_list":
		f.BucketList = value
	case "ticket":
		f.Ticket = value
	case "q":
		f.Search = value
	}
}

// Normalize clamps paging and sorting to supported values
func (f *IndicatorFilters) Normalize() {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if !sortableFields[f.SortBy] {
		f.SortBy = "created"
		f.SortDesc = true
	}
}
