package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/service"

	"github.com/xeipuuv/gojsonschema"
)

// importSchema validates JSON imports before any record is stored
const importSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["value", "type"],
    "additionalProperties": false,
    "properties": {
      "value": {"type": "string", "minLength": 1},
      "type": {"type": "string", "minLength": 1},
      "campaign": {"type": "string"},
      "campaign_confidence": {"enum": ["", "low", "medium", "high"]},
      "confidence": {"enum": ["", "unknown", "benign", "low", "medium", "high"]},
      "impact": {"enum": ["", "unknown", "benign", "low", "medium", "high"]},
      "bucket_list": {"type": "string"},
      "ticket": {"type": "string"},
      "action": {"type": "string"},
      "id": {"type": "string"},
      "sources": {"type": "array", "items": {"type": "string"}},
      "created": {"type": "string"},
      "modified": {"type": "string"}
    }
  }
}`

// importRecord is one entry of a JSON import file. Field names follow the
// export format so exported files import cleanly; the export-only id,
// sources and timestamps are accepted and ignored.
type importRecord struct {
	Value              string `json:"value"`
	Type               string `json:"type"`
	Campaign           string `json:"campaign,omitempty"`
	CampaignConfidence string `json:"campaign_confidence,omitempty"`
	Confidence         string `json:"confidence,omitempty"`
	Impact             string `json:"impact,omitempty"`
	BucketList         string `json:"bucket_list,omitempty"`
	Ticket             string `json:"ticket,omitempty"`
	Action             string `json:"action,omitempty"`
}

// exportRecord is the flattened indicator written by JSON and YAML exports
type exportRecord struct {
	ID                 string    `json:"id" yaml:"id"`
	Value              string    `json:"value" yaml:"value"`
	Type               string    `json:"type" yaml:"type"`
	Campaign           string    `json:"campaign,omitempty" yaml:"campaign,omitempty"`
	CampaignConfidence string    `json:"campaign_confidence,omitempty" yaml:"campaign_confidence,omitempty"`
	Confidence         string    `json:"confidence" yaml:"confidence"`
	Impact             string    `json:"impact" yaml:"impact"`
	BucketList         string    `json:"bucket_list,omitempty" yaml:"bucket_list,omitempty"`
	Ticket             string    `json:"ticket,omitempty" yaml:"ticket,omitempty"`
	Action             string    `json:"action,omitempty" yaml:"action,omitempty"`
	Sources            []string  `json:"sources,omitempty" yaml:"sources,omitempty"`
	Created            time.Time `json:"created" yaml:"created"`
	Modified           time.Time `json:"modified" yaml:"modified"`
}

// parseImportJSON validates data against importSchema and decodes it
func parseImportJSON(data []byte) ([]importRecord, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(importSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate JSON: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, fmt.Errorf("invalid import file: %s", strings.Join(errs, "; "))
	}

	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return records, nil
}

// importRecords submits each record as a single upload and tallies the
// outcome the way a CSV upload does
func importRecords(ctx context.Context, svc *service.IndicatorService, records []importRecord,
	req service.BulkRequest, analyst string) service.BulkResult {
	var result service.BulkResult
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, fmt.Sprintf("Import cancelled: %v", err))
			break
		}
		res := svc.HandleSingle(ctx, service.SingleRequest{
			Value:              rec.Value,
			Type:               core.IndicatorType(rec.Type),
			Source:             req.Source,
			Method:             req.Method,
			Reference:          req.Reference,
			Campaign:           rec.Campaign,
			CampaignConfidence: core.CampaignConfidence(rec.CampaignConfidence),
			Confidence:         core.RatingValue(rec.Confidence),
			Impact:             core.RatingValue(rec.Impact),
			BucketList:         rec.BucketList,
			Ticket:             rec.Ticket,
			Action:             rec.Action,
			AddDomain:          req.AddDomain,
		}, analyst)

		result.Processed++
		switch {
		case !res.Success:
			result.Failed++
			result.Failures = append(result.Failures, fmt.Sprintf("Record %d (%s): %s", i+1, rec.Value, res.Message))
		case res.IsNew:
			result.New++
		default:
			result.Updated++
		}
	}

	result.Success = result.New+result.Updated > 0
	result.Message = fmt.Sprintf("Processed %d indicators: %d new, %d updated, %d failed.",
		result.Processed, result.New, result.Updated, result.Failed)
	if result.Processed == 0 {
		result.Message = "No indicators found in import"
	}
	return result
}

func toExportRecord(ind *core.Indicator) exportRecord {
	rec := exportRecord{
		ID:         ind.ID,
		Value:      ind.Value,
		Type:       string(ind.Type),
		Confidence: string(ind.Confidence.Rating),
		Impact:     string(ind.Impact.Rating),
		BucketList: strings.Join(ind.BucketList, ","),
		Sources:    ind.SourceNames(),
		Created:    ind.Created,
		Modified:   ind.Modified,
	}
	if len(ind.Campaigns) > 0 {
		rec.Campaign = ind.Campaigns[0].Name
		rec.CampaignConfidence = string(ind.Campaigns[0].Confidence)
	}
	if n := len(ind.Actions); n > 0 {
		rec.Action = ind.Actions[n-1].ActionType
	}
	tickets := make([]string, 0, len(ind.Tickets))
	for _, t := range ind.Tickets {
		tickets = append(tickets, t.TicketNumber)
	}
	rec.Ticket = strings.Join(tickets, ",")
	return rec
}

// collectExport pages through every indicator matching filters
func collectExport(ctx context.Context, svc *service.IndicatorService, filters *core.IndicatorFilters) ([]exportRecord, error) {
	query := *filters
	query.Offset = 0
	query.Limit = core.MaxPageSize

	records := []exportRecord{}
	for {
		page, err := svc.ListIndicators(ctx, &query)
		if err != nil {
			return nil, err
		}
		for _, ind := range page.Records {
			records = append(records, toExportRecord(ind))
		}
		if len(page.Records) < query.Limit {
			return records, nil
		}
		query.Offset += query.Limit
	}
}

// writeExport writes indicators in format and returns how many were written
func writeExport(ctx context.Context, svc *service.IndicatorService, w io.Writer,
	filters *core.IndicatorFilters, format string) (int, error) {
	if format == formatCSV {
		counter := &lineCounter{w: w}
		if err := svc.ExportCSV(ctx, counter, filters); err != nil {
			return 0, fmt.Errorf("failed to export indicators: %w", err)
		}
		// header row
		return counter.lines - 1, nil
	}

	records, err := collectExport(ctx, svc, filters)
	if err != nil {
		return 0, fmt.Errorf("failed to export indicators: %w", err)
	}
	if format == formatYAML {
		err = outputAsYAML(w, records)
	} else {
		err = outputAsJSON(w, records)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(records), nil
}

// lineCounter counts newline-terminated rows passing through to w
type lineCounter struct {
	w     io.Writer
	lines int
}

func (c *lineCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.lines += strings.Count(string(p[:n]), "\n")
	return n, err
}
