package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/metrics"
	"github.com/0x3a/crits/storage"
)

// Upload modes for HandleCSV
const (
	ModeFile = "file"
	ModeText = "ti"
)

// MaxUploadBytes caps the size of a CSV or pasted text upload
const MaxUploadBytes = 16 << 20

// CSVHeader is the column layout shared by uploads and exports
var CSVHeader = []string{
	"Indicator", "Type", "Campaign", "Campaign Confidence",
	"Confidence", "Impact", "Bucket List", "Ticket", "Action",
}

// SingleRequest is one indicator submission, from the upload form or a CSV row
type SingleRequest struct {
	Value              string
	Type               core.IndicatorType
	Source             string
	Method             string
	Reference          string
	Campaign           string
	CampaignConfidence core.CampaignConfidence
	Confidence         core.RatingValue
	Impact             core.RatingValue
	BucketList         string
	Ticket             string
	Action             string
	AddDomain          bool
}

// UploadResult is the outcome of a single indicator submission
type UploadResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	ObjectID string `json:"objectid,omitempty"`
	IsNew    bool   `json:"is_new_indicator"`
}

// BulkRequest carries the attribution applied to every row of an upload
type BulkRequest struct {
	Source    string
	Method    string
	Reference string
	Mode      string
	AddDomain bool
}

// BulkResult summarizes a CSV or text upload
type BulkResult struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	New       int      `json:"new"`
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	Failures  []string `json:"failures,omitempty"`
}

// =============================================================================
// Single indicator
// =============================================================================

func (s *IndicatorService) validateSingle(ctx context.Context, req *SingleRequest) error {
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		return invalidf("Source is required")
	}
	if !req.Type.IsValid() {
		return invalidf("Invalid indicator type: %s", req.Type)
	}
	if err := core.ValidateIndicatorValue(req.Type, req.Value); err != nil {
		return invalidf("Invalid %s value: %v", req.Type, err)
	}
	req.Campaign = strings.TrimSpace(req.Campaign)
	if req.Campaign != "" {
		if req.CampaignConfidence == "" {
			req.CampaignConfidence = core.CampaignConfidenceLow
		}
		if !req.CampaignConfidence.IsValid() {
			return invalidf("Invalid campaign confidence: %s", req.CampaignConfidence)
		}
	}
	if req.Confidence != "" && !req.Confidence.IsValid() {
		return invalidf("Invalid confidence: %s", req.Confidence)
	}
	if req.Impact != "" && !req.Impact.IsValid() {
		return invalidf("Invalid impact: %s", req.Impact)
	}
	req.Action = strings.TrimSpace(req.Action)
	if req.Action != "" {
		if err := s.checkActionType(ctx, req.Action); err != nil {
			return err
		}
	}
	return nil
}

// applySingle merges the submission's attribution into an indicator
func applySingle(ind *core.Indicator, req *SingleRequest, analyst string) {
	now := core.Now()
	ind.AddSource(req.Source, core.SourceInstance{
		Method:    strings.TrimSpace(req.Method),
		Reference: strings.TrimSpace(req.Reference),
		Date:      now,
		Analyst:   analyst,
	})
	if req.Campaign != "" {
		ind.AddCampaign(core.CampaignRef{
			Name:       req.Campaign,
			Confidence: req.CampaignConfidence,
			Analyst:    analyst,
			Date:       now,
		})
	}
	ind.AddBuckets(req.BucketList)
	for _, t := range strings.Split(req.Ticket, ",") {
		ind.AddTicket(t, analyst)
	}
	if req.Confidence != "" {
		_ = ind.SetRating(core.RatingKindConfidence, req.Confidence, analyst)
	}
	if req.Impact != "" {
		_ = ind.SetRating(core.RatingKindImpact, req.Impact, analyst)
	}
	if req.Action != "" {
		ind.Actions = append(ind.Actions, core.Action{
			ActionType: req.Action,
			BeginDate:  now,
			Active:     core.ActiveOn,
			Analyst:    analyst,
			Date:       uniqueDate(now, ind.FindAction),
		})
	}
}

// HandleSingle creates an indicator or merges the submission into the
// existing indicator with the same type and value
func (s *IndicatorService) HandleSingle(ctx context.Context, req SingleRequest, analyst string) UploadResult {
	result := s.handleSingle(ctx, &req, analyst)
	metrics.RecordUpload("single", result.Success)
	return result
}

func (s *IndicatorService) handleSingle(ctx context.Context, req *SingleRequest, analyst string) UploadResult {
	if err := s.validateSingle(ctx, req); err != nil {
		return UploadResult{Message: s.failureMessage("add indicator", err)}
	}

	normalized := core.NormalizeIndicatorValue(req.Type, req.Value)

	// A concurrent create of the same (type, value) surfaces as a duplicate;
	// the second pass then merges into the winner.
	var (
		ind   *core.Indicator
		isNew bool
		err   error
	)
	for attempt := 0; attempt < 2; attempt++ {
		ind, isNew, err = s.upsert(ctx, req, normalized, analyst)
		if !errors.Is(err, storage.ErrDuplicateIndicator) {
			break
		}
	}
	if err != nil {
		return UploadResult{Message: s.failureMessage("add indicator", err)}
	}

	if req.AddDomain {
		if err := s.relateDerivedObject(ctx, ind, req.Source, analyst); err != nil {
			s.logger.Warnw("Failed to relate derived object", "indicator_id", ind.ID, "error", err)
		}
	}

	msg := "Indicator added successfully!"
	if !isNew {
		msg = "Updated existing Indicator"
	}
	return UploadResult{Success: true, Message: msg, ObjectID: ind.ID, IsNew: isNew}
}

func (s *IndicatorService) upsert(ctx context.Context, req *SingleRequest, normalized, analyst string) (*core.Indicator, bool, error) {
	existing, err := s.store.FindIndicator(ctx, req.Type, core.LowerValue(normalized))
	switch {
	case err == nil:
		applySingle(existing, req, analyst)
		if err := s.store.UpdateIndicator(ctx, existing); err != nil {
			if errors.Is(err, storage.ErrConflict) {
				metrics.UpdateConflicts.Inc()
			}
			return nil, false, err
		}
		s.logger.Infow("Merged into existing indicator", "indicator_id", existing.ID, "analyst", analyst)
		return existing, false, nil
	case !errors.Is(err, storage.ErrIndicatorNotFound):
		return nil, false, err
	}

	ind := core.NewIndicator(req.Type, normalized, analyst)
	applySingle(ind, req, analyst)
	if err := s.store.CreateIndicator(ctx, ind); err != nil {
		return nil, false, err
	}
	return ind, true, nil
}

// derivedObject names the top-level object an indicator implies, if any
func derivedObject(ind *core.Indicator) (core.TLOType, string, bool) {
	switch ind.Type {
	case core.IndicatorTypeDomain:
		return core.TLODomain, ind.Value, true
	case core.IndicatorTypeIPv4, core.IndicatorTypeIPv6:
		return core.TLOIP, ind.Value, true
	case core.IndicatorTypeURI:
		u, err := url.Parse(ind.Value)
		if err != nil || u.Hostname() == "" {
			return "", "", false
		}
		host := strings.ToLower(u.Hostname())
		if core.DetectIPType(host) != "" {
			return core.TLOIP, host, true
		}
		return core.TLODomain, host, true
	}
	return "", "", false
}

// relateDerivedObject finds or creates the domain or IP object an indicator
// implies and links the two
func (s *IndicatorService) relateDerivedObject(ctx context.Context, ind *core.Indicator, source, analyst string) error {
	objType, value, found := derivedObject(ind)
	if !found {
		return nil
	}
	obj, err := s.findOrCreateObject(ctx, objType, value, source, analyst)
	if err != nil {
		return err
	}
	return s.relate(ctx, core.TLOIndicator, ind.ID, ind.Value, obj.Type, obj.ID, obj.Value, analyst)
}

func (s *IndicatorService) findOrCreateObject(ctx context.Context, objType core.TLOType, value, source, analyst string) (*core.Object, error) {
	obj, err := s.store.FindObject(ctx, objType, value)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, storage.ErrObjectNotFound) {
		return nil, err
	}
	obj = core.NewObject(objType, value, analyst)
	if source != "" {
		obj.Sources = append(obj.Sources, core.Source{
			Name:      source,
			Instances: []core.SourceInstance{{Date: obj.Created, Analyst: analyst}},
		})
	}
	if err := s.store.CreateObject(ctx, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// relate stores both directions of a Related_To link
func (s *IndicatorService) relate(ctx context.Context, leftType core.TLOType, leftID, leftValue string,
	rightType core.TLOType, rightID, rightValue, analyst string) error {
	forward := core.Relationship{
		LeftType:   leftType,
		LeftID:     leftID,
		RightType:  rightType,
		RightID:    rightID,
		RightValue: rightValue,
		RelType:    core.RelatedTo,
		Analyst:    analyst,
		Date:       core.Now(),
	}
	if err := s.store.CreateRelationship(ctx, &forward); err != nil {
		return err
	}
	reverse := forward.Reverse(leftValue)
	return s.store.CreateRelationship(ctx, &reverse)
}

// =============================================================================
// CSV and pasted text
// =============================================================================

// detectDelimiter picks tab when the header line contains one
func detectDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.Contains(line, "\t") {
			return '\t'
		}
		return ','
	}
	return ','
}

// HandleCSV ingests a header-led CSV (mode file) or pasted text (mode ti)
// and runs every row through the single indicator path
func (s *IndicatorService) HandleCSV(ctx context.Context, r io.Reader, req BulkRequest, analyst string) BulkResult {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return BulkResult{Message: fmt.Sprintf("Failed to read upload: %v", err)}
	}
	if len(data) > MaxUploadBytes {
		return BulkResult{Message: fmt.Sprintf("Upload exceeds %d bytes", MaxUploadBytes)}
	}
	if strings.TrimSpace(req.Source) == "" {
		return BulkResult{Message: "Source is required"}
	}

	label := "csv"
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	if req.Mode == ModeText {
		label = "text"
		reader.Comma = detectDelimiter(data)
	}

	header, err := reader.Read()
	if err != nil {
		return BulkResult{Message: "Upload is empty or has no header row"}
	}
	// Spreadsheet exports often lead with a UTF-8 byte order mark
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"indicator", "type"} {
		if _, ok := columns[required]; !ok {
			return BulkResult{Message: fmt.Sprintf("Header row is missing the %q column", required)}
		}
	}

	result := BulkResult{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				result.Failed++
				result.Failures = append(result.Failures, fmt.Sprintf("Line %d: %v", perr.Line, perr.Err))
				continue
			}
			result.Message = fmt.Sprintf("Failed to read upload: %v", err)
			return result
		}
		line, _ := reader.FieldPos(0)

		get := func(col string) string {
			i, ok := columns[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}

		row := SingleRequest{
			Value:              get("indicator"),
			Type:               core.IndicatorType(get("type")),
			Source:             req.Source,
			Method:             req.Method,
			Reference:          req.Reference,
			Campaign:           get("campaign"),
			CampaignConfidence: core.CampaignConfidence(strings.ToLower(get("campaign confidence"))),
			Confidence:         core.RatingValue(strings.ToLower(get("confidence"))),
			Impact:             core.RatingValue(strings.ToLower(get("impact"))),
			BucketList:         get("bucket list"),
			Ticket:             get("ticket"),
			Action:             get("action"),
			AddDomain:          req.AddDomain,
		}

		result.Processed++
		single := s.handleSingle(ctx, &row, analyst)
		metrics.RecordUpload(label, single.Success)
		switch {
		case !single.Success:
			result.Failed++
			result.Failures = append(result.Failures, fmt.Sprintf("Line %d: %s", line, single.Message))
		case single.IsNew:
			result.New++
		default:
			result.Updated++
		}
	}

	result.Success = result.New+result.Updated > 0
	result.Message = fmt.Sprintf("Processed %d indicators: %d new, %d updated, %d failed.",
		result.Processed, result.New, result.Updated, result.Failed)
	if result.Processed == 0 {
		result.Message = "No indicators found in upload"
	}
	s.logger.Infow("Indicator upload processed",
		"mode", label,
		"processed", result.Processed,
		"new", result.New,
		"updated", result.Updated,
		"failed", result.Failed,
		"analyst", analyst)
	return result
}
