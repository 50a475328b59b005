package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/metrics"
	"github.com/0x3a/crits/storage"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// ErrPermissionDenied is returned when a non-admin analyst attempts a
// removal
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError carries a message safe to show to the submitting analyst
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Result is the outcome of a mutating operation, shaped for JSON responses
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(msg string) Result { return Result{Success: true, Message: msg} }

func fail(msg string) Result { return Result{Success: false, Message: msg} }

// IndicatorDetails is everything the detail page renders
type IndicatorDetails struct {
	Indicator     *core.Indicator     `json:"indicator"`
	Relationships []core.Relationship `json:"relationships"`
	ActionTypes   []core.ActionType   `json:"action_types"`
	TypeChoices   []core.TypeChoice   `json:"type_choices"`
	Ratings       []core.RatingValue  `json:"ratings"`
	Admin         bool                `json:"admin"`
}

// IndicatorPage is one page of a filtered listing
type IndicatorPage struct {
	Records []*core.Indicator `json:"records"`
	Total   int64             `json:"total"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
}

// IndicatorService implements the indicator business logic between the HTTP
// handlers and the storage backend.
//
// Every mutation is a read-modify-write guarded by the indicator version;
// a concurrent writer makes the losing request fail with a conflict message
// rather than overwrite the winner.
type IndicatorService struct {
	store     storage.Store
	sanitizer *bluemonday.Policy
	logger    *zap.SugaredLogger
}

// NewIndicatorService creates a new IndicatorService instance.
// Panics if store or logger is nil.
func NewIndicatorService(store storage.Store, logger *zap.SugaredLogger) *IndicatorService {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &IndicatorService{
		store:     store,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// sanitize strips markup from analyst-entered free text
func (s *IndicatorService) sanitize(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}

// failureMessage maps an error to the message shown to the analyst.
// Unexpected errors are logged and replaced with a generic message.
func (s *IndicatorService) failureMessage(op string, err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, storage.ErrIndicatorNotFound):
		return "Could not find Indicator"
	case errors.Is(err, storage.ErrObjectNotFound):
		return "Could not find object"
	case errors.Is(err, storage.ErrDuplicateIndicator):
		return "An Indicator with that type and value already exists"
	case errors.Is(err, storage.ErrConflict):
		return "Indicator was modified by another request, please retry"
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to do that"
	}
	s.logger.Errorw("Indicator operation failed", "operation", op, "error", err)
	return fmt.Sprintf("Failed to %s", op)
}

// mutate loads an indicator, applies fn and writes it back under the
// version check
func (s *IndicatorService) mutate(ctx context.Context, id string, fn func(ind *core.Indicator) error) (*core.Indicator, error) {
	ind, err := s.store.GetIndicator(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ind); err != nil {
		return nil, err
	}
	if err := s.store.UpdateIndicator(ctx, ind); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			metrics.UpdateConflicts.Inc()
			s.logger.Warnw("Indicator update lost a version race", "indicator_id", id)
		}
		return nil, err
	}
	return ind, nil
}

// =============================================================================
// Reads
// =============================================================================

// GetIndicatorDetails loads an indicator with its relationships and the
// choice lists its detail page needs
func (s *IndicatorService) GetIndicatorDetails(ctx context.Context, id string, analyst core.Analyst) (*IndicatorDetails, error) {
	ind, err := s.store.GetIndicator(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicator %s: %w", id, err)
	}
	rels, err := s.store.GetRelationships(ctx, core.TLOIndicator, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load relationships: %w", err)
	}
	actionTypes, err := s.store.ListActionTypes(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load action types: %w", err)
	}
	return &IndicatorDetails{
		Indicator:     ind,
		Relationships: rels,
		ActionTypes:   actionTypes,
		TypeChoices:   core.IndicatorTypeChoices(),
		Ratings:       core.AllRatings,
		Admin:         analyst.IsAdmin(),
	}, nil
}

// ListIndicators returns one page of indicators matching the filters
func (s *IndicatorService) ListIndicators(ctx context.Context, filters *core.IndicatorFilters) (*IndicatorPage, error) {
	if filters == nil {
		filters = &core.IndicatorFilters{}
	}
	filters.Normalize()
	records, total, err := s.store.ListIndicators(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list indicators: %w", err)
	}
	return &IndicatorPage{Records: records, Total: total, Offset: filters.Offset, Limit: filters.Limit}, nil
}

// IndicatorTypeChoices returns the type options for the upload form
func (s *IndicatorService) IndicatorTypeChoices() []core.TypeChoice {
	return core.IndicatorTypeChoices()
}

// ListActionTypes returns the action type choice list
func (s *IndicatorService) ListActionTypes(ctx context.Context, activeOnly bool) ([]core.ActionType, error) {
	return s.store.ListActionTypes(ctx, activeOnly)
}

// =============================================================================
// Indicator-level writes
// =============================================================================

// AddActionType adds a named option to the action form
func (s *IndicatorService) AddActionType(ctx context.Context, name, analyst string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return fail("Action name is required")
	}
	at := &core.ActionType{Name: name, Active: true, Analyst: analyst, Created: core.Now()}
	if err := s.store.CreateActionType(ctx, at); err != nil {
		if errors.Is(err, storage.ErrDuplicateActionType) {
			return fail(fmt.Sprintf("Action %q already exists", name))
		}
		return fail(s.failureMessage("add action type", err))
	}
	s.logger.Infow("Action type added", "name", name, "analyst", analyst)
	return ok("Indicator Action added successfully!")
}

// RemoveIndicator deletes an indicator and every relationship touching it.
// Only admins may remove.
func (s *IndicatorService) RemoveIndicator(ctx context.Context, id string, analyst core.Analyst) error {
	if !analyst.IsAdmin() {
		return ErrPermissionDenied
	}
	if err := s.store.DeleteIndicator(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteRelationships(ctx, core.TLOIndicator, id); err != nil {
		return fmt.Errorf("indicator removed but relationships remain: %w", err)
	}
	s.logger.Infow("Indicator removed", "indicator_id", id, "analyst", analyst.Username)
	return nil
}

// SetIndicatorType changes an indicator's type. The value must be valid for
// the new type and must not collide with an existing indicator.
func (s *IndicatorService) SetIndicatorType(ctx context.Context, id string, newType core.IndicatorType, analyst string) Result {
	if !newType.IsValid() {
		return fail(fmt.Sprintf("Invalid indicator type: %s", newType))
	}
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		if err := core.ValidateIndicatorValue(newType, ind.Value); err != nil {
			return invalidf("Value is not a valid %s: %v", newType, err)
		}
		normalized := core.NormalizeIndicatorValue(newType, ind.Value)
		existing, err := s.store.FindIndicator(ctx, newType, core.LowerValue(normalized))
		switch {
		case err == nil && existing.ID != ind.ID:
			return storage.ErrDuplicateIndicator
		case err != nil && !errors.Is(err, storage.ErrIndicatorNotFound):
			return err
		}
		ind.SetType(newType)
		return nil
	})
	if err != nil {
		return fail(s.failureMessage("update indicator type", err))
	}
	s.logger.Infow("Indicator type changed", "indicator_id", id, "type", newType, "analyst", analyst)
	return ok("")
}

// UpdateCI sets the confidence or impact rating
func (s *IndicatorService) UpdateCI(ctx context.Context, id string, kind core.RatingKind, value core.RatingValue, analyst string) Result {
	if !kind.IsValid() {
		return fail(fmt.Sprintf("Invalid rating kind: %s", kind))
	}
	if !value.IsValid() {
		return fail(fmt.Sprintf("Invalid %s value: %s", kind, value))
	}
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		return ind.SetRating(kind, value, analyst)
	})
	if err != nil {
		return fail(s.failureMessage("update "+string(kind), err))
	}
	return ok("")
}
