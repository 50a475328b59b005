package service

import (
	"context"
	"time"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/metrics"
)

// ActionResult is the outcome of an action add or update. Object is the
// stored entry so the caller can render its row.
type ActionResult struct {
	Result
	Object *core.Action `json:"object,omitempty"`
}

// ActivityResult is the outcome of an activity add or update
type ActivityResult struct {
	Result
	Object *core.Activity `json:"object,omitempty"`
}

// uniqueDate returns the first millisecond at or after t not already used as
// a key by taken
func uniqueDate(t time.Time, taken func(time.Time) int) time.Time {
	t = core.TruncateMillis(t)
	for taken(t) >= 0 {
		t = t.Add(time.Millisecond)
	}
	return t
}

func (s *IndicatorService) checkActionType(ctx context.Context, name string) error {
	if name == "" {
		return invalidf("Action type is required")
	}
	types, err := s.store.ListActionTypes(ctx, true)
	if err != nil {
		return err
	}
	for _, at := range types {
		if at.Name == name {
			return nil
		}
	}
	return invalidf("Invalid action type: %s", name)
}

func (s *IndicatorService) prepareAction(ctx context.Context, a *core.Action, analyst string) error {
	if err := s.checkActionType(ctx, a.ActionType); err != nil {
		return err
	}
	if a.Active == "" {
		a.Active = core.ActiveOn
	}
	if !a.Active.IsValid() {
		return invalidf("Invalid active state: %s", a.Active)
	}
	a.Reason = s.sanitize(a.Reason)
	a.Analyst = analyst
	return nil
}

// =============================================================================
// Actions
// =============================================================================

// AddAction appends an action stamped with the current time as its key
func (s *IndicatorService) AddAction(ctx context.Context, id string, a core.Action, analyst string) ActionResult {
	if err := s.prepareAction(ctx, &a, analyst); err != nil {
		return ActionResult{Result: fail(s.failureMessage("add action", err))}
	}
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		a.Date = uniqueDate(core.Now(), ind.FindAction)
		ind.Actions = append(ind.Actions, a)
		return nil
	})
	if err != nil {
		return ActionResult{Result: fail(s.failureMessage("add action", err))}
	}
	metrics.RecordSubRecordChange("action", "add")
	return ActionResult{Result: ok(""), Object: &a}
}

// UpdateAction replaces the action keyed by a.Date
func (s *IndicatorService) UpdateAction(ctx context.Context, id string, a core.Action, analyst string) ActionResult {
	if err := s.prepareAction(ctx, &a, analyst); err != nil {
		return ActionResult{Result: fail(s.failureMessage("update action", err))}
	}
	a.Date = core.TruncateMillis(a.Date)
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		if !ind.ReplaceAction(a) {
			return invalidf("Could not find action dated %s", core.FormatDate(a.Date))
		}
		return nil
	})
	if err != nil {
		return ActionResult{Result: fail(s.failureMessage("update action", err))}
	}
	metrics.RecordSubRecordChange("action", "update")
	return ActionResult{Result: ok(""), Object: &a}
}

// RemoveAction deletes the action keyed by date. Only admins may remove.
func (s *IndicatorService) RemoveAction(ctx context.Context, id string, date time.Time, analyst core.Analyst) Result {
	if !analyst.IsAdmin() {
		return fail(s.failureMessage("remove action", ErrPermissionDenied))
	}
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		if !ind.RemoveAction(date) {
			return invalidf("Could not find action dated %s", core.FormatDate(date))
		}
		return nil
	})
	if err != nil {
		return fail(s.failureMessage("remove action", err))
	}
	metrics.RecordSubRecordChange("action", "remove")
	return ok("")
}

// =============================================================================
// Activity
// =============================================================================

func (s *IndicatorService) prepareActivity(a *core.Activity, analyst string) error {
	a.Description = s.sanitize(a.Description)
	if a.Description == "" {
		return invalidf("Description is required")
	}
	a.Analyst = analyst
	return nil
}

// AddActivity appends an activity entry stamped with the current time
func (s *IndicatorService) AddActivity(ctx context.Context, id string, a core.Activity, analyst string) ActivityResult {
	if err := s.prepareActivity(&a, analyst); err != nil {
		return ActivityResult{Result: fail(err.Error())}
	}
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		a.Date = uniqueDate(core.Now(), ind.FindActivity)
		ind.Activity = append(ind.Activity, a)
		return nil
	})
	if err != nil {
		return ActivityResult{Result: fail(s.failureMessage("add activity", err))}
	}
	metrics.RecordSubRecordChange("activity", "add")
	return ActivityResult{Result: ok(""), Object: &a}
}

// UpdateActivity replaces the activity entry keyed by a.Date
func (s *IndicatorService) UpdateActivity(ctx context.Context, id string, a core.Activity, analyst string) ActivityResult {
	if err := s.prepareActivity(&a, analyst); err != nil {
		return ActivityResult{Result: fail(err.Error())}
	}
	a.Date = core.TruncateMillis(a.Date)
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		if !ind.ReplaceActivity(a) {
			return invalidf("Could not find activity dated %s", core.FormatDate(a.Date))
		}
		return nil
	})
	if err != nil {
		return ActivityResult{Result: fail(s.failureMessage("update activity", err))}
	}
	metrics.RecordSubRecordChange("activity", "update")
	return ActivityResult{Result: ok(""), Object: &a}
}

// RemoveActivity deletes the activity entry keyed by date. Only admins may
// remove.
func (s *IndicatorService) RemoveActivity(ctx context.Context, id string, date time.Time, analyst core.Analyst) Result {
	if !analyst.IsAdmin() {
		return fail(s.failureMessage("remove activity", ErrPermissionDenied))
	}
	_, err := s.mutate(ctx, id, func(ind *core.Indicator) error {
		if !ind.RemoveActivity(date) {
			return invalidf("Could not find activity dated %s", core.FormatDate(date))
		}
		return nil
	})
	if err != nil {
		return fail(s.failureMessage("remove activity", err))
	}
	metrics.RecordSubRecordChange("activity", "remove")
	return ok("")
}
