package storage

import (
	"context"

	"github.com/0x3a/crits/core"
)

// IndicatorStorage defines persistence for indicator records
type IndicatorStorage interface {
	CreateIndicator(ctx context.Context, ind *core.Indicator) error
	GetIndicator(ctx context.Context, id string) (*core.Indicator, error)
	// FindIndicator looks an indicator up by its duplicate-detection key
	FindIndicator(ctx context.Context, indType core.IndicatorType, lowerValue string) (*core.Indicator, error)
	// UpdateIndicator replaces the record if ind.Version is still current and
	// bumps the version. A stale version yields ErrConflict.
	UpdateIndicator(ctx context.Context, ind *core.Indicator) error
	DeleteIndicator(ctx context.Context, id string) error
	ListIndicators(ctx context.Context, filters *core.IndicatorFilters) ([]*core.Indicator, int64, error)
}

// ActionTypeStorage defines persistence for the action type choice list
type ActionTypeStorage interface {
	CreateActionType(ctx context.Context, at *core.ActionType) error
	ListActionTypes(ctx context.Context, activeOnly bool) ([]core.ActionType, error)
}

// ObjectStorage defines persistence for non-indicator top-level objects
type ObjectStorage interface {
	CreateObject(ctx context.Context, obj *core.Object) error
	GetObject(ctx context.Context, objType core.TLOType, id string) (*core.Object, error)
	FindObject(ctx context.Context, objType core.TLOType, value string) (*core.Object, error)
}

// RelationshipStorage defines persistence for relationship edges. Each edge
// is one direction; callers store both.
type RelationshipStorage interface {
	CreateRelationship(ctx context.Context, rel *core.Relationship) error
	GetRelationships(ctx context.Context, objType core.TLOType, id string) ([]core.Relationship, error)
	// DeleteRelationships removes every edge touching the object
	DeleteRelationships(ctx context.Context, objType core.TLOType, id string) error
}

// Store is a complete storage backend
type Store interface {
	IndicatorStorage
	ActionTypeStorage
	ObjectStorage
	RelationshipStorage
	HealthCheck(ctx context.Context) error
	Close() error
}
