package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/0x3a/crits/core"
)

// =============================================================================
// Top-level Objects
// =============================================================================

// CreateObject stores a non-indicator top-level object
func (s *SQLiteStore) CreateObject(ctx context.Context, obj *core.Object) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}

	_, err = s.sqlite.WriteDB.ExecContext(ctx,
		"INSERT INTO objects (id, type, value, doc, created) VALUES (?, ?, ?, ?, ?)",
		obj.ID, string(obj.Type), obj.Value, string(doc), obj.Created.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create object: %w", err)
	}

	s.logger.Infow("Object created", "object_id", obj.ID, "type", obj.Type)
	return nil
}

func scanObject(row *sql.Row) (*core.Object, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	var obj core.Object
	if err := safeUnmarshalJSON(doc, &obj); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}
	return &obj, nil
}

// GetObject retrieves an object by type and ID
func (s *SQLiteStore) GetObject(ctx context.Context, objType core.TLOType, id string) (*core.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.sqlite.ReadDB.QueryRowContext(ctx, "SELECT doc FROM objects WHERE type = ? AND id = ?", string(objType), id)
	return scanObject(row)
}

// FindObject retrieves the oldest object of a type with the given value
func (s *SQLiteStore) FindObject(ctx context.Context, objType core.TLOType, value string) (*core.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.sqlite.ReadDB.QueryRowContext(ctx,
		"SELECT doc FROM objects WHERE type = ? AND value = ? ORDER BY created ASC LIMIT 1",
		string(objType), value)
	return scanObject(row)
}

// =============================================================================
// Relationships
// =============================================================================

// CreateRelationship stores one edge. Re-adding an existing edge is a no-op.
func (s *SQLiteStore) CreateRelationship(ctx context.Context, rel *core.Relationship) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.sqlite.WriteDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO relationships (
			left_type, left_id, right_type, right_id, right_value, rel_type, analyst, date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rel.LeftType), rel.LeftID, string(rel.RightType), rel.RightID,
		rel.RightValue, string(rel.RelType), rel.Analyst, rel.Date.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// GetRelationships lists the edges leaving an object, oldest first
func (s *SQLiteStore) GetRelationships(ctx context.Context, objType core.TLOType, id string) ([]core.Relationship, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, `
		SELECT left_type, left_id, right_type, right_id, right_value, rel_type, analyst, date
		FROM relationships WHERE left_type = ? AND left_id = ?
		ORDER BY date ASC, right_type ASC, right_id ASC`,
		string(objType), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]core.Relationship, 0)
	for rows.Next() {
		var r core.Relationship
		var leftType, rightType, relType string
		var date int64
		if err := rows.Scan(&leftType, &r.LeftID, &rightType, &r.RightID, &r.RightValue, &relType, &r.Analyst, &date); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		r.LeftType = core.TLOType(leftType)
		r.RightType = core.TLOType(rightType)
		r.RelType = core.RelationshipType(relType)
		r.Date = time.UnixMilli(date).UTC()
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

// DeleteRelationships removes every edge in either direction touching the object
func (s *SQLiteStore) DeleteRelationships(ctx context.Context, objType core.TLOType, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.sqlite.WriteDB.ExecContext(ctx,
		"DELETE FROM relationships WHERE (left_type = ? AND left_id = ?) OR (right_type = ? AND right_id = ?)",
		string(objType), id, string(objType), id)
	if err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}
	return nil
}
