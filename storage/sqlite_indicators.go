package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/0x3a/crits/core"

	"go.uber.org/zap"
)

// =============================================================================
// SQLite Indicator Storage Implementation
// =============================================================================

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	sqlite *SQLite
	logger *zap.SugaredLogger
}

// NewSQLiteStore creates a store backed by an initialized SQLite database
func NewSQLiteStore(sqlite *SQLite, logger *zap.SugaredLogger) *SQLiteStore {
	return &SQLiteStore{sqlite: sqlite, logger: logger}
}

// HealthCheck pings the database
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.sqlite.HealthCheck(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.sqlite.Close()
}

// =============================================================================
// JSON Size Limits
// =============================================================================

const (
	// Maximum size for a stored document
	maxJSONFieldSize = 4 << 20
)

// safeUnmarshalJSON unmarshals JSON with size validation
func safeUnmarshalJSON(data string, v interface{}) error {
	if len(data) > maxJSONFieldSize {
		return fmt.Errorf("JSON field exceeds maximum size (%d > %d bytes)", len(data), maxJSONFieldSize)
	}
	if data == "" || data == "null" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}

// =============================================================================
// Denormalized list columns
// =============================================================================

// listColumn stores names as ",a,b," so a single LIKE finds an exact member
func listColumn(names []string) string {
	var b strings.Builder
	b.WriteString(",")
	for _, n := range names {
		b.WriteString(strings.ReplaceAll(n, ",", " "))
		b.WriteString(",")
	}
	return b.String()
}

// likeEscape escapes LIKE wildcards; queries use ESCAPE '\'
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func memberPattern(name string) string {
	return "%," + likeEscape(strings.ReplaceAll(name, ",", " ")) + ",%"
}

func ticketNumbers(ind *core.Indicator) []string {
	out := make([]string, 0, len(ind.Tickets))
	for _, t := range ind.Tickets {
		out = append(out, t.TicketNumber)
	}
	return out
}

// =============================================================================
// Allowed Sort Fields (ORDER BY is never built from raw input)
// =============================================================================

var allowedIndicatorSortFields = map[string]string{
	"created":  "created",
	"modified": "modified",
	"value":    "lower_value",
	"type":     "type",
}

func sortClause(filters *core.IndicatorFilters) string {
	field, ok := allowedIndicatorSortFields[filters.SortBy]
	if !ok {
		field = "created"
	}
	order := "ASC"
	if filters.SortDesc {
		order = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", field, order)
}

// =============================================================================
// CRUD Operations
// =============================================================================

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateIndicator stores a new indicator
func (s *SQLiteStore) CreateIndicator(ctx context.Context, ind *core.Indicator) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := json.Marshal(ind)
	if err != nil {
		return fmt.Errorf("failed to marshal indicator: %w", err)
	}

	query := `
		INSERT INTO indicators (
			id, type, value, lower_value, sources, campaigns, bucket_list, tickets,
			doc, version, created, modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.sqlite.WriteDB.ExecContext(ctx, query,
		ind.ID, string(ind.Type), ind.Value, ind.LowerValue,
		listColumn(ind.SourceNames()), listColumn(ind.CampaignNames()),
		listColumn(ind.BucketList), listColumn(ticketNumbers(ind)),
		string(doc), ind.Version, ind.Created.UnixMilli(), ind.Modified.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIndicator
		}
		return fmt.Errorf("failed to create indicator: %w", err)
	}

	s.logger.Infow("Indicator created",
		"indicator_id", ind.ID,
		"type", ind.Type,
	)
	return nil
}

func (s *SQLiteStore) scanIndicator(row *sql.Row) (*core.Indicator, error) {
	var doc string
	var version int64
	if err := row.Scan(&doc, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIndicatorNotFound
		}
		return nil, fmt.Errorf("failed to get indicator: %w", err)
	}

	var ind core.Indicator
	if err := safeUnmarshalJSON(doc, &ind); err != nil {
		return nil, fmt.Errorf("failed to decode indicator: %w", err)
	}
	// The version column is authoritative
	ind.Version = version
	return &ind, nil
}

// GetIndicator retrieves an indicator by ID
func (s *SQLiteStore) GetIndicator(ctx context.Context, id string) (*core.Indicator, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.sqlite.ReadDB.QueryRowContext(ctx, "SELECT doc, version FROM indicators WHERE id = ?", id)
	return s.scanIndicator(row)
}

// FindIndicator finds an indicator by type and lowercased value
func (s *SQLiteStore) FindIndicator(ctx context.Context, indType core.IndicatorType, lowerValue string) (*core.Indicator, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.sqlite.ReadDB.QueryRowContext(ctx,
		"SELECT doc, version FROM indicators WHERE type = ? AND lower_value = ?",
		string(indType), lowerValue)
	return s.scanIndicator(row)
}

// UpdateIndicator replaces an indicator if its version is unchanged
func (s *SQLiteStore) UpdateIndicator(ctx context.Context, ind *core.Indicator) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	expected := ind.Version
	ind.Modified = core.Now()
	ind.Version = expected + 1

	doc, err := json.Marshal(ind)
	if err != nil {
		ind.Version = expected
		return fmt.Errorf("failed to marshal indicator: %w", err)
	}

	query := `
		UPDATE indicators SET
			type = ?, value = ?, lower_value = ?, sources = ?, campaigns = ?,
			bucket_list = ?, tickets = ?, doc = ?, version = ?, modified = ?
		WHERE id = ? AND version = ?
	`

	result, err := s.sqlite.WriteDB.ExecContext(ctx, query,
		string(ind.Type), ind.Value, ind.LowerValue,
		listColumn(ind.SourceNames()), listColumn(ind.CampaignNames()),
		listColumn(ind.BucketList), listColumn(ticketNumbers(ind)),
		string(doc), ind.Version, ind.Modified.UnixMilli(),
		ind.ID, expected,
	)
	if err != nil {
		ind.Version = expected
		if isUniqueViolation(err) {
			return ErrDuplicateIndicator
		}
		return fmt.Errorf("failed to update indicator: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		ind.Version = expected
		var exists int
		err := s.sqlite.WriteDB.QueryRowContext(ctx, "SELECT 1 FROM indicators WHERE id = ?", ind.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrIndicatorNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check indicator: %w", err)
		}
		return ErrConflict
	}

	s.logger.Infow("Indicator updated", "indicator_id", ind.ID, "version", ind.Version)
	return nil
}

// DeleteIndicator removes an indicator by ID
func (s *SQLiteStore) DeleteIndicator(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := s.sqlite.WriteDB.ExecContext(ctx, "DELETE FROM indicators WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete indicator: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrIndicatorNotFound
	}

	s.logger.Infow("Indicator deleted", "indicator_id", id)
	return nil
}

// =============================================================================
// Listing
// =============================================================================

// ListIndicators retrieves indicators with filtering and pagination
func (s *SQLiteStore) ListIndicators(ctx context.Context, filters *core.IndicatorFilters) ([]*core.Indicator, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if filters == nil {
		filters = &core.IndicatorFilters{}
	}
	filters.Normalize()

	var conditions []string
	var args []interface{}

	if filters.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filters.Type))
	}
	if filters.Value != "" {
		conditions = append(conditions, `lower_value LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscape(strings.ToLower(filters.Value))+"%")
	}
	if filters.Source != "" {
		conditions = append(conditions, `sources LIKE ? ESCAPE '\'`)
		args = append(args, memberPattern(filters.Source))
	}
	if filters.Campaign != "" {
		conditions = append(conditions, `campaigns LIKE ? ESCAPE '\'`)
		args = append(args, memberPattern(filters.Campaign))
	}
	if filters.BucketList != "" {
		conditions = append(conditions, `bucket_list LIKE ? ESCAPE '\'`)
		args = append(args, memberPattern(filters.BucketList))
	}
	if filters.Ticket != "" {
		conditions = append(conditions, `tickets LIKE ? ESCAPE '\'`)
		args = append(args, memberPattern(filters.Ticket))
	}
	if filters.Search != "" {
		pattern := "%" + likeEscape(strings.ToLower(filters.Search)) + "%"
		conditions = append(conditions, `(lower_value LIKE ? ESCAPE '\' OR lower(type) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM indicators %s", whereClause)
	if err := s.sqlite.ReadDB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count indicators: %w", err)
	}

	query := fmt.Sprintf("SELECT doc, version FROM indicators %s %s LIMIT ? OFFSET ?", whereClause, sortClause(filters))
	args = append(args, filters.Limit, filters.Offset)

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list indicators: %w", err)
	}
	defer rows.Close()

	indicators := make([]*core.Indicator, 0)
	for rows.Next() {
		var doc string
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			s.logger.Warnw("Failed to scan indicator row", "error", err)
			continue
		}
		var ind core.Indicator
		if err := safeUnmarshalJSON(doc, &ind); err != nil {
			s.logger.Warnw("Failed to decode indicator row", "error", err)
			continue
		}
		ind.Version = version
		indicators = append(indicators, &ind)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate indicators: %w", err)
	}

	return indicators, total, nil
}

// =============================================================================
// Action Types
// =============================================================================

// CreateActionType adds an action type option
func (s *SQLiteStore) CreateActionType(ctx context.Context, at *core.ActionType) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.sqlite.WriteDB.ExecContext(ctx,
		"INSERT INTO action_types (name, active, analyst, created) VALUES (?, ?, ?, ?)",
		at.Name, at.Active, at.Analyst, at.Created.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateActionType
		}
		return fmt.Errorf("failed to create action type: %w", err)
	}

	s.logger.Infow("Action type created", "name", at.Name, "analyst", at.Analyst)
	return nil
}

// ListActionTypes returns action types ordered by name
func (s *SQLiteStore) ListActionTypes(ctx context.Context, activeOnly bool) ([]core.ActionType, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := "SELECT name, active, analyst, created FROM action_types"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name ASC"

	rows, err := s.sqlite.ReadDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list action types: %w", err)
	}
	defer rows.Close()

	types := make([]core.ActionType, 0)
	for rows.Next() {
		var at core.ActionType
		var created int64
		if err := rows.Scan(&at.Name, &at.Active, &at.Analyst, &created); err != nil {
			return nil, fmt.Errorf("failed to scan action type: %w", err)
		}
		at.Created = time.UnixMilli(created).UTC()
		types = append(types, at)
	}
	return types, rows.Err()
}
