package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the SQLite database connections for indicator storage.
// Reads and writes use separate pools so WAL readers never queue behind the
// single writer.
type SQLite struct {
	WriteDB *sql.DB // MaxOpenConns=1, WAL allows a single writer
	ReadDB  *sql.DB // query_only, concurrent readers
	Path    string
	Logger  *zap.SugaredLogger
}

// sqliteDSN builds a connection string that applies the pragmas on every
// pooled connection, not just the first one
func sqliteDSN(dbPath string, readOnly bool) string {
	base := dbPath
	if dbPath == ":memory:" {
		base = "file::memory:?cache=shared"
	}

	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
	}
	if readOnly {
		pragmas = append(pragmas, "_pragma=query_only(1)")
	}

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + strings.Join(pragmas, "&")
}

// verifySQLiteConnection checks that the DSN pragmas took effect
func verifySQLiteConnection(db *sql.DB, logger *zap.SugaredLogger, dbPath string, poolType string) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	var fkEnabled int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to verify foreign keys: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys not enabled (got: %d, expected: 1)", fkEnabled)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	// In-memory databases report "memory"
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got: %s, expected: wal)", journalMode)
	}

	logger.Infow("SQLite pool verified", "pool", poolType, "journal_mode", journalMode)
	return nil
}

// NewSQLite creates a new SQLite connection and ensures the schema
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	if err := validateDatabasePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writeDB, err := sql.Open("sqlite", sqliteDSN(dbPath, false))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write database: %w", err)
	}
	writeDB.SetMaxOpenConns(1)
	writeDB.SetMaxIdleConns(1)
	writeDB.SetConnMaxLifetime(0) // in-memory databases vanish with their last connection
	writeDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := verifySQLiteConnection(writeDB, logger, dbPath, "write"); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write connection: %w", err)
	}

	s := &SQLite{
		WriteDB: writeDB,
		Path:    dbPath,
		Logger:  logger,
	}

	// Tables must exist before the query_only pool opens
	if err := s.createTables(); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	readDB, err := sql.Open("sqlite", sqliteDSN(dbPath, true))
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read database: %w", err)
	}
	readDB.SetMaxOpenConns(10)
	readDB.SetMaxIdleConns(5)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	readDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := verifySQLiteConnection(readDB, logger, dbPath, "read"); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to configure read connection: %w", err)
	}
	s.ReadDB = readDB

	logger.Infow("SQLite database initialized", "path", dbPath)
	return s, nil
}

// WithTransaction executes fn in a write transaction, rolling back on error
// or panic
func (s *SQLite) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.WriteDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction (original error: %w, rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// createTables creates all necessary tables
func (s *SQLite) createTables() error {
	schema := `
	-- Indicators: full record in doc, denormalized columns for filtering
	CREATE TABLE IF NOT EXISTS indicators (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		lower_value TEXT NOT NULL,
		sources TEXT NOT NULL DEFAULT ',', -- ",name1,name2,"
		campaigns TEXT NOT NULL DEFAULT ',',
		bucket_list TEXT NOT NULL DEFAULT ',',
		tickets TEXT NOT NULL DEFAULT ',',
		doc TEXT NOT NULL, -- JSON
		version INTEGER NOT NULL DEFAULT 0,
		created INTEGER NOT NULL, -- unix millis
		modified INTEGER NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_indicators_type_lower_value ON indicators(type, lower_value);
	CREATE INDEX IF NOT EXISTS idx_indicators_created ON indicators(created DESC);
	CREATE INDEX IF NOT EXISTS idx_indicators_modified ON indicators(modified DESC);

	-- Action type choice list
	CREATE TABLE IF NOT EXISTS action_types (
		name TEXT PRIMARY KEY,
		active INTEGER NOT NULL DEFAULT 1,
		analyst TEXT NOT NULL DEFAULT '',
		created INTEGER NOT NULL
	);

	-- Non-indicator top-level objects
	CREATE TABLE IF NOT EXISTS objects (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		doc TEXT NOT NULL,
		created INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_objects_type_value ON objects(type, value);

	-- Relationship edges, one row per direction
	CREATE TABLE IF NOT EXISTS relationships (
		left_type TEXT NOT NULL,
		left_id TEXT NOT NULL,
		right_type TEXT NOT NULL,
		right_id TEXT NOT NULL,
		right_value TEXT NOT NULL DEFAULT '',
		rel_type TEXT NOT NULL,
		analyst TEXT NOT NULL DEFAULT '',
		date INTEGER NOT NULL,
		PRIMARY KEY (left_type, left_id, right_type, right_id, rel_type)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_right ON relationships(right_type, right_id);
	`

	if _, err := s.WriteDB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// HealthCheck pings both pools
func (s *SQLite) HealthCheck(ctx context.Context) error {
	if err := s.WriteDB.PingContext(ctx); err != nil {
		return fmt.Errorf("write pool: %w", err)
	}
	if err := s.ReadDB.PingContext(ctx); err != nil {
		return fmt.Errorf("read pool: %w", err)
	}
	return nil
}

// Close closes both connection pools
func (s *SQLite) Close() error {
	var firstErr error
	if s.ReadDB != nil {
		if err := s.ReadDB.Close(); err != nil {
			firstErr = err
		}
	}
	if s.WriteDB != nil {
		if err := s.WriteDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// validateDatabasePath rejects paths that could escape the working
// directory or address device files. Temp directories are allowed for tests.
func validateDatabasePath(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if dbPath == ":memory:" {
		return nil
	}

	if len(dbPath) > 512 {
		return fmt.Errorf("database path exceeds maximum length of 512 characters")
	}

	if filepath.IsAbs(dbPath) && !strings.Contains(dbPath, os.TempDir()) {
		return fmt.Errorf("absolute paths not allowed: %s", dbPath)
	}

	if strings.Contains(dbPath, "..") {
		return fmt.Errorf("path traversal not allowed (..): %s", dbPath)
	}

	if strings.Contains(dbPath, "\x00") {
		return fmt.Errorf("null bytes not allowed in path")
	}

	base := filepath.Base(dbPath)
	reserved := []string{"CON", "PRN", "AUX", "NUL", "COM1", "COM2", "COM3", "COM4",
		"COM5", "COM6", "COM7", "COM8", "COM9", "LPT1", "LPT2", "LPT3", "LPT4",
		"LPT5", "LPT6", "LPT7", "LPT8", "LPT9"}

	baseUpper := strings.ToUpper(base)
	for _, r := range reserved {
		if baseUpper == r || strings.HasPrefix(baseUpper, r+".") {
			return fmt.Errorf("reserved name not allowed: %s", base)
		}
	}

	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if strings.Contains(absPath, os.TempDir()) {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	rel, err := filepath.Rel(wd, absPath)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(rel, "..") {
		return fmt.Errorf("path escapes working directory: %s resolves to %s", dbPath, absPath)
	}

	return nil
}
