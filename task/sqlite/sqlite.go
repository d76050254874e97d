// Package sqlite implements task.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/supbro-dev/Wagner-agent/task"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// Store implements task.Store backed by SQLite. Deletion is soft: rows keep
// their data but become invisible to every query.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at dbPath and applies
// pending migrations. WAL mode is enabled for read concurrency.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating task store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration.
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

const recordColumns = `id, business_key, name, target, query_param, data_operation, data_format,
	invoke_times, executed_at, is_deleted, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*task.Record, error) {
	var rec task.Record
	var target, queryParam, dataOperation, dataFormat string
	var executedAt sql.NullTime
	var deleted int
	err := row.Scan(
		&rec.ID, &rec.BusinessKey, &rec.Name,
		&target, &queryParam, &dataOperation, &dataFormat,
		&rec.InvokeTimes, &executedAt, &deleted, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Detail = task.Detail{}
	if target != "" {
		rec.Detail.Target = task.Ptr(target)
	}
	if queryParam != "" {
		rec.Detail.QueryParam = task.Ptr(queryParam)
	}
	if dataOperation != "" {
		rec.Detail.DataOperation = task.Ptr(dataOperation)
	}
	if dataFormat != "" {
		rec.Detail.DataFormat = task.Ptr(dataFormat)
	}
	if executedAt.Valid {
		rec.ExecutedAt = executedAt.Time
	}
	rec.Deleted = deleted != 0
	return &rec, nil
}

func detailColumn(f *string) string {
	if f == nil {
		return ""
	}
	return *f
}

// FindByID returns the live record with the given id.
func (s *Store) FindByID(ctx context.Context, id int64) (*task.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM query_data_task WHERE id = ? AND is_deleted = 0", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding task by id: %w", err)
	}
	return rec, nil
}

// FindByName returns the live record with the given name within the business key.
func (s *Store) FindByName(ctx context.Context, businessKey, name string) (*task.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM query_data_task WHERE business_key = ? AND name = ? AND is_deleted = 0",
		businessKey, name)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding task by name: %w", err)
	}
	return rec, nil
}

// Save inserts a new record (ID zero) or updates the existing one's name and
// detail. Saving the same task repeatedly never creates duplicates.
func (s *Store) Save(ctx context.Context, rec *task.Record) (int64, error) {
	now := time.Now().UTC()
	if rec.ID == 0 {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO query_data_task
				(business_key, name, target, query_param, data_operation, data_format, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.BusinessKey, rec.Name,
			detailColumn(rec.Detail.Target), detailColumn(rec.Detail.QueryParam),
			detailColumn(rec.Detail.DataOperation), detailColumn(rec.Detail.DataFormat),
			now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading inserted task id: %w", err)
		}
		rec.ID = id
		rec.CreatedAt = now
		rec.UpdatedAt = now
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE query_data_task
		SET name = ?, target = ?, query_param = ?, data_operation = ?, data_format = ?, updated_at = ?
		WHERE id = ? AND business_key = ? AND is_deleted = 0`,
		rec.Name,
		detailColumn(rec.Detail.Target), detailColumn(rec.Detail.QueryParam),
		detailColumn(rec.Detail.DataOperation), detailColumn(rec.Detail.DataFormat),
		now, rec.ID, rec.BusinessKey,
	)
	if err != nil {
		return 0, fmt.Errorf("updating task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking task update: %w", err)
	}
	if affected == 0 {
		return 0, task.ErrNotFound
	}
	rec.UpdatedAt = now
	return rec.ID, nil
}

// SoftDelete marks the record deleted without removing the row.
func (s *Store) SoftDelete(ctx context.Context, id int64, businessKey string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE query_data_task SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND business_key = ? AND is_deleted = 0`,
		time.Now().UTC(), id, businessKey,
	)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking task delete: %w", err)
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// BumpInvokeCount increments the execution counter and stamps the last
// execution time.
func (s *Store) BumpInvokeCount(ctx context.Context, id int64, businessKey string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE query_data_task SET invoke_times = invoke_times + 1, executed_at = ?, updated_at = ?
		WHERE id = ? AND business_key = ? AND is_deleted = 0`,
		time.Now().UTC(), time.Now().UTC(), id, businessKey,
	)
	if err != nil {
		return fmt.Errorf("bumping task invoke count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking task invoke bump: %w", err)
	}
	if affected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// RecentlyUsed returns up to limit live records ordered by most recent execution.
func (s *Store) RecentlyUsed(ctx context.Context, businessKey string, limit int) ([]task.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM query_data_task
		WHERE business_key = ? AND is_deleted = 0 AND executed_at IS NOT NULL
		ORDER BY executed_at DESC LIMIT ?`,
		businessKey, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent tasks: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// FrequentlyUsed returns up to limit live records ordered by execution count,
// excluding the given ids.
func (s *Store) FrequentlyUsed(ctx context.Context, businessKey string, excludeIDs []int64, limit int) ([]task.Record, error) {
	query := `
		SELECT ` + recordColumns + ` FROM query_data_task
		WHERE business_key = ? AND is_deleted = 0 AND invoke_times > 0`
	args := []any{businessKey}
	if len(excludeIDs) > 0 {
		placeholders := strings.Repeat("?,", len(excludeIDs))
		query += " AND id NOT IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY invoke_times DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing frequent tasks: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]task.Record, error) {
	var records []task.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}
	return records, nil
}
