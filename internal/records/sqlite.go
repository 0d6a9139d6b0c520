package records

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

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// sqliteSchemaVersion must be bumped whenever schema.sql changes.
const sqliteSchemaVersion = 1

// ErrSchemaMismatch indicates the database schema version differs from the
// one this build expects.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const videoColumns = "id, status, source_key, canonical_key, poster_key, storyboard_key, cue_index_key, trailer_key, duration_seconds, processing_completed_at, error_message, created_at, updated_at"

// SQLite is the single-host Store backed by modernc.org/sqlite.
type SQLite struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating when needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLite{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != sqliteSchemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to recreate it)",
			ErrSchemaMismatch, version, sqliteSchemaVersion, s.path)
	}
	return nil
}

func (s *SQLite) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", sqliteSchemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func (s *SQLite) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

// Create inserts a pending record for sourceKey.
func (s *SQLite) Create(ctx context.Context, sourceKey string) (*Video, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return nil, errors.New("create video: source key is required")
	}
	ts := s.timestamp()
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO videos (status, source_key, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			StatusPending, sourceKey, ts, ts,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a record by id.
func (s *SQLite) Get(ctx context.Context, id int64) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id)
	video, err := scanSQLiteVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// List returns records newest first.
func (s *SQLite) List(ctx context.Context, opts ListOptions) ([]*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	args := make([]any, 0, len(opts.Statuses)+1)
	if len(opts.Statuses) > 0 {
		query += ` WHERE status IN (` + placeholders(len(opts.Statuses)) + `)`
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanSQLiteVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// UpdateStatus applies a guarded status change.
func (s *SQLite) UpdateStatus(ctx context.Context, id int64, status Status, message string) error {
	sources, err := sourcesFor(status)
	if err != nil {
		return err
	}
	if status == StatusCompleted {
		return fmt.Errorf("%w: use Complete to finish video %d", ErrInvalidTransition, id)
	}
	args := []any{status, nullableString(message), s.timestamp(), id}
	for _, src := range sources {
		args = append(args, src)
	}
	return s.guardedUpdate(ctx, id, status,
		`UPDATE videos SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status IN (`+placeholders(len(sources))+`)`,
		args...)
}

// Complete writes the terminal success state in one statement.
func (s *SQLite) Complete(ctx context.Context, id int64, c Completion) error {
	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = s.now()
	}
	return s.guardedUpdate(ctx, id, StatusCompleted,
		`UPDATE videos
         SET status = ?, source_key = ?, canonical_key = ?, poster_key = ?, storyboard_key = ?,
             cue_index_key = ?, trailer_key = ?, duration_seconds = ?, processing_completed_at = ?,
             error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, c.CanonicalKey, c.CanonicalKey, c.PosterKey, c.StoryboardKey,
		c.CueIndexKey, c.TrailerKey, c.DurationSeconds, completedAt.UTC().Format(time.RFC3339Nano),
		s.timestamp(), id, StatusProcessing,
	)
}

func (s *SQLite) guardedUpdate(ctx context.Context, id int64, target Status, query string, args ...any) error {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update video %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return transitionError(id, current.Status, target)
}

func scanSQLiteVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		video        Video
		status       string
		canonical    sql.NullString
		poster       sql.NullString
		storyboard   sql.NullString
		cueIndex     sql.NullString
		trailer      sql.NullString
		duration     sql.NullInt64
		completedRaw sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&video.ID, &status, &video.SourceKey, &canonical, &poster, &storyboard, &cueIndex,
		&trailer, &duration, &completedRaw, &errorMessage, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	video.Status = Status(status)
	video.CanonicalKey = canonical.String
	video.PosterKey = poster.String
	video.StoryboardKey = storyboard.String
	video.CueIndexKey = cueIndex.String
	video.TrailerKey = trailer.String
	video.ErrorMessage = errorMessage.String
	if duration.Valid {
		d := duration.Int64
		video.DurationSeconds = &d
	}
	if completedRaw.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, completedRaw.String); err == nil {
			video.ProcessingCompletedAt = &ts
		}
	}
	video.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdRaw)
	video.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedRaw)
	return &video, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
