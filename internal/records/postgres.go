package records

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema_postgres.sql
var postgresSchema string

// Postgres is the shared-deployment Store backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects a pool to databaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int32) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(connectCtx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

// NewPostgres wraps an existing pool. The schema must already exist.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// Create inserts a pending record for sourceKey.
func (p *Postgres) Create(ctx context.Context, sourceKey string) (*Video, error) {
	sourceKey = strings.TrimSpace(sourceKey)
	if sourceKey == "" {
		return nil, errors.New("create video: source key is required")
	}
	query := `
INSERT INTO videos (status, source_key, created_at, updated_at)
VALUES ($1, $2, $3, $3)
RETURNING ` + videoColumns + `;
`
	video, err := scanPostgresVideo(p.pool.QueryRow(ctx, query, StatusPending, sourceKey, p.now().UTC()))
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

// Get fetches a record by id.
func (p *Postgres) Get(ctx context.Context, id int64) (*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1;`
	video, err := scanPostgresVideo(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// List returns records newest first.
func (p *Postgres) List(ctx context.Context, opts ListOptions) ([]*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos`
	var args []any
	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, s := range opts.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(` WHERE status = ANY($%d)`, len(args))
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanPostgresVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// UpdateStatus applies a guarded status change.
func (p *Postgres) UpdateStatus(ctx context.Context, id int64, status Status, message string) error {
	sources, err := sourcesFor(status)
	if err != nil {
		return err
	}
	if status == StatusCompleted {
		return fmt.Errorf("%w: use Complete to finish video %d", ErrInvalidTransition, id)
	}
	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}
	var errMsg *string
	if message != "" {
		errMsg = &message
	}
	query := `
UPDATE videos
SET status = $2,
    error_message = $3,
    updated_at = $4
WHERE id = $1 AND status = ANY($5);
`
	return p.guardedExec(ctx, id, status, query, id, status, errMsg, p.now().UTC(), from)
}

// Complete writes the terminal success state in one statement.
func (p *Postgres) Complete(ctx context.Context, id int64, c Completion) error {
	completedAt := c.CompletedAt
	if completedAt.IsZero() {
		completedAt = p.now()
	}
	query := `
UPDATE videos
SET status = $2,
    source_key = $3,
    canonical_key = $3,
    poster_key = $4,
    storyboard_key = $5,
    cue_index_key = $6,
    trailer_key = $7,
    duration_seconds = $8,
    processing_completed_at = $9,
    error_message = NULL,
    updated_at = $10
WHERE id = $1 AND status = $11;
`
	return p.guardedExec(ctx, id, StatusCompleted, query,
		id, StatusCompleted, c.CanonicalKey, c.PosterKey, c.StoryboardKey, c.CueIndexKey, c.TrailerKey,
		c.DurationSeconds, completedAt.UTC(), p.now().UTC(), StatusProcessing,
	)
}

func (p *Postgres) guardedExec(ctx context.Context, id int64, target Status, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update video %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	current, err := p.Get(ctx, id)
	if err != nil {
		return err
	}
	return transitionError(id, current.Status, target)
}

func scanPostgresVideo(row pgx.Row) (*Video, error) {
	var (
		video        Video
		status       string
		canonical    *string
		poster       *string
		storyboard   *string
		cueIndex     *string
		trailer      *string
		errorMessage *string
	)
	if err := row.Scan(
		&video.ID, &status, &video.SourceKey, &canonical, &poster, &storyboard, &cueIndex,
		&trailer, &video.DurationSeconds, &video.ProcessingCompletedAt, &errorMessage,
		&video.CreatedAt, &video.UpdatedAt,
	); err != nil {
		return nil, err
	}
	video.Status = Status(status)
	video.CanonicalKey = deref(canonical)
	video.PosterKey = deref(poster)
	video.StoryboardKey = deref(storyboard)
	video.CueIndexKey = deref(cueIndex)
	video.TrailerKey = deref(trailer)
	video.ErrorMessage = deref(errorMessage)
	return &video, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
