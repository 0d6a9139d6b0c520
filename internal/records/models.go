package records

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a video record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("video not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the record's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Video is the durable record of one uploaded video.
type Video struct {
	ID                    int64      `json:"id"`
	Status                Status     `json:"status"`
	SourceKey             string     `json:"source_key"`
	CanonicalKey          string     `json:"canonical_key,omitempty"`
	PosterKey             string     `json:"poster_key,omitempty"`
	StoryboardKey         string     `json:"storyboard_key,omitempty"`
	CueIndexKey           string     `json:"cue_index_key,omitempty"`
	TrailerKey            string     `json:"trailer_key,omitempty"`
	DurationSeconds       *int64     `json:"duration_seconds,omitempty"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at,omitempty"`
	ErrorMessage          string     `json:"error_message,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// HasArtifacts reports whether any artifact key is set.
func (v *Video) HasArtifacts() bool {
	return v.CanonicalKey != "" || v.PosterKey != "" || v.StoryboardKey != "" ||
		v.CueIndexKey != "" || v.TrailerKey != ""
}

// Completion carries everything written when a video finishes processing.
type Completion struct {
	CanonicalKey    string
	PosterKey       string
	StoryboardKey   string
	CueIndexKey     string
	TrailerKey      string
	DurationSeconds int64
	CompletedAt     time.Time
}

// ListOptions filters List results.
type ListOptions struct {
	Statuses []Status
	Limit    int
}

// Store is the video record persistence surface.
type Store interface {
	Create(ctx context.Context, sourceKey string) (*Video, error)
	Get(ctx context.Context, id int64) (*Video, error)
	List(ctx context.Context, opts ListOptions) ([]*Video, error)
	// UpdateStatus moves the record to processing or failed. message is
	// stored with failed and cleared otherwise.
	UpdateStatus(ctx context.Context, id int64, status Status, message string) error
	// Complete marks a processing record completed and writes every
	// artifact key atomically. SourceKey becomes the canonical key.
	Complete(ctx context.Context, id int64, c Completion) error
	Close() error
}
