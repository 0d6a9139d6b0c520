package api

import (
	"postroll/internal/progress"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Artifact is a stored object reference.
type Artifact struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Video describes a video record in a transport-friendly format.
type Video struct {
	ID                    int64     `json:"id"`
	Status                string    `json:"status"`
	SourceKey             string    `json:"sourceKey"`
	Canonical             *Artifact `json:"canonical,omitempty"`
	Poster                *Artifact `json:"poster,omitempty"`
	Storyboard            *Artifact `json:"storyboard,omitempty"`
	CueIndex              *Artifact `json:"cueIndex,omitempty"`
	Trailer               *Artifact `json:"trailer,omitempty"`
	DurationSeconds       *int64    `json:"durationSeconds,omitempty"`
	ProcessingCompletedAt string    `json:"processingCompletedAt,omitempty"`
	ErrorMessage          string    `json:"errorMessage,omitempty"`
	CreatedAt             string    `json:"createdAt,omitempty"`
	UpdatedAt             string    `json:"updatedAt,omitempty"`
}

// VideoResponse wraps a single video.
type VideoResponse struct {
	Video Video `json:"video"`
}

// VideoListResponse wraps a collection of videos.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}

// JobAccepted acknowledges an asynchronous run.
type JobAccepted struct {
	VideoID int64  `json:"videoId"`
	Status  string `json:"status"`
}

// ProgressResponse wraps a progress snapshot.
type ProgressResponse struct {
	Progress progress.Snapshot `json:"progress"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse aggregates runtime readiness for API consumers.
type HealthResponse struct {
	Status       string             `json:"status"`
	PID          int                `json:"pid"`
	LockFilePath string             `json:"lockFilePath,omitempty"`
	Workers      int                `json:"workers"`
	ActiveJobs   int                `json:"activeJobs"`
	Checks       []CheckResult      `json:"checks"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
