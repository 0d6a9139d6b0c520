package api

import (
	"postroll/internal/deps"
	"postroll/internal/preflight"
	"postroll/internal/records"
)

// URLFunc maps a blob key to its retrieval URL.
type URLFunc func(key string) string

// FromVideo converts a video record to its API representation.
func FromVideo(v *records.Video, url URLFunc) Video {
	if v == nil {
		return Video{}
	}
	dto := Video{
		ID:              v.ID,
		Status:          string(v.Status),
		SourceKey:       v.SourceKey,
		Canonical:       artifactRef(v.CanonicalKey, url),
		Poster:          artifactRef(v.PosterKey, url),
		Storyboard:      artifactRef(v.StoryboardKey, url),
		CueIndex:        artifactRef(v.CueIndexKey, url),
		Trailer:         artifactRef(v.TrailerKey, url),
		DurationSeconds: v.DurationSeconds,
		ErrorMessage:    v.ErrorMessage,
	}
	if v.ProcessingCompletedAt != nil {
		dto.ProcessingCompletedAt = v.ProcessingCompletedAt.UTC().Format(dateTimeFormat)
	}
	if !v.CreatedAt.IsZero() {
		dto.CreatedAt = v.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !v.UpdatedAt.IsZero() {
		dto.UpdatedAt = v.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromVideos converts a slice of records into API DTOs.
func FromVideos(videos []*records.Video, url URLFunc) []Video {
	out := make([]Video, 0, len(videos))
	for _, v := range videos {
		out = append(out, FromVideo(v, url))
	}
	return out
}

func artifactRef(key string, url URLFunc) *Artifact {
	if key == "" {
		return nil
	}
	ref := &Artifact{Key: key}
	if url != nil {
		ref.URL = url(key)
	}
	return ref
}

// FromDependencies converts dependency statuses.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}
