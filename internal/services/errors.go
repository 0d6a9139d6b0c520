package services

import (
	"errors"
	"fmt"
	"strings"
)

// Markers tag every pipeline failure with its kind. Components wrap the
// underlying cause with exactly one of them via Wrap.
var (
	ErrFetch         = errors.New("fetch error")
	ErrProbe         = errors.New("probe error")
	ErrFfmpeg        = errors.New("ffmpeg error")
	ErrFileSystem    = errors.New("filesystem error")
	ErrUpload        = errors.New("upload error")
	ErrDatabase      = errors.New("database error")
	ErrRename        = errors.New("rename error")
	ErrTimeout       = errors.New("timeout")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Kind names the failure class of a pipeline error.
type Kind string

const (
	KindFetch         Kind = "fetch"
	KindProbe         Kind = "probe"
	KindFfmpeg        Kind = "ffmpeg"
	KindFileSystem    Kind = "filesystem"
	KindUpload        Kind = "upload"
	KindDatabase      Kind = "database"
	KindRename        Kind = "rename"
	KindTimeout       Kind = "timeout"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
	KindUnknown       Kind = "unknown"
)

// Ordered so that the most specific tag wins when an error carries several
// markers (a rename failure caused by an upload failure reports rename).
var kindMarkers = []struct {
	kind   Kind
	marker error
}{
	{KindRename, ErrRename},
	{KindTimeout, ErrTimeout},
	{KindFetch, ErrFetch},
	{KindProbe, ErrProbe},
	{KindFfmpeg, ErrFfmpeg},
	{KindFileSystem, ErrFileSystem},
	{KindUpload, ErrUpload},
	{KindDatabase, ErrDatabase},
	{KindValidation, ErrValidation},
	{KindConfiguration, ErrConfiguration},
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker. The marker should be one of the exported
// sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFileSystem
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf reports the failure class carried by err.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return KindUnknown
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "processing failure"
	}
	return strings.Join(parts, ": ")
}
