package testsupport

import (
	"context"
	"testing"

	"postroll/internal/config"
	"postroll/internal/records"
)

// MustOpenRecords opens the SQLite record store for tests and registers cleanup.
func MustOpenRecords(t testing.TB, cfg *config.Config) *records.SQLite {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := records.OpenSQLite(context.Background(), cfg.SQLitePath())
	if err != nil {
		t.Fatalf("records.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewVideo creates a pending video record.
func NewVideo(t testing.TB, store records.Store, sourceKey string) *records.Video {
	t.Helper()

	video, err := store.Create(context.Background(), sourceKey)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return video
}
