package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalFSPutCopyDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalFS(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	if err := store.Put(ctx, "videos/poster_1_10.jpg", strings.NewReader("jpeg"), 4, "image/jpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	path, _ := store.Path("videos/poster_1_10.jpg")
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("unexpected stored object %q err=%v", data, err)
	}

	if err := store.Copy(ctx, "videos/poster_1_10.jpg", "videos/copy.jpg"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	copied, _ := store.Path("videos/copy.jpg")
	if _, err := os.Stat(copied); err != nil {
		t.Fatalf("expected copy: %v", err)
	}

	if err := store.Delete(ctx, "videos/poster_1_10.jpg"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected object removed, stat err=%v", err)
	}
	if err := store.Delete(ctx, "videos/poster_1_10.jpg"); err != nil {
		t.Fatalf("Delete of missing object should succeed: %v", err)
	}
}

func TestLocalFSRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalFS(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	for _, key := range []string{"", "../outside", "a/../../b"} {
		err := store.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		if !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestLocalFSURLs(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalFS(root, "https://cdn.example.com/media/")
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	if got := store.URL("videos/a b.jpg"); got != "https://cdn.example.com/media/videos/a%20b.jpg" {
		t.Fatalf("unexpected public url %q", got)
	}
	presigned, err := store.PresignGet(context.Background(), "videos/in.mp4", 0)
	if err != nil {
		t.Fatalf("PresignGet: %v", err)
	}
	want := "file://" + filepath.ToSlash(filepath.Join(root, "videos", "in.mp4"))
	if presigned != want {
		t.Fatalf("unexpected presigned url %q want %q", presigned, want)
	}
}
