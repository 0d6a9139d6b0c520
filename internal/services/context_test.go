package services_test

import (
	"context"
	"testing"

	"postroll/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithVideoID(ctx, 42)
	ctx = services.WithJobID(ctx, "job-1")
	ctx = services.WithSubtask(ctx, "trailer")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.VideoIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected video id: %v %v", id, ok)
	}
	if job, ok := services.JobIDFromContext(ctx); !ok || job != "job-1" {
		t.Fatalf("unexpected job id: %v %v", job, ok)
	}
	if sub, ok := services.SubtaskFromContext(ctx); !ok || sub != "trailer" {
		t.Fatalf("unexpected subtask: %v %v", sub, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSubtask(ctx, "")
	ctx = services.WithJobID(ctx, "")
	if _, ok := services.SubtaskFromContext(ctx); ok {
		t.Fatal("expected no subtask value")
	}
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
	if _, ok := services.VideoIDFromContext(ctx); ok {
		t.Fatal("expected no video id value")
	}
}
