package taskrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"postroll/internal/services"
)

func TestRunAllAndWaitKeepsOrderAndOutputs(t *testing.T) {
	r := New(2, nil)
	boom := errors.New("boom")
	results := r.RunAllAndWait(context.Background(), []Task{
		{Name: "a", Run: func(context.Context) (any, error) { time.Sleep(20 * time.Millisecond); return "A", nil }},
		{Name: "b", Run: func(context.Context) (any, error) { return nil, boom }},
		{Name: "c", Run: func(context.Context) (any, error) { return 3, nil }},
	})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Name != "a" || results[0].Output != "A" || results[0].Err != nil {
		t.Fatalf("unexpected result a: %+v", results[0])
	}
	if results[1].Name != "b" || !errors.Is(results[1].Err, boom) {
		t.Fatalf("unexpected result b: %+v", results[1])
	}
	if results[2].Output != 3 {
		t.Fatalf("unexpected result c: %+v", results[2])
	}
}

func TestRunAllAndWaitBoundsConcurrency(t *testing.T) {
	r := New(2, nil)
	var active, peak atomic.Int32
	task := func(context.Context) (any, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		active.Add(-1)
		return nil, nil
	}
	tasks := make([]Task, 6)
	for i := range tasks {
		tasks[i] = Task{Name: "t", Run: task}
	}
	r.RunAllAndWait(context.Background(), tasks)
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", peak.Load())
	}
}

func TestPanicBecomesFailedResult(t *testing.T) {
	r := New(1, nil)
	results := r.RunAllAndWait(context.Background(), []Task{
		{Name: "explodes", Run: func(context.Context) (any, error) { panic("kaboom") }},
		{Name: "fine", Run: func(context.Context) (any, error) { return "ok", nil }},
	})
	if results[0].Err == nil {
		t.Fatal("expected panic to surface as an error")
	}
	if results[1].Err != nil || results[1].Output != "ok" {
		t.Fatalf("expected sibling to succeed: %+v", results[1])
	}
}

func TestSubtaskNameInContext(t *testing.T) {
	r := New(1, nil)
	results := r.RunAllAndWait(context.Background(), []Task{
		{Name: "poster", Run: func(ctx context.Context) (any, error) {
			name, _ := services.SubtaskFromContext(ctx)
			return name, nil
		}},
	})
	if results[0].Output != "poster" {
		t.Fatalf("expected subtask name in context, got %v", results[0].Output)
	}
}

func TestDeadlineMarksTimeout(t *testing.T) {
	r := New(1, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	slow := func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	results := r.RunAllAndWait(ctx, []Task{{Name: "first", Run: slow}, {Name: "second", Run: slow}})
	for _, res := range results {
		if !errors.Is(res.Err, services.ErrTimeout) {
			t.Fatalf("expected timeout for %s, got %v", res.Name, res.Err)
		}
	}
}

func TestDefaultSize(t *testing.T) {
	if New(0, nil).Size() < 1 {
		t.Fatal("expected at least one slot")
	}
}
