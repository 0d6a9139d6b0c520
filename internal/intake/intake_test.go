package intake

import (
	"context"
	"errors"
	"sync"
	"testing"

	"postroll/internal/logging"
	"postroll/internal/pipeline"
	"postroll/internal/services"
)

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeue = true, requeue
	return nil
}

type fakeRunner struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	err  error
	hook func(ctx context.Context)
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Job, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.hook != nil {
		f.hook(ctx)
	}
	return &pipeline.Job{VideoID: req.VideoID}, f.err
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want pipeline.Request
		err  error
	}{
		{
			name: "full message",
			body: `{"video_id": 12, "file_key": "uploads/a.mov", "source_url": "https://cdn.test/a.mov"}`,
			want: pipeline.Request{VideoID: 12, SourceKey: "uploads/a.mov", SourceURL: "https://cdn.test/a.mov"},
		},
		{
			name: "source url optional",
			body: `{"video_id": 3, "file_key": "b.mp4"}`,
			want: pipeline.Request{VideoID: 3, SourceKey: "b.mp4"},
		},
		{name: "not json", body: `video 12`, err: services.ErrValidation},
		{name: "missing key", body: `{"video_id": 12}`, err: services.ErrValidation},
		{name: "string id", body: `{"video_id": "12", "file_key": "a"}`, err: services.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.body))
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHandleMalformedIsDropped(t *testing.T) {
	runner := &fakeRunner{}
	ack := &fakeAck{}
	handle(context.Background(), runner, logging.NewNop(), []byte(`{"video_id":`), ack)
	if !ack.nacked || ack.requeue || ack.acked {
		t.Fatalf("expected nack without requeue, got %+v", ack)
	}
	if len(runner.reqs) != 0 {
		t.Fatal("expected runner not to be called")
	}
}

func TestHandleAcksTerminalOutcomes(t *testing.T) {
	for _, runErr := range []error{nil, services.Wrap(services.ErrFfmpeg, "trailer", "clip", "x", nil)} {
		runner := &fakeRunner{err: runErr}
		ack := &fakeAck{}
		handle(context.Background(), runner, logging.NewNop(), []byte(`{"video_id":5,"file_key":"k"}`), ack)
		if !ack.acked || ack.nacked {
			t.Fatalf("expected ack for run error %v, got %+v", runErr, ack)
		}
		if len(runner.reqs) != 1 || runner.reqs[0].VideoID != 5 {
			t.Fatalf("unexpected runner calls %+v", runner.reqs)
		}
	}
}

func TestHandleRequeuesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{err: context.Canceled, hook: func(context.Context) { cancel() }}
	ack := &fakeAck{}
	handle(ctx, runner, logging.NewNop(), []byte(`{"video_id":5,"file_key":"k"}`), ack)
	if !ack.nacked || !ack.requeue {
		t.Fatalf("expected requeue on shutdown, got %+v", ack)
	}
}
