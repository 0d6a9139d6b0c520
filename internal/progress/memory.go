package progress

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Memory keeps progress in process. It backs the API when Redis is not
// configured and serves as a recorder in tests.
type Memory struct {
	mu     sync.Mutex
	now    func() time.Time
	fields map[int64]map[string]string
}

// NewMemory returns an empty in-process tracker.
func NewMemory() *Memory {
	return &Memory{now: time.Now, fields: make(map[int64]map[string]string)}
}

func (m *Memory) Job(_ context.Context, videoID int64, jobID string, state State, stage string) error {
	m.set(videoID, map[string]string{
		fieldJobID: jobID,
		fieldState: string(state),
		fieldStage: stage,
	}, jobID)
	return nil
}

func (m *Memory) Subtask(_ context.Context, videoID int64, name string, state State, detail string) error {
	values := map[string]string{subtaskPrefix + name: string(state)}
	if state == StateFailed && detail != "" {
		values[errorPrefix+name] = detail
	}
	m.set(videoID, values, "")
	return nil
}

func (m *Memory) Get(_ context.Context, videoID int64) (Snapshot, error) {
	m.mu.Lock()
	fields := maps.Clone(m.fields[videoID])
	m.mu.Unlock()
	return decode(videoID, fields)
}

// set merges values into the video's fields. A jobID different from the
// stored one drops everything left by the previous job.
func (m *Memory) set(videoID int64, values map[string]string, jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.fields[videoID]
	if current == nil || (jobID != "" && current[fieldJobID] != jobID) {
		current = make(map[string]string)
		m.fields[videoID] = current
	}
	maps.Copy(current, values)
	current[fieldUpdatedAt] = m.now().UTC().Format(time.RFC3339Nano)
}
