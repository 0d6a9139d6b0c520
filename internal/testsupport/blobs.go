package testsupport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// StoredObject is one object held by MemoryBlobStore.
type StoredObject struct {
	Data        []byte
	ContentType string
}

// MemoryBlobStore is an in-memory blob store with injectable failures.
type MemoryBlobStore struct {
	mu        sync.Mutex
	objects   map[string]StoredObject
	putErr    func(key string) error
	deleteErr error
	deleted   []string
	copies    int
}

// NewMemoryBlobStore returns an empty store.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string]StoredObject)}
}

// FailPutsMatching makes Put fail for keys containing substr.
func (m *MemoryBlobStore) FailPutsMatching(substr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putErr = func(key string) error {
		if strings.Contains(key, substr) {
			return fmt.Errorf("put %s: simulated failure", key)
		}
		return nil
	}
}

// FailDeletes makes every Delete fail.
func (m *MemoryBlobStore) FailDeletes() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = errors.New("delete: simulated failure")
}

// Seed stores an object directly.
func (m *MemoryBlobStore) Seed(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = StoredObject{Data: append([]byte(nil), data...)}
}

// Put implements blobstore.Store.
func (m *MemoryBlobStore) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	putErr := m.putErr
	m.mu.Unlock()
	if putErr != nil {
		if err := putErr(key); err != nil {
			return err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = StoredObject{Data: data, ContentType: contentType}
	return nil
}

// Delete implements blobstore.Store.
func (m *MemoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// Copy implements blobstore.Copier.
func (m *MemoryBlobStore) Copy(_ context.Context, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[srcKey]
	if !ok {
		return fmt.Errorf("copy %s: no such object", srcKey)
	}
	m.objects[dstKey] = obj
	m.copies++
	return nil
}

// PresignGet implements blobstore.Presigner.
func (m *MemoryBlobStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "memory://" + key + "?signed=1", nil
}

// URL implements blobstore.Store.
func (m *MemoryBlobStore) URL(key string) string {
	return "https://blobs.test/" + key
}

// Object returns the stored object for key.
func (m *MemoryBlobStore) Object(key string) (StoredObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists stored keys in sorted order.
func (m *MemoryBlobStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Deleted lists keys passed to successful Delete calls.
func (m *MemoryBlobStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Copies reports how many server-side copies were made.
func (m *MemoryBlobStore) Copies() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copies
}
