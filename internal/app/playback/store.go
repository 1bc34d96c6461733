package playback

import (
	"context"
	"sync"

	"github.com/osa030/tagbox/internal/domain/resume"
)

// BookmarkStore persists resume memory.
type BookmarkStore interface {
	// Load returns the saved bookmark, or nil when none is stored.
	Load(ctx context.Context) (*resume.Bookmark, error)
	Save(ctx context.Context, b resume.Bookmark) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the bookmark in process memory only.
type MemoryStore struct {
	mu sync.Mutex
	b  *resume.Bookmark
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (*resume.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.b == nil {
		return nil, nil
	}
	b := *m.b
	return &b, nil
}

func (m *MemoryStore) Save(ctx context.Context, b resume.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.b = &b
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.b = nil
	return nil
}
