package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/starford/onepage/internal/models"
)

type memEntry struct {
	key     string
	doc     models.Document
	expires time.Time
}

// Memory is an in-process TTL cache with least-recently-used eviction once
// MaxEntries is reached.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	order *list.List // front = most recently used
	index map[string]*list.Element
}

// NewMemory returns an empty cache. maxEntries <= 0 means unbounded.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		order:      list.New(),
		index:      make(map[string]*list.Element),
	}
}

// Get returns a copy of the live entry for slug.
func (m *Memory) Get(_ context.Context, slug string) (models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.index[Key(slug)]
	if !ok {
		return models.Document{}, ErrMiss
	}
	e := el.Value.(*memEntry)
	if !m.now().Before(e.expires) {
		m.removeUnsafe(el)
		return models.Document{}, ErrMiss
	}
	m.order.MoveToFront(el)
	return e.doc.Clone(), nil
}

// Set stores doc under its slug for one TTL.
func (m *Memory) Set(_ context.Context, doc models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Key(doc.Slug)
	entry := &memEntry{key: key, doc: doc.Clone(), expires: m.now().Add(m.ttl)}
	if el, ok := m.index[key]; ok {
		el.Value = entry
		m.order.MoveToFront(el)
		return nil
	}
	if m.maxEntries > 0 && m.order.Len() >= m.maxEntries {
		if back := m.order.Back(); back != nil {
			m.removeUnsafe(back)
		}
	}
	m.index[key] = m.order.PushFront(entry)
	return nil
}

// Invalidate drops the entry for slug.
func (m *Memory) Invalidate(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.index[Key(slug)]; ok {
		m.removeUnsafe(el)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) removeUnsafe(el *list.Element) {
	m.order.Remove(el)
	delete(m.index, el.Value.(*memEntry).key)
}
