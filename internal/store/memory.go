package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quebracell/backend/internal/listing"
)

// MemoryStore is a complete in-process Store. It backs tests and the
// single-node deployment mode where no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]listing.Listing
	hub      *Hub
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listings: make(map[string]listing.Listing),
		hub:      NewHub(),
		now:      time.Now,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, l *listing.Listing) (string, error) {
	s.mu.Lock()
	cp := *l
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	s.listings[cp.ID] = cp
	s.mu.Unlock()

	*l = cp
	s.hub.Publish(Event{Type: EventAdded, ID: cp.ID, Listing: &cp})
	return cp.ID, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fields FieldSet) error {
	s.mu.Lock()
	cur, ok := s.listings[id]
	if !ok {
		s.mu.Unlock()
		return listing.ErrNotFound
	}
	fields.Apply(&cur)
	cur.UpdatedAt = s.now().UTC()
	s.listings[id] = cur
	s.mu.Unlock()

	s.hub.Publish(Event{Type: EventModified, ID: id, Listing: &cur})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.listings[id]
	delete(s.listings, id)
	s.mu.Unlock()

	if !ok {
		return listing.ErrNotFound
	}
	s.hub.Publish(Event{Type: EventRemoved, ID: id})
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.listings[id]
	if !ok {
		return nil, listing.ErrNotFound
	}
	cp := l
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, q Query) ([]listing.Listing, error) {
	s.mu.RLock()
	out := make([]listing.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if q.Matches(&l) {
			out = append(out, l)
		}
	}
	s.mu.RUnlock()

	if q.OrderByCreatedDesc {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return out, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, q Query) (<-chan Event, error) {
	return s.hub.Subscribe(ctx, q), nil
}

var _ Store = (*MemoryStore)(nil)
