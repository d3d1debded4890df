// Package store defines the listing store contract: one document per
// device listing, partial field updates, and realtime change
// subscriptions consumed by the dashboard projections.
package store

import (
	"context"

	"github.com/quebracell/backend/internal/listing"
)

type EventType string

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)

// Event is one change pushed to a subscriber. Listing is nil for removed
// events; only the id survives a removal.
type Event struct {
	Type    EventType
	ID      string
	Listing *listing.Listing
}

// Query supports an equality filter on the owner and a descending sort on
// creation time; that is the whole query surface the views need.
type Query struct {
	OwnerID            string // empty matches every listing
	OrderByCreatedDesc bool
}

// Matches reports whether a listing satisfies the query filter.
func (q Query) Matches(l *listing.Listing) bool {
	return q.OwnerID == "" || l.OwnerID == q.OwnerID
}

// FieldSet is a partial update. Nil pointers leave the stored field
// untouched; every write is a blind field-set, no version token is used.
type FieldSet struct {
	Status       *listing.Status
	QuotedValue  *string
	Deadline     *string
	CounterOffer *string
}

// Apply copies the set fields onto l.
func (f FieldSet) Apply(l *listing.Listing) {
	if f.Status != nil {
		l.Status = *f.Status
	}
	if f.QuotedValue != nil {
		l.QuotedValue = *f.QuotedValue
	}
	if f.Deadline != nil {
		l.Deadline = *f.Deadline
	}
	if f.CounterOffer != nil {
		l.CounterOffer = *f.CounterOffer
	}
}

type Store interface {
	Insert(ctx context.Context, l *listing.Listing) (string, error)
	Update(ctx context.Context, id string, fields FieldSet) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*listing.Listing, error)
	List(ctx context.Context, q Query) ([]listing.Listing, error)

	// Subscribe returns a change feed filtered by q. The feed is closed
	// when ctx is cancelled; exactly one subscription per dashboard view.
	Subscribe(ctx context.Context, q Query) (<-chan Event, error)
}
