// Package projection maintains the in-memory dashboard views. Each view
// holds one store subscription, keeps the latest version of every
// matching listing, and re-sorts on every change so consumers never poll.
package projection

import (
	"context"
	"sort"
	"sync"

	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/metrics"
	"github.com/quebracell/backend/internal/store"
)

type entry struct {
	l   listing.Listing
	seq int
}

// View is one live dashboard projection: the operator view covers every
// listing, an owner view only that owner's. The subscription is torn
// down when the context passed to New is cancelled.
type View struct {
	mu    sync.RWMutex
	byID  map[string]entry
	seq   int
	query store.Query

	notify chan struct{}
	done   chan struct{}
}

// NewAdminView projects every listing, newest first.
func NewAdminView(ctx context.Context, st store.Store) (*View, error) {
	return New(ctx, st, store.Query{OrderByCreatedDesc: true})
}

// NewOwnerView projects a single owner's listings. The underlying query
// does not guarantee order, so the view re-sorts on every update.
func NewOwnerView(ctx context.Context, st store.Store, ownerID string) (*View, error) {
	return New(ctx, st, store.Query{OwnerID: ownerID})
}

// New subscribes before priming so no change can fall between the
// snapshot read and the first event; events buffered during priming are
// newer and overwrite the primed entries.
func New(ctx context.Context, st store.Store, q store.Query) (*View, error) {
	v := &View{
		byID:   make(map[string]entry),
		query:  q,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	feed, err := st.Subscribe(ctx, q)
	if err != nil {
		return nil, err
	}

	current, err := st.List(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, l := range current {
		v.upsert(l)
	}

	go v.run(feed)
	return v, nil
}

func (v *View) run(feed <-chan store.Event) {
	defer close(v.done)
	for ev := range feed {
		v.apply(ev)
		select {
		case v.notify <- struct{}{}:
		default:
		}
	}
}

// apply folds one change event into the view. A modified event for an
// unknown id inserts it: creation and first amendment can arrive in the
// same burst in either order, and the latest version always wins.
func (v *View) apply(ev store.Event) {
	switch ev.Type {
	case store.EventAdded, store.EventModified:
		if ev.Listing == nil {
			return
		}
		v.mu.Lock()
		v.upsert(*ev.Listing)
		v.mu.Unlock()
	case store.EventRemoved:
		v.mu.Lock()
		delete(v.byID, ev.ID)
		v.mu.Unlock()
	}
	v.updateGauge()
}

func (v *View) upsert(l listing.Listing) {
	e, ok := v.byID[l.ID]
	if !ok {
		v.seq++
		e = entry{seq: v.seq}
	}
	e.l = l
	v.byID[l.ID] = e
}

// Snapshot returns the current listings ordered by creation time
// descending. Ties keep their arrival order. The slice is a copy.
func (v *View) Snapshot() []listing.Listing {
	v.mu.RLock()
	entries := make([]entry, 0, len(v.byID))
	for _, e := range v.byID {
		entries = append(entries, e)
	}
	v.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].l.CreatedAt.Equal(entries[j].l.CreatedAt) {
			return entries[i].seq < entries[j].seq
		}
		return entries[i].l.CreatedAt.After(entries[j].l.CreatedAt)
	})

	out := make([]listing.Listing, len(entries))
	for i, e := range entries {
		out[i] = e.l
	}
	return out
}

// Updates signals after each applied change, coalescing bursts. The
// channel never blocks the feed.
func (v *View) Updates() <-chan struct{} {
	return v.notify
}

// Done is closed once the underlying subscription ends.
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Len returns the number of listings currently projected.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.byID)
}

func (v *View) updateGauge() {
	if v.query.OwnerID != "" {
		return
	}
	metrics.ProjectionListings.Set(float64(v.Len()))
}
