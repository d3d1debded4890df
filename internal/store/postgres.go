package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/repository"
)

// ListingRepository is the database access PgStore needs.
type ListingRepository interface {
	Create(ctx context.Context, row *repository.ListingRow) error
	GetByID(ctx context.Context, id string) (*repository.ListingRow, error)
	UpdateFields(ctx context.Context, id string, cols map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*repository.ListingRow, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]*repository.ListingRow, error)
}

// PgStore persists listings in postgres and feeds the realtime hub after
// every successful write. A single process owns all writes, so the
// in-process hub is the authoritative change feed.
type PgStore struct {
	repo ListingRepository
	hub  *Hub
	now  func() time.Time
}

func NewPgStore(repo ListingRepository) *PgStore {
	return &PgStore{repo: repo, hub: NewHub(), now: time.Now}
}

func (s *PgStore) Insert(ctx context.Context, l *listing.Listing) (string, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now().UTC()
	}
	l.UpdatedAt = l.CreatedAt

	if err := s.repo.Create(ctx, toRow(l)); err != nil {
		return "", wrapStoreErr(err)
	}

	cp := *l
	s.hub.Publish(Event{Type: EventAdded, ID: l.ID, Listing: &cp})
	return l.ID, nil
}

func (s *PgStore) Update(ctx context.Context, id string, fields FieldSet) error {
	cols := make(map[string]interface{})
	if fields.Status != nil {
		cols["status"] = string(*fields.Status)
	}
	if fields.QuotedValue != nil {
		cols["quoted_value"] = *fields.QuotedValue
	}
	if fields.Deadline != nil {
		cols["payment_deadline"] = *fields.Deadline
	}
	if fields.CounterOffer != nil {
		cols["counter_offer"] = *fields.CounterOffer
	}

	if err := s.repo.UpdateFields(ctx, id, cols); err != nil {
		return wrapStoreErr(err)
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		// The write landed; the caller must not see an error, but the
		// Modified event is lost until the next write.
		zap.L().Warn("listing re-read after update failed, change event skipped",
			zap.String("listing_id", id), zap.Error(err))
		return nil
	}
	s.hub.Publish(Event{Type: EventModified, ID: id, Listing: fromRow(row)})
	return nil
}

func (s *PgStore) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapStoreErr(err)
	}
	s.hub.Publish(Event{Type: EventRemoved, ID: id})
	return nil
}

func (s *PgStore) GetByID(ctx context.Context, id string) (*listing.Listing, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return fromRow(row), nil
}

func (s *PgStore) List(ctx context.Context, q Query) ([]listing.Listing, error) {
	var (
		rows []*repository.ListingRow
		err  error
	)
	if q.OwnerID != "" {
		rows, err = s.repo.GetByOwnerID(ctx, q.OwnerID)
	} else {
		rows, err = s.repo.GetAll(ctx)
	}
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	out := make([]listing.Listing, len(rows))
	for i, row := range rows {
		out[i] = *fromRow(row)
	}
	return out, nil
}

func (s *PgStore) Subscribe(ctx context.Context, q Query) (<-chan Event, error) {
	return s.hub.Subscribe(ctx, q), nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, repository.ErrObjectNotFound) {
		return listing.ErrNotFound
	}
	return fmt.Errorf("%w: %v", listing.ErrStoreUnavailable, err)
}

func toRow(l *listing.Listing) *repository.ListingRow {
	row := &repository.ListingRow{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		OwnerEmail:   l.OwnerEmail,
		Model:        l.Model,
		Defect:       l.Defect,
		Neighborhood: l.Neighborhood,
		WaterDamage:  l.WaterDamage,
		SignsOfLife:  l.SignsOfLife,
		PhotoFront:   l.PhotoFront,
		PhotoBack:    l.PhotoBack,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	if l.QuotedValue != "" {
		row.QuotedValue = &l.QuotedValue
	}
	if l.Deadline != "" {
		row.Deadline = &l.Deadline
	}
	if l.CounterOffer != "" {
		row.CounterOffer = &l.CounterOffer
	}
	return row
}

func fromRow(row *repository.ListingRow) *listing.Listing {
	l := &listing.Listing{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		OwnerEmail:   row.OwnerEmail,
		Model:        row.Model,
		Defect:       row.Defect,
		Neighborhood: row.Neighborhood,
		WaterDamage:  row.WaterDamage,
		SignsOfLife:  row.SignsOfLife,
		PhotoFront:   row.PhotoFront,
		PhotoBack:    row.PhotoBack,
		Status:       listing.Status(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if row.QuotedValue != nil {
		l.QuotedValue = *row.QuotedValue
	}
	if row.Deadline != nil {
		l.Deadline = *row.Deadline
	}
	if row.CounterOffer != nil {
		l.CounterOffer = *row.CounterOffer
	}
	return l
}

var _ Store = (*PgStore)(nil)
