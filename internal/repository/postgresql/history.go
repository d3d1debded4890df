package postgresql

import (
	"context"

	"github.com/quebracell/backend/internal/db"
	"github.com/quebracell/backend/internal/repository"
)

type HistoryRepo struct {
	db db.DB
}

func NewHistoryRepo(db db.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) Create(ctx context.Context, entry *repository.StatusHistoryEntry) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO listing_status_history (
            listing_id, status, actor_id, changed_at
        ) VALUES ($1, $2, $3, $4)
    `, entry.ListingID, entry.Status, entry.ActorID, entry.ChangedAt)
	return err
}

func (r *HistoryRepo) GetByListingID(ctx context.Context, listingID string) ([]*repository.StatusHistoryEntry, error) {
	var entries []*repository.StatusHistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT * FROM listing_status_history
        WHERE listing_id = $1
        ORDER BY changed_at ASC
    `, listingID)
	return entries, err
}
