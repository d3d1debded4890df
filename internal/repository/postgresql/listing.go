package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"github.com/quebracell/backend/internal/db"
	"github.com/quebracell/backend/internal/repository"
)

type ListingRepo struct {
	db db.DB
}

func NewListingRepo(db db.DB) *ListingRepo {
	return &ListingRepo{db: db}
}

func (r *ListingRepo) Create(ctx context.Context, row *repository.ListingRow) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO listings (
            id, owner_id, owner_email, model, defect, neighborhood,
            water_damage, signs_of_life, photo_front_url, photo_back_url,
            status, quoted_value, payment_deadline, counter_offer,
            created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `, row.ID, row.OwnerID, row.OwnerEmail, row.Model, row.Defect, row.Neighborhood,
		row.WaterDamage, row.SignsOfLife, row.PhotoFront, row.PhotoBack,
		row.Status, row.QuotedValue, row.Deadline, row.CounterOffer,
		row.CreatedAt, row.UpdatedAt)
	return err
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (*repository.ListingRow, error) {
	var row repository.ListingRow
	err := r.db.Get(ctx, &row, "SELECT * FROM listings WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &row, nil
}

// UpdateFields applies a partial field set. Absent columns keep their
// stored value; this is the blind last-write-wins write the negotiation
// flow relies on.
func (r *ListingRepo) UpdateFields(ctx context.Context, id string, cols map[string]interface{}) error {
	if len(cols) == 0 {
		return nil
	}

	query := "UPDATE listings SET updated_at = now()"
	args := []interface{}{id}
	i := 2
	for col, val := range cols {
		query += fmt.Sprintf(", %s = $%d", col, i)
		args = append(args, val)
		i++
	}
	query += " WHERE id = $1"

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *ListingRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM listings WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *ListingRepo) GetAll(ctx context.Context) ([]*repository.ListingRow, error) {
	var rows []*repository.ListingRow
	err := r.db.Select(ctx, &rows, "SELECT * FROM listings ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}
	return rows, nil
}

func (r *ListingRepo) GetByOwnerID(ctx context.Context, ownerID string) ([]*repository.ListingRow, error) {
	var rows []*repository.ListingRow
	err := r.db.Select(ctx, &rows,
		"SELECT * FROM listings WHERE owner_id = $1 ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings for owner %s: %w", ownerID, err)
	}
	return rows, nil
}
