package repository

import (
	"errors"
	"time"
)

var ErrObjectNotFound = errors.New("not found")

// ListingRow mirrors the listings table. Optional negotiation fields are
// nullable so a freshly submitted device carries no quote at all.
type ListingRow struct {
	ID           string    `db:"id"`
	OwnerID      string    `db:"owner_id"`
	OwnerEmail   string    `db:"owner_email"`
	Model        string    `db:"model"`
	Defect       string    `db:"defect"`
	Neighborhood string    `db:"neighborhood"`
	WaterDamage  bool      `db:"water_damage"`
	SignsOfLife  bool      `db:"signs_of_life"`
	PhotoFront   string    `db:"photo_front_url"`
	PhotoBack    string    `db:"photo_back_url"`
	Status       string    `db:"status"`
	QuotedValue  *string   `db:"quoted_value"`
	Deadline     *string   `db:"payment_deadline"`
	CounterOffer *string   `db:"counter_offer"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// StatusHistoryEntry records one status change for a listing.
type StatusHistoryEntry struct {
	ID        int64     `db:"id"`
	ListingID string    `db:"listing_id"`
	Status    string    `db:"status"`
	ActorID   string    `db:"actor_id"`
	ChangedAt time.Time `db:"changed_at"`
}
