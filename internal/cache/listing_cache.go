// Package cache keeps active listings in memory in front of the
// postgres repository. Negotiations read the same row on every guard
// check, so the hot set is small and invalidation is by id.
package cache

import (
	"context"
	"log"
	"sync"

	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/repository"
)

type ListingRepository interface {
	Create(ctx context.Context, row *repository.ListingRow) error
	GetByID(ctx context.Context, id string) (*repository.ListingRow, error)
	UpdateFields(ctx context.Context, id string, cols map[string]interface{}) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*repository.ListingRow, error)
	GetByOwnerID(ctx context.Context, ownerID string) ([]*repository.ListingRow, error)
}

// ListingCache decorates a ListingRepository with a read-through cache
// of active listings. Terminal listings fall out on the next write and
// are always served from the database.
type ListingCache struct {
	mu    sync.RWMutex
	cache map[string]*repository.ListingRow
	repo  ListingRepository
}

func NewListingCache(repo ListingRepository) *ListingCache {
	return &ListingCache{
		cache: make(map[string]*repository.ListingRow),
		repo:  repo,
	}
}

// LoadInitialData primes the cache with every active listing.
func (c *ListingCache) LoadInitialData(ctx context.Context) error {
	log.Println("Loading active listings into cache...")
	rows, err := c.repo.GetAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range rows {
		if !isActiveStatus(row.Status) {
			continue
		}
		rowCopy := *row
		c.cache[row.ID] = &rowCopy
	}
	log.Printf("Successfully loaded %d active listings into cache.", len(c.cache))
	return nil
}

func (c *ListingCache) Create(ctx context.Context, row *repository.ListingRow) error {
	if err := c.repo.Create(ctx, row); err != nil {
		return err
	}
	c.set(row)
	return nil
}

func (c *ListingCache) GetByID(ctx context.Context, id string) (*repository.ListingRow, error) {
	c.mu.RLock()
	row, found := c.cache[id]
	c.mu.RUnlock()
	if found {
		rowCopy := *row
		return &rowCopy, nil
	}

	row, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(row)
	return row, nil
}

// UpdateFields writes through and then re-reads the row, since the
// column map alone does not say what the row now looks like.
func (c *ListingCache) UpdateFields(ctx context.Context, id string, cols map[string]interface{}) error {
	if err := c.repo.UpdateFields(ctx, id, cols); err != nil {
		return err
	}

	c.invalidate(id)
	if row, err := c.repo.GetByID(ctx, id); err == nil {
		c.set(row)
	}
	return nil
}

func (c *ListingCache) Delete(ctx context.Context, id string) error {
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

// GetAll and GetByOwnerID always hit the database: list reads need the
// authoritative order and the full set, not just the hot entries.
func (c *ListingCache) GetAll(ctx context.Context) ([]*repository.ListingRow, error) {
	return c.repo.GetAll(ctx)
}

func (c *ListingCache) GetByOwnerID(ctx context.Context, ownerID string) ([]*repository.ListingRow, error) {
	return c.repo.GetByOwnerID(ctx, ownerID)
}

func (c *ListingCache) set(row *repository.ListingRow) {
	if !isActiveStatus(row.Status) {
		c.invalidate(row.ID)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	rowCopy := *row
	c.cache[row.ID] = &rowCopy
}

func (c *ListingCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, id)
}

func isActiveStatus(status string) bool {
	return !listing.Status(status).Terminal()
}
