package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/repository"
)

// OutboxEnqueuer translates lifecycle status changes into outbox tasks so
// the publisher can deliver them to Kafka independently of the request.
type OutboxEnqueuer struct {
	repo  taskCreator
	topic string
}

type taskCreator interface {
	Create(ctx context.Context, task *repository.OutboxTask) error
}

func NewOutboxEnqueuer(repo taskCreator, topic string) *OutboxEnqueuer {
	return &OutboxEnqueuer{repo: repo, topic: topic}
}

func (e *OutboxEnqueuer) StatusChanged(ctx context.Context, l *listing.Listing, prev listing.Status, actorID string) error {
	payload, err := json.Marshal(repository.StatusChangedPayload{
		ListingID:  l.ID,
		OwnerID:    l.OwnerID,
		OwnerEmail: l.OwnerEmail,
		Previous:   string(prev),
		Next:       string(l.Status),
		ActorID:    actorID,
		ChangedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal status change: %w", err)
	}

	return e.repo.Create(ctx, &repository.OutboxTask{
		Topic:   e.topic,
		Payload: payload,
	})
}
