package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/repository"
)

type fakeTaskCreator struct {
	tasks []*repository.OutboxTask
	err   error
}

func (f *fakeTaskCreator) Create(_ context.Context, task *repository.OutboxTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func TestOutboxEnqueuerStatusChanged(t *testing.T) {
	repo := &fakeTaskCreator{}
	enqueuer := NewOutboxEnqueuer(repo, "listing.status_changed")

	l := &listing.Listing{
		ID:         "listing-123",
		OwnerID:    "user-456",
		OwnerEmail: "owner@example.com",
		Status:     listing.StatusProposalSent,
	}

	err := enqueuer.StatusChanged(context.Background(), l, listing.StatusAwaitingProposal, "admin-1")
	require.NoError(t, err)
	require.Len(t, repo.tasks, 1)

	task := repo.tasks[0]
	assert.Equal(t, "listing.status_changed", task.Topic)

	var payload repository.StatusChangedPayload
	require.NoError(t, json.Unmarshal(task.Payload, &payload))
	assert.Equal(t, "listing-123", payload.ListingID)
	assert.Equal(t, "user-456", payload.OwnerID)
	assert.Equal(t, "awaiting_proposal", payload.Previous)
	assert.Equal(t, "proposal_sent", payload.Next)
	assert.Equal(t, "admin-1", payload.ActorID)
	assert.False(t, payload.ChangedAt.IsZero())
}

func TestOutboxEnqueuerStatusChangedRepoError(t *testing.T) {
	repo := &fakeTaskCreator{err: errors.New("insert failed")}
	enqueuer := NewOutboxEnqueuer(repo, "listing.status_changed")

	err := enqueuer.StatusChanged(context.Background(), &listing.Listing{ID: "x"}, listing.StatusAwaitingProposal, "admin-1")
	assert.Error(t, err)
}

type fakeOutboxRepo struct {
	mu      sync.Mutex
	tasks   []*repository.OutboxTask
	claimed []repository.TaskStatus
	updates []repository.TaskStatus
}

func (f *fakeOutboxRepo) ClaimTasks(_ context.Context, limit int) ([]*repository.OutboxTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.tasks
	if len(out) > limit {
		out = out[:limit]
	}
	f.tasks = f.tasks[len(out):]
	for _, task := range out {
		task.Status = repository.TaskStatusProcessing
		f.claimed = append(f.claimed, task.Status)
	}
	return out, nil
}

func (f *fakeOutboxRepo) UpdateTaskStatus(_ context.Context, _ uuid.UUID, status repository.TaskStatus, _ int, _ *string, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, status)
	return nil
}

type fakeProducer struct {
	mu     sync.Mutex
	sent   []string
	err    error
	closed bool
}

func (f *fakeProducer) SendMessage(_ context.Context, topic string, _, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, topic)
	return nil
}

func (f *fakeProducer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestPublisherProcessBatch(t *testing.T) {
	repo := &fakeOutboxRepo{
		tasks: []*repository.OutboxTask{
			{ID: uuid.New(), Status: repository.TaskStatusCreated, Topic: "listing.status_changed", Payload: []byte("{}")},
			{ID: uuid.New(), Status: repository.TaskStatusCreated, Topic: "listing.status_changed", Payload: []byte("{}")},
		},
	}
	producer := &fakeProducer{}
	p := NewPublisher(repo, producer, PublisherConfig{PollInterval: time.Second, BatchSize: 10, MaxAttempts: 5})

	require.NoError(t, p.processBatch(context.Background()))

	assert.Len(t, producer.sent, 2)
	// the claim marks both PROCESSING, then each send records DONE
	assert.Equal(t, []repository.TaskStatus{
		repository.TaskStatusProcessing, repository.TaskStatusProcessing,
	}, repo.claimed)
	assert.Equal(t, []repository.TaskStatus{
		repository.TaskStatusDone, repository.TaskStatusDone,
	}, repo.updates)
}

func TestPublisherSendFailureMarksFailed(t *testing.T) {
	repo := &fakeOutboxRepo{
		tasks: []*repository.OutboxTask{
			{ID: uuid.New(), Status: repository.TaskStatusCreated, Topic: "listing.status_changed", Payload: []byte("{}")},
		},
	}
	producer := &fakeProducer{err: errors.New("broker unreachable")}
	p := NewPublisher(repo, producer, PublisherConfig{PollInterval: time.Second, BatchSize: 10, MaxAttempts: 5})

	require.NoError(t, p.processBatch(context.Background()))

	assert.Empty(t, producer.sent)
	assert.Equal(t, []repository.TaskStatus{repository.TaskStatusProcessing}, repo.claimed)
	assert.Equal(t, []repository.TaskStatus{repository.TaskStatusFailed}, repo.updates)
}

func TestPublisherEmptyBatch(t *testing.T) {
	repo := &fakeOutboxRepo{}
	producer := &fakeProducer{}
	p := NewPublisher(repo, producer, PublisherConfig{PollInterval: time.Second, BatchSize: 10, MaxAttempts: 5})

	require.NoError(t, p.processBatch(context.Background()))
	assert.Empty(t, repo.updates)
}
