// Package lifecycle orchestrates the negotiation operations against the
// state machine and the listing store. Every operation takes the caller's
// resolved session and validates the transition synchronously before any
// write, so a failed guard has no partial effect.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quebracell/backend/internal/identity"
	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/metrics"
	"github.com/quebracell/backend/internal/store"
)

// Events receives a notification after every persisted status change.
// Delivery is best-effort from the caller's point of view; failures are
// logged, not surfaced.
type Events interface {
	StatusChanged(ctx context.Context, l *listing.Listing, prev listing.Status, actorID string) error
}

// History appends one row per status change for the audit trail.
type History interface {
	Record(ctx context.Context, listingID string, status listing.Status, actorID string, at time.Time) error
}

type Service struct {
	store   store.Store
	events  Events  // optional
	history History // optional
	logger  *zap.Logger
	now     func() time.Time
}

func New(st store.Store, events Events, history History, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   st,
		events:  events,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// SubmitRequest carries the user-supplied device fields. All of them are
// immutable after creation.
type SubmitRequest struct {
	Model        string
	Defect       string
	Neighborhood string
	WaterDamage  bool
	SignsOfLife  bool
	PhotoFront   string
	PhotoBack    string
}

func (r SubmitRequest) validate() error {
	switch {
	case r.Model == "":
		return &listing.ValidationError{Field: "model"}
	case r.Defect == "":
		return &listing.ValidationError{Field: "defect"}
	case r.Neighborhood == "":
		return &listing.ValidationError{Field: "neighborhood"}
	case r.PhotoFront == "":
		return &listing.ValidationError{Field: "photo_front_url"}
	case r.PhotoBack == "":
		return &listing.ValidationError{Field: "photo_back_url"}
	}
	return nil
}

// Submit creates a listing in awaiting_proposal owned by the session
// user. A missing field or photo URL aborts before the insert.
func (s *Service) Submit(ctx context.Context, sess identity.Session, req SubmitRequest) (string, error) {
	if _, err := listing.Next(listing.StatusAwaitingProposal, listing.ActionSubmit, sess.Role); err != nil {
		return "", err
	}
	if err := req.validate(); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("submit").Inc()
		return "", err
	}

	l := &listing.Listing{
		OwnerID:      sess.UserID,
		OwnerEmail:   sess.Email,
		Model:        req.Model,
		Defect:       req.Defect,
		Neighborhood: req.Neighborhood,
		WaterDamage:  req.WaterDamage,
		SignsOfLife:  req.SignsOfLife,
		PhotoFront:   req.PhotoFront,
		PhotoBack:    req.PhotoBack,
		Status:       listing.StatusAwaitingProposal,
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.store.Insert(ctx, l)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("submit").Inc()
		return "", fmt.Errorf("lifecycle: insert listing: %w", err)
	}

	s.recordHistory(ctx, id, listing.StatusAwaitingProposal, sess.UserID)
	metrics.ListingsSubmittedTotal.Inc()
	s.logger.Info("listing submitted",
		zap.String("listing_id", id), zap.String("owner_id", sess.UserID), zap.String("model", req.Model))
	return id, nil
}

// Quote sets the offer value and payment deadline and moves the listing
// to proposal_sent. The operator may quote from any state; a later quote
// overwrites the prior offer and never clears the counter-offer.
func (s *Service) Quote(ctx context.Context, sess identity.Session, id, amount, deadline string) error {
	if amount == "" {
		return &listing.ValidationError{Field: "quoted_value"}
	}
	if deadline == "" {
		return &listing.ValidationError{Field: "payment_deadline"}
	}

	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	next, err := listing.Next(cur.Status, listing.ActionQuote, sess.Role)
	if err != nil {
		return err
	}

	fields := store.FieldSet{
		Status:      &next,
		QuotedValue: &amount,
		Deadline:    &deadline,
	}
	if err := s.store.Update(ctx, id, fields); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("quote").Inc()
		return fmt.Errorf("lifecycle: update listing %s: %w", id, err)
	}

	s.afterTransition(ctx, cur, next, sess.UserID)
	metrics.QuotesSentTotal.Inc()
	s.logger.Info("proposal sent",
		zap.String("listing_id", id), zap.String("amount", amount), zap.String("deadline", deadline))
	return nil
}

// Decision is the owner's answer to a proposal.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Respond applies the owner's decision. Rejection without counter-offer
// text returns ErrNeedsMoreInput and leaves the listing untouched; the
// caller collects the text and re-invokes.
func (s *Service) Respond(ctx context.Context, sess identity.Session, id string, decision Decision, counterOffer string) error {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	var action listing.Action
	switch decision {
	case DecisionAccept:
		action = listing.ActionAccept
	case DecisionReject:
		action = listing.ActionReject
	default:
		return &listing.ValidationError{Field: "decision"}
	}

	if cur.OwnerID != sess.UserID {
		return &listing.InvalidTransitionError{From: cur.Status, Action: action, Role: sess.Role}
	}

	next, err := listing.Next(cur.Status, action, sess.Role)
	if err != nil {
		return err
	}

	fields := store.FieldSet{Status: &next}
	if action == listing.ActionReject {
		if counterOffer == "" {
			return listing.ErrNeedsMoreInput
		}
		fields.CounterOffer = &counterOffer
	}

	if err := s.store.Update(ctx, id, fields); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("respond").Inc()
		return fmt.Errorf("lifecycle: update listing %s: %w", id, err)
	}

	s.afterTransition(ctx, cur, next, sess.UserID)
	metrics.ResponsesTotal.WithLabelValues(string(decision)).Inc()
	s.logger.Info("owner responded",
		zap.String("listing_id", id), zap.String("decision", string(decision)))
	return nil
}

// MarkPaid confirms payment. The stored status is re-validated at write
// time: anything other than proposal_accepted is rejected, and a repeat
// call on a paid listing is a no-op success.
func (s *Service) MarkPaid(ctx context.Context, sess identity.Session, id string) error {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	next, err := listing.Next(cur.Status, listing.ActionMarkPaid, sess.Role)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("mark_paid").Inc()
		return err
	}
	if cur.Status == listing.StatusPaid {
		return nil
	}

	fields := store.FieldSet{Status: &next}
	if err := s.store.Update(ctx, id, fields); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("mark_paid").Inc()
		return fmt.Errorf("lifecycle: update listing %s: %w", id, err)
	}

	s.afterTransition(ctx, cur, next, sess.UserID)
	metrics.PaymentsConfirmedTotal.Inc()
	s.logger.Info("payment confirmed", zap.String("listing_id", id))
	return nil
}

// Delete permanently erases the listing. Operator only, irreversible, no
// soft-delete.
func (s *Service) Delete(ctx context.Context, sess identity.Session, id string) error {
	cur, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := listing.Next(cur.Status, listing.ActionDelete, sess.Role); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("delete").Inc()
		return fmt.Errorf("lifecycle: delete listing %s: %w", id, err)
	}

	s.logger.Info("listing deleted", zap.String("listing_id", id))
	return nil
}

// Get returns one listing, visible to its owner and to the operator.
func (s *Service) Get(ctx context.Context, sess identity.Session, id string) (*listing.Listing, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.IsOperator() && l.OwnerID != sess.UserID {
		return nil, listing.ErrNotFound
	}
	return l, nil
}

// ListAll returns every listing, newest first. Operator only.
func (s *Service) ListAll(ctx context.Context, sess identity.Session) ([]listing.Listing, error) {
	if !sess.IsOperator() {
		return nil, &listing.InvalidTransitionError{Action: "list_all", Role: sess.Role}
	}
	return s.store.List(ctx, store.Query{OrderByCreatedDesc: true})
}

// ListFor returns ownerID's listings, newest first. Visible to that
// owner and to the operator; anyone else learns nothing.
func (s *Service) ListFor(ctx context.Context, sess identity.Session, ownerID string) ([]listing.Listing, error) {
	if !sess.IsOperator() && sess.UserID != ownerID {
		return nil, listing.ErrNotFound
	}
	return s.store.List(ctx, store.Query{OwnerID: ownerID, OrderByCreatedDesc: true})
}

func (s *Service) afterTransition(ctx context.Context, before *listing.Listing, next listing.Status, actorID string) {
	s.recordHistory(ctx, before.ID, next, actorID)

	if s.events == nil || before.Status == next {
		return
	}
	after := *before
	after.Status = next
	if err := s.events.StatusChanged(ctx, &after, before.Status, actorID); err != nil {
		s.logger.Warn("status change event not delivered",
			zap.String("listing_id", before.ID), zap.Error(err))
	}
}

func (s *Service) recordHistory(ctx context.Context, id string, status listing.Status, actorID string) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, id, status, actorID, s.now().UTC()); err != nil {
		s.logger.Warn("status history not recorded",
			zap.String("listing_id", id), zap.Error(err))
	}
}
