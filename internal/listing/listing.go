// Package listing holds the device listing domain model and the
// negotiation state machine that governs its status transitions.
package listing

import "time"

// Status is the lifecycle position of a listing. Only the five values
// below are valid; the store never receives any other value.
type Status string

const (
	StatusAwaitingProposal Status = "awaiting_proposal"
	StatusProposalSent     Status = "proposal_sent"
	StatusProposalAccepted Status = "proposal_accepted"
	StatusProposalRejected Status = "proposal_rejected"
	StatusPaid             Status = "paid"
)

// Valid reports whether s is one of the five defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAwaitingProposal, StatusProposalSent, StatusProposalAccepted, StatusProposalRejected, StatusPaid:
		return true
	}
	return false
}

// Terminal reports whether the machine schedules no further automated
// transition from s. The operator may still re-quote a rejected listing.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusProposalRejected
}

// Listing is one submitted device. Device fields and ownership are
// immutable after creation; only status, quotedValue, paymentDeadline and
// counterOffer change during negotiation.
type Listing struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	OwnerEmail   string    `json:"owner_email"`
	Model        string    `json:"model"`
	Defect       string    `json:"defect"`
	Neighborhood string    `json:"neighborhood"`
	WaterDamage  bool      `json:"water_damage"`
	SignsOfLife  bool      `json:"signs_of_life"`
	PhotoFront   string    `json:"photo_front_url"`
	PhotoBack    string    `json:"photo_back_url"`
	Status       Status    `json:"status"`
	QuotedValue  string    `json:"quoted_value,omitempty"`
	Deadline     string    `json:"payment_deadline,omitempty"`
	CounterOffer string    `json:"counter_offer,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
