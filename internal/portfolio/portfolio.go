// Package portfolio derives the financial summary cards shown on the
// owner dashboard from a set of listings.
package portfolio

import (
	"github.com/quebracell/backend/internal/currency"
	"github.com/quebracell/backend/internal/listing"
)

// Summary holds the two derived aggregates for one owner.
type Summary struct {
	Pending  float64 `json:"pending"`
	Received float64 `json:"received"`
}

// PendingTotal sums the quoted values of listings whose proposal was
// accepted but not yet paid out.
func PendingTotal(listings []listing.Listing) float64 {
	return sumByStatus(listings, listing.StatusProposalAccepted)
}

// ReceivedTotal sums the quoted values of paid listings.
func ReceivedTotal(listings []listing.Listing) float64 {
	return sumByStatus(listings, listing.StatusPaid)
}

// Summarize computes both aggregates in one pass.
func Summarize(listings []listing.Listing) Summary {
	var s Summary
	for _, l := range listings {
		switch l.Status {
		case listing.StatusProposalAccepted:
			s.Pending += currency.ParseAmount(l.QuotedValue)
		case listing.StatusPaid:
			s.Received += currency.ParseAmount(l.QuotedValue)
		}
	}
	return s
}

func sumByStatus(listings []listing.Listing, status listing.Status) float64 {
	var total float64
	for _, l := range listings {
		if l.Status == status {
			total += currency.ParseAmount(l.QuotedValue)
		}
	}
	return total
}
