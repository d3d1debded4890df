package server

import (
	"time"
)

// AuditLogEntry captures one API call against the negotiation surface.
type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Handler    string    `json:"handler"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	UserEmail  string    `json:"user_email,omitempty"`
	ListingID  string    `json:"listing_id,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
}
