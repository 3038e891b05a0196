// Package models holds the credential flow session: the server-side state
// machine a citizen walks through from address capture to an issued
// credential.
package models

import (
	"time"

	"github.com/google/uuid"
)

// State is the position of a session in the flow.
type State string

const (
	StateAddressCapture       State = "address_capture"
	StateAddressConfirmed     State = "address_confirmed"
	StateVerificationPending  State = "verification_pending"
	StateVerificationTimedOut State = "verification_timed_out"
	StateVerified             State = "verified"
	StateIssuing              State = "issuing"
	StateIssued               State = "issued"
	StateAborted              State = "aborted"
)

// AbortReason explains why a session reached the absorbing aborted state.
type AbortReason string

const (
	AbortMunicipalityNotRegistered AbortReason = "municipality_not_registered"
	AbortResidentNotFound          AbortReason = "resident_not_found"
	AbortVerificationFailed        AbortReason = "verification_failed"
	AbortIssuanceFailed            AbortReason = "issuance_failed"
)

// Address is the captured postal address.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

// Place is the municipality resolved from the address. BFS keeps the value
// as captured; lookups normalize it separately so display stays faithful.
type Place struct {
	Town   string `json:"town"`
	Canton string `json:"canton"`
	BFS    string `json:"bfs"`
}

// Session is the resumable flow context. Verified identity attributes are
// deliberately not stored here: the cross-check consumes them in the same
// poll tick they arrive in, so no PII outlives the verification session.
type Session struct {
	ID    uuid.UUID `json:"id"`
	State State     `json:"state"`

	// Generation guards against late writes: pollers capture it at start and
	// stop silently once a reset has bumped it.
	Generation int `json:"generation"`

	Address *Address `json:"address,omitempty"`
	Place   *Place   `json:"place,omitempty"`

	VerificationID        string    `json:"verification_id,omitempty"`
	VerificationURL       string    `json:"verification_url,omitempty"`
	VerificationDeeplink  string    `json:"verification_deeplink,omitempty"`
	VerificationStartedAt time.Time `json:"verification_started_at,omitempty"`

	MunicipalityID uuid.UUID `json:"municipality_id,omitempty"`
	IssuerDID      string    `json:"issuer_did,omitempty"`
	ResidentID     uuid.UUID `json:"resident_id,omitempty"`

	RecordID           uuid.UUID `json:"record_id,omitempty"`
	RemoteCredentialID string    `json:"remote_credential_id,omitempty"`
	OfferDeeplink      string    `json:"offer_deeplink,omitempty"`
	DisplayStatus      string    `json:"display_status,omitempty"`

	AbortReason AbortReason `json:"abort_reason,omitempty"`
	Banner      *Banner     `json:"banner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts a fresh flow at address capture.
func NewSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		State:     StateAddressCapture,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Reset returns the session to address capture, discarding all flow context.
// Persisted credential records are untouched by design.
func (s *Session) Reset(now time.Time) {
	*s = Session{
		ID:         s.ID,
		State:      StateAddressCapture,
		Generation: s.Generation + 1,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  now,
	}
}

// Abort moves the session to the absorbing aborted state.
func (s *Session) Abort(reason AbortReason, banner *Banner, now time.Time) {
	s.State = StateAborted
	s.AbortReason = reason
	s.Banner = banner
	s.UpdatedAt = now
}
