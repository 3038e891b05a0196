// Package models holds the credential record, the lifecycle entity tracking
// every issuance attempt from pending through issued, error, or revoked.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a credential record.
type Status string

const (
	StatusPending Status = "pending"
	StatusIssued  Status = "issued"
	StatusError   Status = "error"
	StatusRevoked Status = "revoked"
)

// Record tracks one issuance attempt for a (resident, ballot item) pair.
// At most one record per pair may hold StatusIssued; the flow service enforces
// this with a check-then-purge-then-create sequence, and the schema backs it
// with a partial unique index.
type Record struct {
	ID                 uuid.UUID
	ResidentID         uuid.UUID
	BallotItemID       uuid.UUID
	Status             Status
	Nullifier          string
	IssuerDID          string
	IssuedDate         string // ISO date, set when the remote issuer confirms
	ValidFrom          time.Time
	ValidUntil         time.Time
	RemoteCredentialID string
	ManagementID       string
	OfferDeeplink      string
	LastError          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Patch carries the mutable fields of a record. Nil fields are left unchanged.
type Patch struct {
	Status             *Status
	IssuedDate         *string
	RemoteCredentialID *string
	ManagementID       *string
	OfferDeeplink      *string
	LastError          *string
}

// StatusPatch is shorthand for a patch that only flips the status.
func StatusPatch(status Status) Patch {
	return Patch{Status: &status}
}
