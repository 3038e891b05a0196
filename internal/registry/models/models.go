// Package models holds the registry entities: municipalities, residents, and
// ballot items. These mirror the official registers the pilot runs against.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Municipality is identified naturally by its BFS number (the federal
// statistics office identifier). The DID is the decentralized identifier the
// municipality issues credentials under.
type Municipality struct {
	ID        uuid.UUID
	Name      string
	BFSNumber string
	Canton    string
	DID       string
	CreatedAt time.Time
}

// Resident belongs to exactly one municipality. Matching against
// wallet-verified identity uses case-insensitive names and the exact birth
// date, so both are stored normalized.
type Resident struct {
	ID             uuid.UUID
	MunicipalityID uuid.UUID
	GivenName      string
	FamilyName     string
	BirthDate      string // ISO date, YYYY-MM-DD
	CreatedAt      time.Time
}

// BallotItemType distinguishes the two instruments citizens can support.
type BallotItemType string

const (
	BallotItemInitiative BallotItemType = "initiative"
	BallotItemReferendum BallotItemType = "referendum"
)

// IsValid reports whether the type is a known instrument.
func (t BallotItemType) IsValid() bool {
	return t == BallotItemInitiative || t == BallotItemReferendum
}

// BallotItem is an initiative or referendum open for support. ValidUntil is a
// date; issuance is gated on its UTC end-of-day boundary.
type BallotItem struct {
	ID         uuid.UUID
	Slug       string
	Type       BallotItemType
	Level      string
	Title      map[string]string // locale -> title
	Committee  string
	ValidUntil time.Time
	CreatedAt  time.Time
}

// EndOfValidity returns the last instant issuance is allowed: end of day UTC
// on the ValidUntil date.
func (b BallotItem) EndOfValidity() time.Time {
	d := b.ValidUntil.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 999_000_000, time.UTC)
}

// NormalizeBFS strips leading zeros so lookups match however the code was
// captured. The original value stays with the caller for display.
func NormalizeBFS(bfs string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(bfs), "0")
	if trimmed == "" && strings.TrimSpace(bfs) != "" {
		return "0"
	}
	return trimmed
}
