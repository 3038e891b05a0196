package admin

import (
	"strings"
	"time"

	"ecollect/internal/registry/models"
	dErrors "ecollect/pkg/domain-errors"
)

// CreateMunicipalityRequest registers a municipality.
type CreateMunicipalityRequest struct {
	Name      string `json:"name"`
	BFSNumber string `json:"bfs_number"`
	Canton    string `json:"canton,omitempty"`
	DID       string `json:"did"`
}

func (r *CreateMunicipalityRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.BFSNumber = strings.TrimSpace(r.BFSNumber)
	r.Canton = strings.ToUpper(strings.TrimSpace(r.Canton))
	r.DID = strings.TrimSpace(r.DID)
}

// Follows validation order: Size -> Required -> Syntax.
func (r *CreateMunicipalityRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Name) > 100 {
		return dErrors.New(dErrors.CodeValidation, "name must be 100 characters or less")
	}

	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.BFSNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "bfs_number is required")
	}
	if r.DID == "" {
		return dErrors.New(dErrors.CodeValidation, "did is required")
	}

	if strings.Trim(r.BFSNumber, "0123456789") != "" {
		return dErrors.New(dErrors.CodeValidation, "bfs_number must be numeric")
	}
	if r.Canton != "" && len(r.Canton) != 2 {
		return dErrors.New(dErrors.CodeValidation, "canton must be a two-letter abbreviation")
	}
	if !strings.HasPrefix(r.DID, "did:") {
		return dErrors.New(dErrors.CodeValidation, "did must be a DID URI")
	}

	return nil
}

// CreateResidentRequest adds a resident to a municipality register.
type CreateResidentRequest struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	BirthDate  string `json:"birth_date"`
}

func (r *CreateResidentRequest) Normalize() {
	if r == nil {
		return
	}
	r.GivenName = strings.TrimSpace(r.GivenName)
	r.FamilyName = strings.TrimSpace(r.FamilyName)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
}

func (r *CreateResidentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.GivenName) > 100 {
		return dErrors.New(dErrors.CodeValidation, "given_name must be 100 characters or less")
	}
	if len(r.FamilyName) > 100 {
		return dErrors.New(dErrors.CodeValidation, "family_name must be 100 characters or less")
	}

	if r.GivenName == "" {
		return dErrors.New(dErrors.CodeValidation, "given_name is required")
	}
	if r.FamilyName == "" {
		return dErrors.New(dErrors.CodeValidation, "family_name is required")
	}
	if r.BirthDate == "" {
		return dErrors.New(dErrors.CodeValidation, "birth_date is required")
	}

	if _, err := time.Parse("2006-01-02", r.BirthDate); err != nil {
		return dErrors.New(dErrors.CodeValidation, "birth_date must be an ISO date (YYYY-MM-DD)")
	}

	return nil
}

// CreateBallotItemRequest opens a ballot item for support.
type CreateBallotItemRequest struct {
	Slug       string            `json:"slug"`
	Type       string            `json:"type"`
	Level      string            `json:"level"`
	Title      map[string]string `json:"title"`
	Committee  string            `json:"committee"`
	ValidUntil string            `json:"valid_until"`
}

func (r *CreateBallotItemRequest) Normalize() {
	if r == nil {
		return
	}
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Level = strings.ToLower(strings.TrimSpace(r.Level))
	r.Committee = strings.TrimSpace(r.Committee)
	r.ValidUntil = strings.TrimSpace(r.ValidUntil)
}

// Validate returns the parsed validity date on success.
func (r *CreateBallotItemRequest) Validate() (time.Time, error) {
	if r == nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Slug) > 100 {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "slug must be 100 characters or less")
	}

	if r.Slug == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "slug is required")
	}
	if r.Type == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "type is required")
	}
	if len(r.Title) == 0 {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.ValidUntil == "" {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "valid_until is required")
	}

	if !models.BallotItemType(r.Type).IsValid() {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "type must be initiative or referendum")
	}
	validUntil, err := time.Parse("2006-01-02", r.ValidUntil)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "valid_until must be an ISO date (YYYY-MM-DD)")
	}

	return validUntil, nil
}
