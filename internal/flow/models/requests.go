package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "ecollect/pkg/domain-errors"
)

// SubmitAddressRequest captures the postal address form.
type SubmitAddressRequest struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

func (r *SubmitAddressRequest) Normalize() {
	if r == nil {
		return
	}
	r.Street = strings.TrimSpace(r.Street)
	r.PostalCode = strings.TrimSpace(r.PostalCode)
	r.City = strings.TrimSpace(r.City)
}

// Follows validation order: Size -> Required -> Syntax.
func (r *SubmitAddressRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Street) > 200 {
		return dErrors.New(dErrors.CodeValidation, "street must be 200 characters or less")
	}
	if len(r.City) > 100 {
		return dErrors.New(dErrors.CodeValidation, "city must be 100 characters or less")
	}

	if r.Street == "" {
		return dErrors.New(dErrors.CodeValidation, "street is required")
	}
	if r.PostalCode == "" {
		return dErrors.New(dErrors.CodeValidation, "postal code is required")
	}
	if r.City == "" {
		return dErrors.New(dErrors.CodeValidation, "city is required")
	}

	if len(r.PostalCode) != 4 || strings.Trim(r.PostalCode, "0123456789") != "" {
		return dErrors.New(dErrors.CodeValidation, "postal code must be four digits")
	}

	return nil
}

// IssueRequest selects the ballot item to issue a credential for.
type IssueRequest struct {
	BallotItemID string `json:"ballot_item_id"`
}

func (r *IssueRequest) Validate() (uuid.UUID, error) {
	if r == nil || strings.TrimSpace(r.BallotItemID) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "ballot_item_id is required")
	}
	id, err := uuid.Parse(strings.TrimSpace(r.BallotItemID))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "ballot_item_id must be a UUID")
	}
	return id, nil
}
