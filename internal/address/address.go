// Package address resolves a Swiss postal address to its political
// municipality: town name, canton, and BFS number. It is a read-only helper
// the flow uses to anchor the registry cross-check.
package address

import (
	"context"
	"errors"

	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/sentinel"
)

// Place is the resolved municipality for a postal address.
type Place struct {
	Town   string
	Canton string
	BFS    string
}

// Directory looks up places by postal code.
type Directory interface {
	FindByPostalCode(ctx context.Context, postalCode string) (*Place, error)
}

// Resolver answers address lookups from a postal code directory.
type Resolver struct {
	directory Directory
}

func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve maps a postal code to its place. Unknown codes surface as
// validation errors so the form can report them inline.
func (r *Resolver) Resolve(ctx context.Context, postalCode string) (*Place, error) {
	place, err := r.directory.FindByPostalCode(ctx, postalCode)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown postal code")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "address lookup failed")
	}
	return place, nil
}
