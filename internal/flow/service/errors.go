package service

import (
	"errors"

	dErrors "ecollect/pkg/domain-errors"
)

// Sentinel errors for issuance preconditions. Both carry CodeConflict so the
// transport layer maps them to 409 without special cases; callers that need
// to tell them apart use errors.Is.
var (
	ErrBallotExpired       = dErrors.Wrap(errors.New("ballot item expired"), dErrors.CodeConflict, "collection period has ended")
	ErrDuplicateCredential = dErrors.Wrap(errors.New("credential already issued"), dErrors.CodeConflict, "a credential for this ballot item was already issued")
)
