// Package nullifier derives the per-(resident, ballot) token that prevents
// double issuance without putting resident identity into the credential.
package nullifier

import (
	"crypto/sha256"
	"encoding/hex"
)

// Derive computes the nullifier for a resident and ballot item. The digest is
// SHA-256 over the concatenation of resident id, ballot item id, and the
// municipality secret, rendered as lowercase hex.
//
// Properties: deterministic (same inputs produce the same token, enabling
// duplicate detection), preimage-resistant (the resident id cannot be
// recovered), and ballot-scoped (the same resident yields unlinkable tokens
// across ballot items).
//
// The municipality's registry identifier currently stands in as the secret.
// It is readable by anyone with registry access, which weakens unlinkability;
// this is a known limitation of the pilot design, not an oversight here.
func Derive(residentID, ballotItemID, municipalitySecret string) string {
	digest := sha256.Sum256([]byte(residentID + ballotItemID + municipalitySecret))
	return hex.EncodeToString(digest[:])
}
