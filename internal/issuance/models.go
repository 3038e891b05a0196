package issuance

import "time"

// apiTimeLayout is the exact timestamp format the issuer service accepts:
// ISO-8601 with millisecond precision and a literal Z.
const apiTimeLayout = "2006-01-02T15:04:05.000Z"

// FormatAPITime renders a timestamp in the issuer's required format.
func FormatAPITime(t time.Time) string {
	return t.UTC().Format(apiTimeLayout)
}

// StartOfDayUTC returns midnight UTC on t's date, the start of a credential
// validity window.
func StartOfDayUTC(t time.Time) time.Time {
	d := t.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// SubjectData is the privacy-preserving credential payload. It deliberately
// carries no resident name or birth date; the nullifier stands in for
// identity.
type SubjectData struct {
	Nullifier  string `json:"nullifier"`
	BallotRef  string `json:"ballotRef"`
	IssuerDID  string `json:"issuerDid"`
	IssuedDate string `json:"issuedDate"`
}

// IssueRequest is the body posted to the issuer service.
type IssueRequest struct {
	MetadataCredentialSupportedID []string    `json:"metadata_credential_supported_id"`
	CredentialSubjectData         SubjectData `json:"credential_subject_data"`
	OfferValiditySeconds          int         `json:"offer_validity_seconds"`
	CredentialValidFrom           string      `json:"credential_valid_from"`
	CredentialValidUntil          string      `json:"credential_valid_until"`
	StatusLists                   []string    `json:"status_lists,omitempty"`
}

// IssueResponse is the issuer's confirmation of a minted credential.
type IssueResponse struct {
	ID            string `json:"id"`
	ManagementID  string `json:"management_id"`
	OfferDeeplink string `json:"offer_deeplink"`
}

// Status is the issuer-side credential status vocabulary.
type Status string

const (
	StatusOffered    Status = "offered"
	StatusInProgress Status = "in-progress"
	StatusReady      Status = "ready"
	StatusIssued     Status = "issued"
	StatusSuspended  Status = "suspended"
	StatusRevoked    Status = "revoked"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
	StatusDeferred   Status = "deferred"
)

// StatusResponse is the issuer's answer to a status poll.
type StatusResponse struct {
	Status Status `json:"status"`
}
