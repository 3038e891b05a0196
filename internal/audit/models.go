package audit

import "time"

// Action names the auditable moments of the credential flow.
type Action string

const (
	ActionFlowStarted           Action = "flow_session_started"
	ActionVerificationSucceeded Action = "verification_succeeded"
	ActionVerificationFailed    Action = "verification_failed"
	ActionVerificationTimedOut  Action = "verification_timed_out"
	ActionCredentialIssued      Action = "credential_issued"
	ActionCredentialErrored     Action = "credential_errored"
	ActionCredentialRevoked     Action = "credential_revoked"
)

// Event is emitted from domain logic to capture key actions. It carries
// record identifiers only, never resident names or birth dates.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	SessionID    string    `json:"session_id,omitempty"`
	ResidentID   string    `json:"resident_id,omitempty"`
	BallotItemID string    `json:"ballot_item_id,omitempty"`
	RecordID     string    `json:"record_id,omitempty"`
	Detail       string    `json:"detail,omitempty"`
}
