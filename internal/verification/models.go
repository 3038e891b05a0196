package verification

// Session state as reported by the verifier service.
type State string

const (
	StatePending State = "PENDING"
	StateSuccess State = "SUCCESS"
	StateFailed  State = "FAILED"
)

// Session is the ephemeral verification session. The remote verifier service
// is the source of truth; nothing here is persisted locally.
type Session struct {
	ID              string          `json:"id"`
	VerificationURL string          `json:"verification_url"`
	RequestNonce    string          `json:"request_nonce"`
	State           State           `json:"state"`
	WalletResponse  *WalletResponse `json:"wallet_response,omitempty"`
}

// WalletResponse carries the subject attributes the wallet disclosed once the
// session reached SUCCESS.
type WalletResponse struct {
	CredentialSubjectData SubjectData `json:"credential_subject_data"`
}

// SubjectData are the disclosed identity attributes.
type SubjectData struct {
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	BirthDate  string `json:"birth_date"`
	AgeOver18  bool   `json:"age_over_18"`
}

// createRequest is the body posted to the verifier to open a session.
type createRequest struct {
	PresentationDefinition PresentationDefinition `json:"presentation_definition"`
}

// PresentationDefinition describes the credential fields the wallet must
// disclose, in the OID4VP presentation-exchange shape the verifier expects.
type PresentationDefinition struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Purpose          string            `json:"purpose"`
	InputDescriptors []InputDescriptor `json:"input_descriptors"`
}

type InputDescriptor struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Format      Format      `json:"format"`
	Constraints Constraints `json:"constraints"`
}

type Format struct {
	VCSDJWT *VCSDJWTFormat `json:"vc+sd-jwt,omitempty"`
}

type VCSDJWTFormat struct {
	SDJWTAlgValues []string `json:"sd-jwt_alg_values"`
	KBJWTAlgValues []string `json:"kb-jwt_alg_values"`
}

type Constraints struct {
	Fields []FieldConstraint `json:"fields"`
}

type FieldConstraint struct {
	Path   []string     `json:"path"`
	Filter *FieldFilter `json:"filter,omitempty"`
}

type FieldFilter struct {
	Type  string `json:"type,omitempty"`
	Const string `json:"const,omitempty"`
}

// defaultPresentationDefinition requires the beta e-ID credential fields the
// flow cross-checks against the residents registry.
func defaultPresentationDefinition() PresentationDefinition {
	return PresentationDefinition{
		ID:      "ecollect-identity-check",
		Name:    "Identity verification",
		Purpose: "Confirm eligibility for the e-collecting pilot",
		InputDescriptors: []InputDescriptor{
			{
				ID:   "betaid-sdjwt",
				Name: "Beta e-ID",
				Format: Format{
					VCSDJWT: &VCSDJWTFormat{
						SDJWTAlgValues: []string{"ES256"},
						KBJWTAlgValues: []string{"ES256"},
					},
				},
				Constraints: Constraints{
					Fields: []FieldConstraint{
						{Path: []string{"$.vct"}, Filter: &FieldFilter{Type: "string", Const: "betaid-sdjwt"}},
						{Path: []string{"$.family_name"}},
						{Path: []string{"$.given_name"}},
						{Path: []string{"$.birth_date"}},
						{Path: []string{"$.age_over_18"}},
					},
				},
			},
		},
	}
}
