package admin

import (
	"time"

	credmodels "ecollect/internal/credential/models"
	"ecollect/internal/registry/models"
)

// MunicipalityResponse is the HTTP shape of a municipality.
type MunicipalityResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BFSNumber string    `json:"bfs_number"`
	Canton    string    `json:"canton"`
	DID       string    `json:"did"`
	CreatedAt time.Time `json:"created_at"`
}

func FromMunicipality(m *models.Municipality) *MunicipalityResponse {
	return &MunicipalityResponse{
		ID:        m.ID.String(),
		Name:      m.Name,
		BFSNumber: m.BFSNumber,
		Canton:    m.Canton,
		DID:       m.DID,
		CreatedAt: m.CreatedAt,
	}
}

func FromMunicipalities(in []*models.Municipality) []*MunicipalityResponse {
	out := make([]*MunicipalityResponse, 0, len(in))
	for _, m := range in {
		out = append(out, FromMunicipality(m))
	}
	return out
}

// ResidentResponse is the HTTP shape of a resident register entry.
type ResidentResponse struct {
	ID             string    `json:"id"`
	MunicipalityID string    `json:"municipality_id"`
	GivenName      string    `json:"given_name"`
	FamilyName     string    `json:"family_name"`
	BirthDate      string    `json:"birth_date"`
	CreatedAt      time.Time `json:"created_at"`
}

func FromResident(r *models.Resident) *ResidentResponse {
	return &ResidentResponse{
		ID:             r.ID.String(),
		MunicipalityID: r.MunicipalityID.String(),
		GivenName:      r.GivenName,
		FamilyName:     r.FamilyName,
		BirthDate:      r.BirthDate,
		CreatedAt:      r.CreatedAt,
	}
}

func FromResidents(in []*models.Resident) []*ResidentResponse {
	out := make([]*ResidentResponse, 0, len(in))
	for _, r := range in {
		out = append(out, FromResident(r))
	}
	return out
}

// BallotItemResponse is the HTTP shape of a ballot item.
type BallotItemResponse struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Type       string            `json:"type"`
	Level      string            `json:"level"`
	Title      map[string]string `json:"title"`
	Committee  string            `json:"committee"`
	ValidUntil string            `json:"valid_until"`
	CreatedAt  time.Time         `json:"created_at"`
}

func FromBallotItem(b *models.BallotItem) *BallotItemResponse {
	return &BallotItemResponse{
		ID:         b.ID.String(),
		Slug:       b.Slug,
		Type:       string(b.Type),
		Level:      b.Level,
		Title:      b.Title,
		Committee:  b.Committee,
		ValidUntil: b.ValidUntil.Format("2006-01-02"),
		CreatedAt:  b.CreatedAt,
	}
}

func FromBallotItems(in []*models.BallotItem) []*BallotItemResponse {
	out := make([]*BallotItemResponse, 0, len(in))
	for _, b := range in {
		out = append(out, FromBallotItem(b))
	}
	return out
}

// CredentialRecordResponse is the HTTP shape of a credential record.
type CredentialRecordResponse struct {
	ID           string    `json:"id"`
	ResidentID   string    `json:"resident_id"`
	BallotItemID string    `json:"ballot_item_id"`
	Status       string    `json:"status"`
	IssuerDID    string    `json:"issuer_did"`
	IssuedDate   string    `json:"issued_date,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromCredentialRecord(rec *credmodels.Record) *CredentialRecordResponse {
	return &CredentialRecordResponse{
		ID:           rec.ID.String(),
		ResidentID:   rec.ResidentID.String(),
		BallotItemID: rec.BallotItemID.String(),
		Status:       string(rec.Status),
		IssuerDID:    rec.IssuerDID,
		IssuedDate:   rec.IssuedDate,
		UpdatedAt:    rec.UpdatedAt,
	}
}
