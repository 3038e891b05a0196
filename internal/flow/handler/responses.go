package handler

import (
	"time"

	"ecollect/internal/flow/models"
)

// SessionResponse is the HTTP shape of a flow session. Identifiers the client
// has no use for (resident, municipality) stay server side.
type SessionResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Generation int    `json:"generation"`

	Address *AddressResponse `json:"address,omitempty"`
	Place   *PlaceResponse   `json:"place,omitempty"`

	Verification *VerificationResponse `json:"verification,omitempty"`
	Credential   *CredentialResponse   `json:"credential,omitempty"`

	AbortReason string          `json:"abort_reason,omitempty"`
	Banner      *BannerResponse `json:"banner,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AddressResponse struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
}

type PlaceResponse struct {
	Town   string `json:"town"`
	Canton string `json:"canton"`
	BFS    string `json:"bfs"`
}

// VerificationResponse carries what the client needs to hand the request to a
// wallet. PresentationMode tells it whether to open the deep link directly or
// render the URL as a QR code.
type VerificationResponse struct {
	URL              string `json:"url"`
	Deeplink         string `json:"deeplink"`
	PresentationMode string `json:"presentation_mode"`
}

type CredentialResponse struct {
	OfferDeeplink string `json:"offer_deeplink,omitempty"`
	DisplayStatus string `json:"display_status,omitempty"`
}

type BannerResponse struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

const (
	presentationModeWallet = "wallet_redirect"
	presentationModeQR     = "qr_code"
)

// FromSession converts a domain session to its HTTP shape. mobile selects the
// verification presentation mode.
func FromSession(session *models.Session, mobile bool) *SessionResponse {
	resp := &SessionResponse{
		ID:          session.ID.String(),
		State:       string(session.State),
		Generation:  session.Generation,
		AbortReason: string(session.AbortReason),
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}

	if session.Address != nil {
		resp.Address = &AddressResponse{
			Street:     session.Address.Street,
			PostalCode: session.Address.PostalCode,
			City:       session.Address.City,
		}
	}
	if session.Place != nil {
		resp.Place = &PlaceResponse{
			Town:   session.Place.Town,
			Canton: session.Place.Canton,
			BFS:    session.Place.BFS,
		}
	}
	if session.VerificationID != "" && session.State == models.StateVerificationPending {
		mode := presentationModeQR
		if mobile {
			mode = presentationModeWallet
		}
		resp.Verification = &VerificationResponse{
			URL:              session.VerificationURL,
			Deeplink:         session.VerificationDeeplink,
			PresentationMode: mode,
		}
	}
	if session.State == models.StateIssued {
		resp.Credential = &CredentialResponse{
			OfferDeeplink: session.OfferDeeplink,
			DisplayStatus: session.DisplayStatus,
		}
	}
	if session.Banner != nil {
		resp.Banner = &BannerResponse{
			Kind:        string(session.Banner.Kind),
			Title:       session.Banner.Title,
			Description: session.Banner.Description,
		}
	}
	return resp
}
