package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/httputil"
	"ecollect/pkg/requestcontext"
)

// Handler wires the admin endpoints to the admin service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an admin handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts admin endpoints on the router. The caller wraps the group
// in the admin auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/municipalities", h.HandleCreateMunicipality)
		r.Get("/municipalities", h.HandleListMunicipalities)
		r.Post("/municipalities/{municipalityID}/residents", h.HandleCreateResident)
		r.Get("/municipalities/{municipalityID}/residents", h.HandleListResidents)
		r.Delete("/residents/{residentID}", h.HandleDeleteResident)
		r.Post("/ballot-items", h.HandleCreateBallotItem)
		r.Get("/ballot-items", h.HandleListBallotItems)
		r.Post("/credentials/{recordID}/revoke", h.HandleRevokeCredential)
	})
}

// HandleCreateMunicipality handles POST /admin/municipalities.
func (h *Handler) HandleCreateMunicipality(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateMunicipalityRequest](w, r, h.logger)
	if !ok {
		return
	}
	m, err := h.service.CreateMunicipality(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "municipality created",
		"request_id", requestcontext.RequestID(ctx),
		"municipality_id", m.ID.String(),
		"bfs_number", m.BFSNumber,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromMunicipality(m))
}

// HandleListMunicipalities handles GET /admin/municipalities.
func (h *Handler) HandleListMunicipalities(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListMunicipalities(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromMunicipalities(out))
}

// HandleCreateResident handles POST /admin/municipalities/{municipalityID}/residents.
func (h *Handler) HandleCreateResident(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	municipalityID, ok := pathUUID(w, r, "municipalityID")
	if !ok {
		return
	}
	req, ok := httputil.Decode[CreateResidentRequest](w, r, h.logger)
	if !ok {
		return
	}

	resident, err := h.service.CreateResident(ctx, municipalityID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromResident(resident))
}

// HandleListResidents handles GET /admin/municipalities/{municipalityID}/residents.
func (h *Handler) HandleListResidents(w http.ResponseWriter, r *http.Request) {
	municipalityID, ok := pathUUID(w, r, "municipalityID")
	if !ok {
		return
	}
	out, err := h.service.ListResidents(r.Context(), municipalityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromResidents(out))
}

// HandleDeleteResident handles DELETE /admin/residents/{residentID}.
func (h *Handler) HandleDeleteResident(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "residentID")
	if !ok {
		return
	}
	if err := h.service.DeleteResident(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCreateBallotItem handles POST /admin/ballot-items.
func (h *Handler) HandleCreateBallotItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateBallotItemRequest](w, r, h.logger)
	if !ok {
		return
	}
	b, err := h.service.CreateBallotItem(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "ballot item created",
		"request_id", requestcontext.RequestID(ctx),
		"ballot_item_id", b.ID.String(),
		"slug", b.Slug,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromBallotItem(b))
}

// HandleListBallotItems handles GET /admin/ballot-items.
func (h *Handler) HandleListBallotItems(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListBallotItems(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromBallotItems(out))
}

// HandleRevokeCredential handles POST /admin/credentials/{recordID}/revoke.
func (h *Handler) HandleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathUUID(w, r, "recordID")
	if !ok {
		return
	}
	record, err := h.service.RevokeCredential(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential revoked",
		"request_id", requestcontext.RequestID(ctx),
		"record_id", record.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCredentialRecord(record))
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, param+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
