// Package handler exposes the credential flow over HTTP. All endpoints are
// anonymous: the session ID in the path is the only handle a client holds.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"ecollect/internal/flow/models"
	dErrors "ecollect/pkg/domain-errors"
	"ecollect/pkg/platform/httputil"
	"ecollect/pkg/requestcontext"
)

// Service defines the flow operations the handler drives.
type Service interface {
	StartSession(ctx context.Context) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	SubmitAddress(ctx context.Context, id uuid.UUID, req models.SubmitAddressRequest) (*models.Session, error)
	StartVerification(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Issue(ctx context.Context, sessionID, ballotItemID uuid.UUID) (*models.Session, error)
	CredentialStatus(ctx context.Context, sessionID uuid.UUID) (string, error)
	Reset(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Handler wires flow endpoints to the flow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a flow handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts flow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/flow/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Post("/address", h.HandleSubmitAddress)
			r.Post("/verification", h.HandleStartVerification)
			r.Post("/issue", h.HandleIssue)
			r.Get("/credential", h.HandleCredentialStatus)
			r.Post("/reset", h.HandleReset)
		})
	})
}

// HandleStart handles POST /flow/sessions.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.service.StartSession(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start flow session",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromSession(session, isMobile(r)))
}

// HandleGet handles GET /flow/sessions/{sessionID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.GetSession(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, isMobile(r)))
}

// HandleSubmitAddress handles POST /flow/sessions/{sessionID}/address.
func (h *Handler) HandleSubmitAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[models.SubmitAddressRequest](w, r, h.logger)
	if !ok {
		return
	}

	session, err := h.service.SubmitAddress(ctx, id, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, isMobile(r)))
}

// HandleStartVerification handles POST /flow/sessions/{sessionID}/verification.
func (h *Handler) HandleStartVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.StartVerification(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to start verification",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, isMobile(r)))
}

// HandleIssue handles POST /flow/sessions/{sessionID}/issue.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.Decode[models.IssueRequest](w, r, h.logger)
	if !ok {
		return
	}
	ballotItemID, err := req.Validate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.Issue(ctx, id, ballotItemID)
	if err != nil {
		h.logger.ErrorContext(ctx, "issuance failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", id.String(),
			"ballot_item_id", ballotItemID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, isMobile(r)))
}

// HandleCredentialStatus handles GET /flow/sessions/{sessionID}/credential.
func (h *Handler) HandleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	status, err := h.service.CredentialStatus(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"display_status": status})
}

// HandleReset handles POST /flow/sessions/{sessionID}/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.service.Reset(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSession(session, isMobile(r)))
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "session id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// isMobile decides how the verification request is presented. Phones open the
// wallet deep link directly; everything else renders a QR code to scan.
func isMobile(r *http.Request) bool {
	ua := useragent.New(r.UserAgent())
	return ua.Mobile()
}
