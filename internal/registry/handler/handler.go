// Package handler exposes the public, read-only registry endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecollect/internal/registry/models"
	"ecollect/pkg/platform/httputil"
	"ecollect/pkg/requestcontext"
)

// BallotStore lists ballot items.
type BallotStore interface {
	List(ctx context.Context) ([]*models.BallotItem, error)
}

// Handler serves the public ballot item listing citizens pick from.
type Handler struct {
	ballots BallotStore
	logger  *slog.Logger
}

// New constructs the public registry handler.
func New(ballots BallotStore, logger *slog.Logger) *Handler {
	return &Handler{ballots: ballots, logger: logger}
}

// Register mounts public registry endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/ballot-items", h.HandleListBallotItems)
}

// BallotItemResponse is the public shape of an open ballot item.
type BallotItemResponse struct {
	ID         string            `json:"id"`
	Slug       string            `json:"slug"`
	Type       string            `json:"type"`
	Level      string            `json:"level"`
	Title      map[string]string `json:"title"`
	Committee  string            `json:"committee"`
	ValidUntil string            `json:"valid_until"`
}

// HandleListBallotItems handles GET /ballot-items. Only items whose
// collection period is still open are returned.
func (h *Handler) HandleListBallotItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.ballots.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list ballot items",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	now := requestcontext.Now(ctx)
	out := make([]*BallotItemResponse, 0, len(items))
	for _, b := range items {
		if b.EndOfValidity().Before(now) {
			continue
		}
		out = append(out, &BallotItemResponse{
			ID:         b.ID.String(),
			Slug:       b.Slug,
			Type:       string(b.Type),
			Level:      b.Level,
			Title:      b.Title,
			Committee:  b.Committee,
			ValidUntil: b.ValidUntil.Format("2006-01-02"),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
