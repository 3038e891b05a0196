// Package httputil holds the shared HTTP response and decoding helpers used
// by every handler package.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "ecollect/pkg/domain-errors"
)

// maxBodyBytes caps request bodies before decoding.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError translates a domain error into an HTTP error response. Internal
// and upstream failures keep their detail out of the body.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUpstream, dErrors.CodeUnavailable:
		if code == dErrors.CodeInternal {
			resp.Error = "internal_error"
		}
	default:
		resp.ErrorDescription = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.HTTPStatus(code), resp)
}

// Decode reads and unmarshals a JSON request body into T, writing the error
// response itself on failure. The boolean reports whether decoding succeeded.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	return req, true
}
