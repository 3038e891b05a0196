package testutil

import (
	"net/http"
	"time"

	"ecollect/pkg/requestcontext"
)

// WithRequestID stamps a request ID on the request context, simulating the
// request ID middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped time, so handlers under test see a
// deterministic clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
