package testutil

import (
	"net/http"
	"time"

	"idvgate/pkg/requestcontext"
)

// WithRequestScope stamps a request with the values the metadata and
// requesttime middleware would set, for handler tests that bypass the chain.
func WithRequestScope(req *http.Request, requestID string, now time.Time) *http.Request {
	ctx := requestcontext.WithRequestID(req.Context(), requestID)
	ctx = requestcontext.WithTime(ctx, now)
	return req.WithContext(ctx)
}
