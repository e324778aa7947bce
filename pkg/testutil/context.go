package testutil

import (
	"net/http"
	"time"

	"hemolink/pkg/requestcontext"
)

// WithTime pins the request-scoped clock, as the requesttime middleware would.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequester sets the requesting entity forwarded by the caller.
func WithRequester(req *http.Request, name string) *http.Request {
	return req.WithContext(requestcontext.WithRequester(req.Context(), name))
}
