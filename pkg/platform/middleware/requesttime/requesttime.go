// Package requesttime provides middleware for request-scoped time and
// correlation metadata. All operations within a single HTTP request use the
// same "now", so eligibility and expiry windows agree across components.
package requesttime

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"hemolink/pkg/requestcontext"
)

// RequesterHeader carries the requesting hospital or blood bank name.
const RequesterHeader = "X-Requesting-Entity"

// Middleware captures the current time at the start of the request, copies
// chi's request ID and the requester header into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = requestcontext.WithRequestID(ctx, reqID)
		}
		if requester := strings.TrimSpace(r.Header.Get(RequesterHeader)); requester != "" {
			ctx = requestcontext.WithRequester(ctx, requester)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
