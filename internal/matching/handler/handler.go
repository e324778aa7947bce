package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hemolink/internal/matching"
	"hemolink/pkg/platform/httputil"
	"hemolink/pkg/requestcontext"
)

// Service defines the ranking operation the handler needs.
type Service interface {
	Rank(ctx context.Context, req matching.RankRequest) (*matching.RankResult, error)
}

// Handler wires matching endpoints to the ranking service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts matching endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/matching/rank", h.HandleRank)
}

// HandleRank handles POST /v1/matching/rank. A store failure is answered with
// 503 and the (empty) result body so clients can read the outcome.
func (h *Handler) HandleRank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RankRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	domainReq := req.ToDomain()

	result, err := h.service.Rank(ctx, domainReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "donor ranking failed",
			"request_id", requestID,
			"blood_type", req.BloodType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == matching.OutcomeStoreUnavailable {
		status = http.StatusServiceUnavailable
	}
	h.logger.InfoContext(ctx, "rank request served",
		"request_id", requestID,
		"requester", requestcontext.Requester(ctx),
		"outcome", result.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, status, FromResult(requestID, domainReq, result))
}
