package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hemolink/internal/urgency"
	id "hemolink/pkg/domain"
	"hemolink/pkg/platform/httputil"
	"hemolink/pkg/requestcontext"
)

type Service interface {
	Recommend(ctx context.Context, bt *id.BloodType) (*urgency.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/recommendations", h.HandleRecommend)
}

// RecommendationResponse is the body of GET /v1/recommendations.
type RecommendationResponse struct {
	BloodType        string `json:"blood_type,omitempty"`
	Appeal           string `json:"appeal"`
	Message          string `json:"message"`
	Selected         bool   `json:"selected"`
	StoreUnavailable bool   `json:"store_unavailable,omitempty"`
}

// HandleRecommend handles GET /v1/recommendations?blood_type=. Without a
// blood type the most critical type is chosen.
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var bt *id.BloodType
	// an unescaped "+" in a query string decodes to a space
	raw := strings.TrimSpace(strings.ReplaceAll(r.URL.Query().Get("blood_type"), " ", "+"))
	if raw != "" {
		parsed, err := id.ParseBloodType(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		bt = &parsed
	}

	res, err := h.service.Recommend(ctx, bt)
	if err != nil {
		h.logger.ErrorContext(ctx, "recommendation failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RecommendationResponse{
		BloodType:        res.BloodType.String(),
		Appeal:           string(res.Appeal),
		Message:          res.Message,
		Selected:         res.Selected,
		StoreUnavailable: res.StoreUnavailable,
	})
}
