package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hemolink/internal/inventory"
	id "hemolink/pkg/domain"
	"hemolink/pkg/platform/httputil"
	"hemolink/pkg/requestcontext"
)

type Service interface {
	Current(ctx context.Context) ([]inventory.Snapshot, error)
	ByType(ctx context.Context, bt id.BloodType) (inventory.Snapshot, error)
}

// Handler serves inventory snapshots.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/inventory", h.HandleList)
	r.Get("/inventory/{bloodType}", h.HandleGet)
}

// SnapshotResponse is one blood type's stock.
type SnapshotResponse struct {
	BloodType        string  `json:"blood_type"`
	CurrentUnits     int     `json:"current_units"`
	OptimalUnits     int     `json:"optimal_units"`
	ExpiringUnits    int     `json:"expiring_units"`
	PercentOfOptimal float64 `json:"percent_of_optimal"`
}

func toResponse(s inventory.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		BloodType:        s.BloodType.String(),
		CurrentUnits:     s.CurrentUnits,
		OptimalUnits:     s.OptimalUnits,
		ExpiringUnits:    s.ExpiringUnits,
		PercentOfOptimal: s.PercentOfOptimal(),
	}
}

// HandleList handles GET /v1/inventory.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snaps, err := h.service.Current(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "inventory listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	resp := make([]SnapshotResponse, len(snaps))
	for i, s := range snaps {
		resp[i] = toResponse(s)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"inventory": resp})
}

// HandleGet handles GET /v1/inventory/{bloodType}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	bt, err := id.ParseBloodType(httputil.PathParam(r, "bloodType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snap, err := h.service.ByType(ctx, bt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(snap))
}
