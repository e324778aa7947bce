package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"hemolink/internal/forecast"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/platform/httputil"
	"hemolink/pkg/requestcontext"
)

type Service interface {
	ForecastAll(ctx context.Context) ([]forecast.Forecast, error)
	Forecast(ctx context.Context, bt id.BloodType) (forecast.Forecast, error)
	Refresh(ctx context.Context, pending []forecast.PendingRequest) ([]forecast.Forecast, error)
}

// Handler serves demand forecasts.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/forecast", h.HandleList)
	r.Get("/forecast/{bloodType}", h.HandleGet)
	r.Post("/forecast/refresh", h.HandleRefresh)
}

// ForecastResponse is one blood type's demand outlook.
type ForecastResponse struct {
	BloodType        string    `json:"blood_type"`
	ShortTermDemand  float64   `json:"short_term_demand"`
	MediumTermDemand float64   `json:"medium_term_demand"`
	UrgencyLevel     string    `json:"urgency_level"`
	LastUpdated      time.Time `json:"last_updated"`
}

func toResponse(f forecast.Forecast) ForecastResponse {
	return ForecastResponse{
		BloodType:        f.BloodType.String(),
		ShortTermDemand:  f.ShortTermDemand,
		MediumTermDemand: f.MediumTermDemand,
		UrgencyLevel:     f.Urgency.String(),
		LastUpdated:      f.LastUpdated,
	}
}

func toResponses(all []forecast.Forecast) []ForecastResponse {
	out := make([]ForecastResponse, len(all))
	for i, f := range all {
		out[i] = toResponse(f)
	}
	return out
}

// HandleList handles GET /v1/forecast.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := h.service.ForecastAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "forecast listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"forecasts": toResponses(all)})
}

// HandleGet handles GET /v1/forecast/{bloodType}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	bt, err := id.ParseBloodType(httputil.PathParam(r, "bloodType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	f, err := h.service.Forecast(r.Context(), bt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(f))
}

// RefreshRequest is the body for POST /v1/forecast/refresh.
type RefreshRequest struct {
	Pending []PendingRequest `json:"pending"`

	parsed []forecast.PendingRequest
}

type PendingRequest struct {
	BloodType   string `json:"blood_type"`
	UnitsNeeded int    `json:"units_needed"`
	Urgency     string `json:"urgency"`
}

func (r *RefreshRequest) Normalize() {
	for i := range r.Pending {
		r.Pending[i].BloodType = strings.TrimSpace(r.Pending[i].BloodType)
		r.Pending[i].Urgency = strings.TrimSpace(r.Pending[i].Urgency)
	}
}

func (r *RefreshRequest) Validate() error {
	if len(r.Pending) > 10000 {
		return dErrors.New(dErrors.CodeValidation, "too many pending requests")
	}
	r.parsed = make([]forecast.PendingRequest, 0, len(r.Pending))
	for _, p := range r.Pending {
		bt, err := id.ParseBloodType(p.BloodType)
		if err != nil {
			return err
		}
		urgency := id.UrgencyLow
		if p.Urgency != "" {
			if urgency, err = id.ParseUrgencyLevel(p.Urgency); err != nil {
				return err
			}
		}
		r.parsed = append(r.parsed, forecast.PendingRequest{BloodType: bt, Units: p.UnitsNeeded, Urgency: urgency})
	}
	return nil
}

// HandleRefresh handles POST /v1/forecast/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RefreshRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	all, err := h.service.Refresh(ctx, req.parsed)
	if err != nil {
		h.logger.ErrorContext(ctx, "forecast refresh failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"forecasts": toResponses(all)})
}
