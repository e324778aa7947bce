package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hemolink/internal/notification"
	"hemolink/internal/notification/appeal"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/platform/httputil"
	"hemolink/pkg/requestcontext"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, donorIDs []id.DonorID, req notification.Request) (*notification.Result, error)
}

type Appealer interface {
	Run(ctx context.Context, req appeal.Request) (*appeal.Result, error)
}

// DeliveryLog reads the delivery records of a request.
type DeliveryLog interface {
	ListByRequest(ctx context.Context, requestID id.RequestID) ([]notification.DeliveryRecord, error)
}

// Handler serves bulk dispatch and low-stock appeals. Partial failures are
// reported in a 200 body; only invalid input and unavailable stores map to
// error statuses.
type Handler struct {
	dispatcher Dispatcher
	appeals    Appealer
	deliveries DeliveryLog
	logger     *slog.Logger
}

// New builds the handler. appeals and deliveries are optional; their routes
// are only mounted when set.
func New(dispatcher Dispatcher, appeals Appealer, deliveries DeliveryLog, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		appeals:    appeals,
		deliveries: deliveries,
		logger:     logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/notifications/dispatch", h.HandleDispatch)
	if h.appeals != nil {
		r.Post("/notifications/appeal", h.HandleAppeal)
	}
	if h.deliveries != nil {
		r.Get("/notifications/{requestID}/deliveries", h.HandleListDeliveries)
	}
}

func (h *Handler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DispatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	notificationReq := req.parsedRequest
	if notificationReq.RequesterName == "" {
		notificationReq.RequesterName = requestcontext.Requester(ctx)
	}

	result, err := h.dispatcher.Dispatch(ctx, req.parsedDonors, notificationReq)
	if err != nil {
		h.logger.ErrorContext(ctx, "dispatch failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dispatchResponse(result))
}

func (h *Handler) HandleAppeal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AppealRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.appeals.Run(ctx, req.parsed)
	if err != nil {
		h.logger.ErrorContext(ctx, "appeal failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, appealResponse(result))
}

func (h *Handler) HandleListDeliveries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	notificationRequestID, err := id.ParseRequestID(httputil.PathParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.deliveries.ListByRequest(ctx, notificationRequestID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list deliveries",
			"request_id", requestID,
			"notification_request_id", notificationRequestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "delivery log unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, deliveriesResponse(notificationRequestID, records))
}
