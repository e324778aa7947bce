package forecast

import (
	"context"
	"fmt"
	"log/slog"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

// Store reads and replaces persisted demand counters.
type Store interface {
	List(ctx context.Context) ([]RawForecast, error)
	Upsert(ctx context.Context, forecasts []Forecast) error
}

// Service serves normalized forecasts.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("forecast store is required")
	}
	svc := &Service{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ForecastAll returns one forecast per blood type in canonical order.
func (s *Service) ForecastAll(ctx context.Context) ([]Forecast, error) {
	raw, err := s.store.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "forecast read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "forecast read failed")
	}
	return Normalize(raw, requestcontext.Now(ctx))
}

// Forecast returns the forecast for one blood type.
func (s *Service) Forecast(ctx context.Context, bt id.BloodType) (Forecast, error) {
	if !bt.IsValid() {
		return Forecast{}, dErrors.New(dErrors.CodeValidation, "unknown blood type: "+bt.String())
	}
	all, err := s.ForecastAll(ctx)
	if err != nil {
		return Forecast{}, err
	}
	return all[bt.Index()], nil
}

// Refresh recomputes counters from the pending requests and persists them.
// Every blood type is written, so types with no pending demand reset to low.
func (s *Service) Refresh(ctx context.Context, pending []PendingRequest) ([]Forecast, error) {
	now := requestcontext.Now(ctx)
	raw, err := Derive(pending, now)
	if err != nil {
		return nil, err
	}
	forecasts, err := Normalize(raw, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Upsert(ctx, forecasts); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "forecast write failed")
	}
	s.logger.InfoContext(ctx, "forecasts refreshed",
		"request_id", requestcontext.RequestID(ctx),
		"pending_requests", len(pending),
	)
	return forecasts, nil
}
