package inventory

import (
	"context"
	"fmt"
	"log/slog"

	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

// Store reads raw inventory units.
type Store interface {
	ListUnits(ctx context.Context) ([]Unit, error)
}

// Service serves aggregated inventory snapshots.
type Service struct {
	store      Store
	aggregator *Aggregator
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAggregator overrides the default optimal table.
func WithAggregator(a *Aggregator) Option {
	return func(s *Service) {
		s.aggregator = a
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("inventory store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.aggregator == nil {
		a, err := NewAggregator(DefaultOptimalTable())
		if err != nil {
			return nil, err
		}
		svc.aggregator = a
	}
	return svc, nil
}

// Current returns snapshots for all eight blood types. A failing store read
// is reported as CodeUnavailable, never as an all-zero inventory.
func (s *Service) Current(ctx context.Context) ([]Snapshot, error) {
	units, err := s.store.ListUnits(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "inventory read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "inventory read failed")
	}
	return s.aggregator.Aggregate(units, requestcontext.Now(ctx))
}

// ByType returns the snapshot for one blood type.
func (s *Service) ByType(ctx context.Context, bt id.BloodType) (Snapshot, error) {
	if !bt.IsValid() {
		return Snapshot{}, dErrors.New(dErrors.CodeValidation, "unknown blood type: "+bt.String())
	}
	all, err := s.Current(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, snap := range all {
		if snap.BloodType == bt {
			return snap, nil
		}
	}
	return Snapshot{}, dErrors.New(dErrors.CodeInvariantViolation, "aggregate omitted "+bt.String())
}
