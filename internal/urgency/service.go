package urgency

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"hemolink/internal/forecast"
	"hemolink/internal/inventory"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

// InventoryReader is the inventory side the service reads.
type InventoryReader interface {
	Current(ctx context.Context) ([]inventory.Snapshot, error)
}

// ForecastReader is the demand side the service reads.
type ForecastReader interface {
	ForecastAll(ctx context.Context) ([]forecast.Forecast, error)
}

// Result is a recommendation plus whether it was produced without data.
type Result struct {
	Recommendation
	// Selected is true when the blood type was picked by MostCriticalType.
	Selected bool
	// StoreUnavailable is set when either read failed; Message is then the
	// generic appeal.
	StoreUnavailable bool
	StoreErr         error
}

// Service reads inventory and demand and classifies them.
type Service struct {
	inventory  InventoryReader
	forecasts  ForecastReader
	classifier *Classifier
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClassifier(c *Classifier) Option {
	return func(s *Service) {
		s.classifier = c
	}
}

func New(inv InventoryReader, fc ForecastReader, opts ...Option) (*Service, error) {
	if inv == nil {
		return nil, fmt.Errorf("inventory reader is required")
	}
	if fc == nil {
		return nil, fmt.Errorf("forecast reader is required")
	}
	svc := &Service{
		inventory:  inv,
		forecasts:  fc,
		classifier: DefaultClassifier(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Recommend returns the appeal for bt, or for the most critical type when bt
// is nil. Both reads run concurrently. A read failure does not fail the call:
// the result carries the generic appeal with StoreUnavailable set. Stored
// records that fail validation are returned as errors with their code.
func (s *Service) Recommend(ctx context.Context, bt *id.BloodType) (*Result, error) {
	if bt != nil && !bt.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown blood type: "+bt.String())
	}
	var (
		stock  []inventory.Snapshot
		demand []forecast.Forecast
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stock, err = s.inventory.Current(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		demand, err = s.forecasts.ForecastAll(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// corrupt stored data is not a retryable outage
		if dErrors.IsValidation(err) {
			s.logger.ErrorContext(ctx, "recommendation inputs failed validation",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return nil, err
		}
		s.logger.WarnContext(ctx, "recommendation falling back to generic appeal",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		res := &Result{
			Recommendation:   Recommendation{Appeal: AppealGeneral, Message: fallbackMessage},
			StoreUnavailable: true,
			StoreErr:         err,
		}
		if bt != nil {
			res.BloodType = *bt
		}
		return res, nil
	}

	res := &Result{}
	var target id.BloodType
	if bt != nil {
		target = *bt
	} else {
		target = s.classifier.MostCriticalType(stock, demand)
		res.Selected = true
	}
	res.Recommendation = s.classifier.Recommend(target, stock, demand)

	s.logger.InfoContext(ctx, "recommendation generated",
		"request_id", requestcontext.RequestID(ctx),
		"blood_type", target,
		"appeal", res.Appeal,
		"selected", res.Selected,
	)
	return res, nil
}
