// Package appeal turns an inventory recommendation into a low-stock
// notification to eligible donors of the critical blood type.
package appeal

import (
	"context"
	"fmt"
	"log/slog"

	"hemolink/internal/inventory"
	"hemolink/internal/matching"
	"hemolink/internal/notification"
	"hemolink/internal/urgency"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

type Recommender interface {
	Recommend(ctx context.Context, bt *id.BloodType) (*urgency.Result, error)
}

type StockReader interface {
	ByType(ctx context.Context, bt id.BloodType) (inventory.Snapshot, error)
}

type Ranker interface {
	Rank(ctx context.Context, req matching.RankRequest) (*matching.RankResult, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, donorIDs []id.DonorID, req notification.Request) (*notification.Result, error)
}

// Request asks for an appeal. A nil BloodType lets the recommender pick the
// most critical type.
type Request struct {
	RequestID  id.RequestID
	BloodType  *id.BloodType
	Idempotent bool
}

// Result reports what was appealed for and to whom.
type Result struct {
	Recommendation urgency.Recommendation
	Selected       bool
	Stock          inventory.Snapshot
	UnitsNeeded    int
	Dispatch       *notification.Result
}

type Service struct {
	recommender Recommender
	stock       StockReader
	ranker      Ranker
	dispatcher  Dispatcher
	logger      *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(recommender Recommender, stock StockReader, ranker Ranker, dispatcher Dispatcher, opts ...Option) (*Service, error) {
	if recommender == nil || stock == nil || ranker == nil || dispatcher == nil {
		return nil, fmt.Errorf("recommender, stock reader, ranker and dispatcher are required")
	}
	s := &Service{
		recommender: recommender,
		stock:       stock,
		ranker:      ranker,
		dispatcher:  dispatcher,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run recommends, ranks exact-match donors that may be notified, and sends
// them the appeal. The number of donors asked is bounded by the ranking cap
// for the shortfall against the optimal stock level.
//
// Errors: CodeUnavailable when inventory, demand or donors cannot be read;
// the dispatch itself reports per-donor failures in Result.Dispatch.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	rec, err := s.recommender.Recommend(ctx, req.BloodType)
	if err != nil {
		return nil, err
	}
	if rec.StoreUnavailable {
		return nil, dErrors.Wrap(rec.StoreErr, dErrors.CodeUnavailable, "appeal needs inventory and demand")
	}
	bt := rec.BloodType

	snapshot, err := s.stock.ByType(ctx, bt)
	if err != nil {
		return nil, err
	}
	unitsNeeded := min(max(snapshot.OptimalUnits-snapshot.CurrentUnits, 1), matching.MaxUnitsNeeded)

	ranked, err := s.ranker.Rank(ctx, matching.RankRequest{
		BloodType:   bt,
		UnitsNeeded: unitsNeeded,
	})
	if err != nil {
		return nil, err
	}
	if ranked.Outcome == matching.OutcomeStoreUnavailable {
		return nil, dErrors.Wrap(ranked.StoreErr, dErrors.CodeUnavailable, "appeal needs donors")
	}

	recipients := make([]id.DonorID, 0, len(ranked.Donors))
	for _, d := range ranked.Donors {
		if d.ExactMatch && d.EligibleToNotify {
			recipients = append(recipients, d.ID)
		}
	}

	dispatched, err := s.dispatcher.Dispatch(ctx, recipients, notification.Request{
		RequestID:  req.RequestID,
		EventType:  notification.EventLowStock,
		BloodType:  bt,
		Units:      snapshot.CurrentUnits,
		Message:    rec.Message,
		Idempotent: req.Idempotent,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "low stock appeal sent",
		"request_id", dispatched.RequestID,
		"http_request_id", requestcontext.RequestID(ctx),
		"blood_type", bt,
		"appeal", rec.Appeal,
		"current_units", snapshot.CurrentUnits,
		"recipients", len(recipients),
		"success", dispatched.SuccessCount,
	)
	return &Result{
		Recommendation: rec.Recommendation,
		Selected:       rec.Selected,
		Stock:          snapshot,
		UnitsNeeded:    unitsNeeded,
		Dispatch:       dispatched,
	}, nil
}
