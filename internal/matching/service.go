package matching

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hemolink/internal/compatibility"
	"hemolink/internal/eligibility"
	"hemolink/internal/matching/metrics"
	"hemolink/internal/scoring"
	id "hemolink/pkg/domain"
	dErrors "hemolink/pkg/domain-errors"
	"hemolink/pkg/requestcontext"
)

// DonorStore reads donor snapshots. Implementations return every donor whose
// blood type is in types in a single batched read.
type DonorStore interface {
	ListByBloodTypes(ctx context.Context, types []id.BloodType) ([]Donor, error)
}

// ProfileStore joins contact profiles for a batch of donors.
type ProfileStore interface {
	FetchProfiles(ctx context.Context, ids []id.DonorID) (map[id.DonorID]Profile, error)
}

// cancellation is checked every this many scored donors
const cancelCheckEvery = 64

var tracer = otel.Tracer("hemolink/internal/matching")

// Service ranks compatible, eligible donors for a blood request. It performs
// no writes, so an aborted call leaves no partial state.
type Service struct {
	donors    DonorStore
	profiles  ProfileStore
	resolver  *compatibility.Resolver
	evaluator *eligibility.Evaluator
	scorer    *scoring.Engine
	distance  DistanceProvider
	capPolicy CapPolicy
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithResolver(r *compatibility.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

func WithEvaluator(e *eligibility.Evaluator) Option {
	return func(s *Service) {
		s.evaluator = e
	}
}

func WithScorer(e *scoring.Engine) Option {
	return func(s *Service) {
		s.scorer = e
	}
}

// WithDistanceProvider sets the default distance strategy. Defaults to
// Fixed{0} (unknown distance).
func WithDistanceProvider(p DistanceProvider) Option {
	return func(s *Service) {
		s.distance = p
	}
}

func WithCapPolicy(p CapPolicy) Option {
	return func(s *Service) {
		s.capPolicy = p
	}
}

// New constructs the ranking service. Stores are required; the resolver,
// evaluator and scorer default to the standard tables.
func New(donors DonorStore, profiles ProfileStore, opts ...Option) (*Service, error) {
	if donors == nil {
		return nil, fmt.Errorf("donor store is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store is required")
	}

	svc := &Service{
		donors:    donors,
		profiles:  profiles,
		evaluator: eligibility.Default(),
		distance:  Fixed{},
		capPolicy: CapOneAndHalf,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.resolver == nil {
		svc.resolver = compatibility.MustDefault()
	}
	if svc.scorer == nil {
		scorer, err := scoring.New()
		if err != nil {
			return nil, err
		}
		svc.scorer = scorer
	}
	if _, err := ParseCapPolicy(string(svc.capPolicy)); err != nil {
		return nil, err
	}
	return svc, nil
}

// CapPolicy returns the policy used to bound result lists.
func (s *Service) CapPolicy() CapPolicy {
	return s.capPolicy
}

// Rank returns compatible donors for req ordered by exact match, distance and
// donation burden, bounded by the cap policy.
//
// Malformed input fails with CodeValidation. A failing store read does not
// fail the call: it yields an empty result with OutcomeStoreUnavailable.
// Context cancellation aborts with CodeTimeout.
func (s *Service) Rank(ctx context.Context, req RankRequest) (*RankResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "matching.Rank", trace.WithAttributes(
		attribute.String("blood_type", req.BloodType.String()),
		attribute.Int("units_needed", req.UnitsNeeded),
	))
	defer span.End()
	defer func() { s.metrics.ObserveRankLatency(time.Since(start)) }()

	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	now := req.Now
	if now.IsZero() {
		now = requestcontext.Now(ctx)
	}
	provider := req.Distance
	if provider == nil {
		provider = s.distance
	}
	limit := s.capPolicy.Cap(req.UnitsNeeded)

	compatible := s.resolver.CompatibleDonorTypes(req.BloodType)

	readStart := time.Now()
	donors, err := s.donors.ListByBloodTypes(ctx, compatible)
	s.metrics.ObserveStoreLatency("donors", time.Since(readStart))
	if err != nil {
		return s.storeFailure(ctx, span, req, limit, "list donors", err)
	}

	pool := s.filter(req, donors, now)
	if err := ctx.Err(); err != nil {
		return nil, aborted(err)
	}

	var profiles map[id.DonorID]Profile
	if len(pool) > 0 {
		ids := make([]id.DonorID, len(pool))
		for i, d := range pool {
			ids[i] = d.ID
		}
		readStart = time.Now()
		profiles, err = s.profiles.FetchProfiles(ctx, ids)
		s.metrics.ObserveStoreLatency("profiles", time.Since(readStart))
		if err != nil {
			return s.storeFailure(ctx, span, req, limit, "fetch profiles", err)
		}
	}

	matches := make([]MatchedDonor, 0, len(pool))
	for i, d := range pool {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, aborted(err)
			}
		}
		profile, ok := profiles[d.ID]
		if !ok {
			s.logger.DebugContext(ctx, "donor has no profile, skipping",
				"request_id", requestcontext.RequestID(ctx),
				"donor_id", d.ID,
			)
			continue
		}
		matches = append(matches, s.match(req.BloodType, d, profile, provider, now))
	}

	SortMatches(req.BloodType, matches)

	eligible := 0
	for _, m := range matches {
		if m.EligibleToNotify {
			eligible++
		}
	}

	result := &RankResult{
		Donors:     truncate(matches, limit),
		Cap:        limit,
		CapPolicy:  s.capPolicy,
		Outcome:    outcomeFor(eligible, req.UnitsNeeded),
		Candidates: len(matches),
		Eligible:   eligible,
	}

	s.metrics.ObserveCandidates(len(matches))
	s.metrics.IncrementOutcome(string(result.Outcome), req.BloodType.String())
	span.SetAttributes(
		attribute.String("outcome", string(result.Outcome)),
		attribute.Int("candidates", result.Candidates),
		attribute.Int("cap", limit),
	)
	s.logger.InfoContext(ctx, "donors ranked",
		"request_id", requestcontext.RequestID(ctx),
		"blood_type", req.BloodType,
		"units_needed", req.UnitsNeeded,
		"candidates", result.Candidates,
		"returned", len(result.Donors),
		"cap", limit,
		"outcome", result.Outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// filter keeps compatible, non-excluded donors and drops ineligible ones
// unless the request asks to see them.
func (s *Service) filter(req RankRequest, donors []Donor, now time.Time) []Donor {
	excluded := make(map[id.DonorID]struct{}, len(req.ExcludeIDs))
	for _, donorID := range req.ExcludeIDs {
		excluded[donorID] = struct{}{}
	}

	seen := make(map[id.DonorID]struct{}, len(donors))
	pool := make([]Donor, 0, len(donors))
	for _, d := range donors {
		if _, dup := seen[d.ID]; dup {
			continue
		}
		seen[d.ID] = struct{}{}
		if _, skip := excluded[d.ID]; skip {
			continue
		}
		// stores may over-fetch; the resolver is authoritative
		if !s.resolver.CanDonate(d.BloodType, req.BloodType) {
			continue
		}
		if !req.IncludeIneligible && !s.evaluator.IsEligible(d.LastDonation, now) {
			continue
		}
		pool = append(pool, d)
	}
	return pool
}

func (s *Service) match(requested id.BloodType, d Donor, p Profile, provider DistanceProvider, now time.Time) MatchedDonor {
	distance := provider.DistanceKm(d)
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		distance = 0
	}
	score := s.scorer.Score(
		scoring.Input{LastDonation: d.LastDonation, Attributes: d.Attributes},
		scoring.Context{Now: now, DistanceKm: distance},
	)
	return MatchedDonor{
		ID:               d.ID,
		Name:             p.DisplayName(),
		BloodType:        d.BloodType,
		ExactMatch:       d.BloodType == requested,
		DistanceKm:       distance,
		LastDonation:     d.LastDonation,
		Score:            score.Value,
		Tier:             score.Tier,
		Breakdown:        score.Breakdown,
		EligibleToNotify: s.evaluator.IsEligible(d.LastDonation, now),
		Email:            p.Email,
		Phone:            p.Phone,
	}
}

func (s *Service) storeFailure(ctx context.Context, span trace.Span, req RankRequest, limit int, op string, err error) (*RankResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, aborted(ctxErr)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, op+" failed")
	s.metrics.IncrementOutcome(string(OutcomeStoreUnavailable), req.BloodType.String())
	s.logger.ErrorContext(ctx, "donor store unavailable",
		"request_id", requestcontext.RequestID(ctx),
		"blood_type", req.BloodType,
		"operation", op,
		"error", err,
	)
	return &RankResult{
		Donors:    []MatchedDonor{},
		Cap:       limit,
		CapPolicy: s.capPolicy,
		Outcome:   OutcomeStoreUnavailable,
		StoreErr:  dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed"),
	}, nil
}

func aborted(err error) error {
	return dErrors.Wrap(err, dErrors.CodeTimeout, "ranking aborted")
}
