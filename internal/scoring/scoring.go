// Package scoring computes a donor fitness score and its eligibility tier.
// Pure: no I/O, no wall clock. "now" always comes from the caller.
package scoring

import (
	"math"
	"time"

	"hemolink/internal/eligibility"
	dErrors "hemolink/pkg/domain-errors"
)

// Tier is the discretized bucket of a score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

const (
	baseScore         = 100.0
	neverDonatedBonus = 50.0
	recencyBlockDays  = 30
	recencyBlockBonus = 10.0
	recencyBonusCap   = 50.0
)

// Thresholds maps scores to tiers: value >= High is high, value >= Medium
// is medium, anything else is low.
type Thresholds struct {
	High   float64
	Medium float64
}

// DefaultThresholds returns the 130/100 split.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 130, Medium: 100}
}

// Input is the donor data the engine reads.
type Input struct {
	LastDonation *time.Time
	Attributes   map[string]float64
}

// Context carries request-scoped inputs. DistanceKm of zero, negative or
// NaN means unknown and applies no penalty.
type Context struct {
	Now        time.Time
	DistanceKm float64
}

// Adjustment contributes a signed bonus for a donor. Adjustments must be
// pure functions of their input.
type Adjustment struct {
	Name  string
	Apply func(in Input) float64
}

// AttributeAbove awards bonus when the named medical attribute is strictly
// greater than threshold.
func AttributeAbove(attribute string, threshold, bonus float64) Adjustment {
	return Adjustment{
		Name: attribute + "_above",
		Apply: func(in Input) float64 {
			if v, ok := in.Attributes[attribute]; ok && v > threshold {
				return bonus
			}
			return 0
		},
	}
}

// DefaultAdjustments returns the weight rule: +10 above 70 kg.
func DefaultAdjustments() []Adjustment {
	return []Adjustment{AttributeAbove("weight", 70, 10)}
}

// Breakdown explains how a score was assembled.
type Breakdown struct {
	Base        float64            `json:"base"`
	Recency     float64            `json:"recency"`
	Distance    float64            `json:"distance"`
	Adjustments map[string]float64 `json:"adjustments,omitempty"`
}

// Result is the engine output.
type Result struct {
	Value     float64
	Tier      Tier
	Breakdown Breakdown
}

// Engine scores donors. Safe for concurrent use.
type Engine struct {
	thresholds  Thresholds
	adjustments []Adjustment
}

// Option configures the Engine.
type Option func(*Engine)

// WithThresholds overrides the tier thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithAdjustments replaces the adjustment list. Pass none to disable
// medical-attribute bonuses.
func WithAdjustments(adjustments ...Adjustment) Option {
	return func(e *Engine) {
		e.adjustments = append([]Adjustment(nil), adjustments...)
	}
}

// New builds an Engine with default thresholds and adjustments unless
// overridden. Thresholds with High below Medium are a configuration error.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		thresholds:  DefaultThresholds(),
		adjustments: DefaultAdjustments(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.thresholds.High < e.thresholds.Medium {
		return nil, dErrors.New(dErrors.CodeConfiguration, "high tier threshold must not be below medium")
	}
	for _, a := range e.adjustments {
		if a.Apply == nil {
			return nil, dErrors.New(dErrors.CodeConfiguration, "adjustment "+a.Name+" has no function")
		}
	}
	return e, nil
}

// Score computes the donor's fitness value and tier.
func (e *Engine) Score(in Input, ctx Context) Result {
	b := Breakdown{Base: baseScore}

	if in.LastDonation == nil {
		b.Recency = neverDonatedBonus
	} else {
		days := eligibility.ElapsedDays(*in.LastDonation, ctx.Now)
		if days > 0 {
			b.Recency = math.Min(recencyBonusCap, float64(days/recencyBlockDays)*recencyBlockBonus)
		}
	}

	if d := ctx.DistanceKm; d > 0 && !math.IsNaN(d) {
		b.Distance = -d
	}

	value := b.Base + b.Recency + b.Distance
	for _, a := range e.adjustments {
		delta := a.Apply(in)
		if delta == 0 {
			continue
		}
		if b.Adjustments == nil {
			b.Adjustments = make(map[string]float64, len(e.adjustments))
		}
		b.Adjustments[a.Name] += delta
		value += delta
	}

	return Result{Value: value, Tier: e.TierFor(value), Breakdown: b}
}

// TierFor maps a raw score to its tier.
func (e *Engine) TierFor(value float64) Tier {
	switch {
	case value >= e.thresholds.High:
		return TierHigh
	case value >= e.thresholds.Medium:
		return TierMedium
	default:
		return TierLow
	}
}
