package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hemolink/pkg/domain-errors"
)

var now = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func lastDonated(days int) *time.Time {
	t := now.AddDate(0, 0, -days)
	return &t
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func TestScore(t *testing.T) {
	e := newEngine(t)

	t.Run("never donated gets full recency bonus", func(t *testing.T) {
		r := e.Score(Input{}, Context{Now: now})
		assert.Equal(t, 150.0, r.Value)
		assert.Equal(t, TierHigh, r.Tier)
	})

	t.Run("recency bonus per 30-day block", func(t *testing.T) {
		assert.Equal(t, 100.0, e.Score(Input{LastDonation: lastDonated(29)}, Context{Now: now}).Value)
		assert.Equal(t, 110.0, e.Score(Input{LastDonation: lastDonated(30)}, Context{Now: now}).Value)
		assert.Equal(t, 120.0, e.Score(Input{LastDonation: lastDonated(60)}, Context{Now: now}).Value)
	})

	t.Run("recency bonus is capped at 50", func(t *testing.T) {
		assert.Equal(t, 150.0, e.Score(Input{LastDonation: lastDonated(150)}, Context{Now: now}).Value)
		assert.Equal(t, 150.0, e.Score(Input{LastDonation: lastDonated(900)}, Context{Now: now}).Value)
	})

	t.Run("distance is subtracted", func(t *testing.T) {
		r := e.Score(Input{}, Context{Now: now, DistanceKm: 12.5})
		assert.Equal(t, 137.5, r.Value)
		assert.Equal(t, -12.5, r.Breakdown.Distance)
	})

	t.Run("unknown distance applies no penalty", func(t *testing.T) {
		assert.Equal(t, 150.0, e.Score(Input{}, Context{Now: now, DistanceKm: -3}).Value)
	})

	t.Run("weight above 70 adds 10", func(t *testing.T) {
		heavy := e.Score(Input{Attributes: map[string]float64{"weight": 71}}, Context{Now: now})
		assert.Equal(t, 160.0, heavy.Value)
		assert.Equal(t, 10.0, heavy.Breakdown.Adjustments["weight_above"])

		exact := e.Score(Input{Attributes: map[string]float64{"weight": 70}}, Context{Now: now})
		assert.Equal(t, 150.0, exact.Value)
	})
}

func TestScore_Monotonic(t *testing.T) {
	e := newEngine(t)
	in := Input{LastDonation: lastDonated(75)}

	prev := e.Score(in, Context{Now: now, DistanceKm: 0.5}).Value
	for _, d := range []float64{1, 2, 7.5, 30, 120} {
		v := e.Score(in, Context{Now: now, DistanceKm: d}).Value
		assert.Less(t, v, prev, "distance %v", d)
		prev = v
	}

	prev = e.Score(Input{LastDonation: lastDonated(0)}, Context{Now: now}).Value
	for days := 1; days <= 400; days++ {
		v := e.Score(Input{LastDonation: lastDonated(days)}, Context{Now: now}).Value
		assert.GreaterOrEqual(t, v, prev, "days %d", days)
		prev = v
	}
}

func TestTiers(t *testing.T) {
	e := newEngine(t)
	assert.Equal(t, TierHigh, e.TierFor(130))
	assert.Equal(t, TierMedium, e.TierFor(129.9))
	assert.Equal(t, TierMedium, e.TierFor(100))
	assert.Equal(t, TierLow, e.TierFor(99.99))
}

func TestOptions(t *testing.T) {
	t.Run("custom adjustments replace the weight rule", func(t *testing.T) {
		e := newEngine(t, WithAdjustments(AttributeAbove("hemoglobin", 13.5, 5)))
		r := e.Score(Input{Attributes: map[string]float64{"weight": 90, "hemoglobin": 14}}, Context{Now: now})
		assert.Equal(t, 155.0, r.Value)
	})

	t.Run("no adjustments", func(t *testing.T) {
		e := newEngine(t, WithAdjustments())
		r := e.Score(Input{Attributes: map[string]float64{"weight": 90}}, Context{Now: now})
		assert.Equal(t, 150.0, r.Value)
	})

	t.Run("inverted thresholds rejected", func(t *testing.T) {
		_, err := New(WithThresholds(Thresholds{High: 90, Medium: 100}))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	})

	t.Run("nil adjustment rejected", func(t *testing.T) {
		_, err := New(WithAdjustments(Adjustment{Name: "broken"}))
		require.Error(t, err)
	})
}
