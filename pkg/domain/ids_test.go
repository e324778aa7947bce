package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hemolink/pkg/domain-errors"
)

// TestParseBloodType_Invariants validates the parsing invariant:
// "blood types must be one of the eight ABO/Rh groups"
func TestParseBloodType_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseBloodType("  ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unknown group", func(t *testing.T) {
		_, err := ParseBloodType("C+")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects missing rh sign", func(t *testing.T) {
		_, err := ParseBloodType("AB")
		require.Error(t, err)
	})

	t.Run("accepts all eight groups", func(t *testing.T) {
		for _, bt := range AllBloodTypes() {
			parsed, err := ParseBloodType(string(bt))
			require.NoError(t, err)
			assert.Equal(t, bt, parsed)
		}
	})

	t.Run("normalizes case and whitespace", func(t *testing.T) {
		parsed, err := ParseBloodType(" ab+ ")
		require.NoError(t, err)
		assert.Equal(t, BloodTypeABPos, parsed)
	})
}

func TestAllBloodTypes_CanonicalOrder(t *testing.T) {
	all := AllBloodTypes()
	require.Len(t, all, 8)
	for i, bt := range all {
		assert.Equal(t, i, bt.Index())
	}
	assert.Equal(t, -1, BloodType("X").Index())

	// callers get their own copy
	all[0] = BloodTypeABPos
	assert.Equal(t, BloodTypeONeg, AllBloodTypes()[0])
}

func TestParseUrgencyLevel(t *testing.T) {
	t.Run("is case-insensitive", func(t *testing.T) {
		for input, want := range map[string]UrgencyLevel{
			"LOW":       UrgencyLow,
			"Medium":    UrgencyMedium,
			" high ":    UrgencyHigh,
			"CRITICAL":  UrgencyCritical,
			"critical ": UrgencyCritical,
		} {
			got, err := ParseUrgencyLevel(input)
			require.NoError(t, err, input)
			assert.Equal(t, want, got)
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := ParseUrgencyLevel("severe")
		require.Error(t, err)
		assert.True(t, dErrors.IsValidation(err))
	})

	t.Run("ranks are totally ordered", func(t *testing.T) {
		assert.True(t, UrgencyCritical.AtLeast(UrgencyHigh))
		assert.True(t, UrgencyHigh.AtLeast(UrgencyHigh))
		assert.False(t, UrgencyMedium.AtLeast(UrgencyHigh))
		assert.Equal(t, -1, UrgencyLevel("bogus").Rank())
	})
}

func TestParseDonorIDs(t *testing.T) {
	t.Run("dedupes preserving order", func(t *testing.T) {
		ids, err := ParseDonorIDs([]string{"b", " a ", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, []DonorID{"b", "a", "c"}, ids)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := ParseDonorIDs([]string{"a", ""})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEqual(t, a, b)
	parsed, err := ParseRequestID(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}
