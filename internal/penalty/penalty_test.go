package penalty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "bondly/pkg/domain-errors"
)

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultSchedule())
	require.NoError(t, err)
	return engine
}

func TestRateMatchesSchedule(t *testing.T) {
	engine := newDefaultEngine(t)

	cases := []struct {
		severity Severity
		tier     int
		want     int
	}{
		{Hard, 0, 0},
		{Hard, 1, 3000},
		{Hard, 2, 6000},
		{Hard, 3, 10000},
		{Soft, 0, 0},
		{Soft, 1, 1500},
		{Soft, 2, 2000},
		{Soft, 3, 10000},
	}
	for _, tc := range cases {
		got, err := engine.Rate(tc.severity, tc.tier)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s tier %d", tc.severity, tc.tier)
	}
}

func TestRateClampsHighTiers(t *testing.T) {
	engine := newDefaultEngine(t)

	for _, severity := range []Severity{Hard, Soft} {
		top, err := engine.Rate(severity, engine.MaxTier())
		require.NoError(t, err)
		for tier := engine.MaxTier(); tier < engine.MaxTier()+10; tier++ {
			got, err := engine.Rate(severity, tier)
			require.NoError(t, err)
			assert.Equal(t, top, got, "%s tier %d should clamp", severity, tier)
		}
	}
}

func TestRateClampsNegativeTiers(t *testing.T) {
	engine := newDefaultEngine(t)
	got, err := engine.Rate(Hard, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestRateRejectsUnknownSeverity(t *testing.T) {
	engine := newDefaultEngine(t)
	_, err := engine.Rate(Severity("catastrophic"), 1)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidSeverityClass))
}

func TestNewEngineValidatesSchedule(t *testing.T) {
	_, err := NewEngine(nil)
	assert.Error(t, err)

	_, err = NewEngine([]Tier{{Hard: 10001, Soft: 0}})
	assert.Error(t, err)

	_, err = NewEngine([]Tier{{Hard: 0, Soft: -1}})
	assert.Error(t, err)
}
