package feesplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitConservesEveryUnit(t *testing.T) {
	amounts := []int64{0, 1, 3, 99, 100, 150, 999, 1000, 10007, 123456789}
	rates := []int{0, 1, 333, 1500, 4000, 5000, 9999, 10000}

	for _, amount := range amounts {
		for _, rate := range rates {
			shares, err := Split(amount, rate)
			require.NoError(t, err)
			assert.Equal(t, amount, shares.Total(), "amount %d rate %d", amount, rate)
			assert.GreaterOrEqual(t, shares.Payee, int64(0))
			assert.GreaterOrEqual(t, shares.Property, int64(0))
			assert.LessOrEqual(t, shares.Treasury, int64(1), "treasury takes at most the division remainder")
		}
	}
}

func TestSplitKnownValues(t *testing.T) {
	// 40% property fee, the default rent fee of the original deployment.
	shares, err := Split(1000, 4000)
	require.NoError(t, err)
	assert.Equal(t, Shares{Payee: 600, Property: 400}, shares)

	// Both floored shares drop half a unit; the treasury picks it up.
	shares, err = Split(101, 5000)
	require.NoError(t, err)
	assert.Equal(t, Shares{Payee: 50, Property: 50, Treasury: 1}, shares)
}

func TestSplitValidatesInputs(t *testing.T) {
	_, err := Split(-1, 4000)
	assert.Error(t, err)

	_, err = Split(100, -1)
	assert.Error(t, err)

	_, err = Split(100, 10001)
	assert.Error(t, err)
}

func TestSplitRejectsOverflowingAmounts(t *testing.T) {
	shares, err := Split(MaxAmount, 9999)
	require.NoError(t, err)
	assert.Equal(t, int64(MaxAmount), shares.Total())

	_, err = Split(MaxAmount+1, 9999)
	assert.Error(t, err)

	_, err = Portion(MaxAmount+1, 1)
	assert.Error(t, err)
}

func TestPortionKnownValues(t *testing.T) {
	got, err := Portion(1000, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(300), got)

	got, err = Portion(999, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got)

	_, err = Portion(100, 10001)
	assert.Error(t, err)
}

func TestPenaltySplitRoutesEverythingToTreasury(t *testing.T) {
	shares, err := PenaltySplit(777)
	require.NoError(t, err)
	assert.Equal(t, Shares{Treasury: 777}, shares)
	assert.Equal(t, int64(777), shares.Total())

	_, err = PenaltySplit(-1)
	assert.Error(t, err)
}
