package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimHash_Deterministic(t *testing.T) {
	title := "Global shipping rates surge amid port congestion"
	assert.Equal(t, SimHash(title), SimHash(title))
}

func TestSimHash_EmptyText(t *testing.T) {
	assert.Equal(t, uint64(0), SimHash(""))
	assert.Equal(t, uint64(0), SimHash("   "))
	assert.Equal(t, uint64(0), SimHash("! ? ."))
}

func TestSimHash_SimilarTitlesCloseDistance(t *testing.T) {
	a := SimHash("Global shipping rates surge amid port congestion")
	b := SimHash("Global shipping rates soar amid port congestion")
	require.NotZero(t, a)
	require.NotZero(t, b)

	// One word changed out of seven: the fingerprints should land well
	// inside the near-duplicate threshold.
	assert.LessOrEqual(t, HammingDistance(a, b), DefaultSimHashThreshold)
}

func TestSimHash_UnrelatedTitlesFarApart(t *testing.T) {
	a := SimHash("Global shipping rates surge amid port congestion")
	b := SimHash("Airline cargo capacity expands on transatlantic lanes")
	assert.Greater(t, HammingDistance(a, b), DefaultSimHashThreshold)
}

func TestSimHash_CJKTokenization(t *testing.T) {
	a := SimHash("上海港集装箱吞吐量创新高")
	b := SimHash("上海港集装箱吞吐量创历史新高")
	require.NotZero(t, a)
	require.NotZero(t, b)
	assert.LessOrEqual(t, HammingDistance(a, b), 8)

	c := SimHash("欧洲铁路货运需求下降")
	assert.Greater(t, HammingDistance(a, c), DefaultSimHashThreshold)
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, HammingDistance(0xdeadbeef, 0xdeadbeef))
	assert.Equal(t, 1, HammingDistance(0b1000, 0b0000))
	assert.Equal(t, 64, HammingDistance(0, ^uint64(0)))
}

func TestSimilar_ZeroHashNeverMatches(t *testing.T) {
	assert.False(t, Similar(0, 0, DefaultSimHashThreshold))
	assert.False(t, Similar(0, SimHash("some title"), DefaultSimHashThreshold))
}

func TestSimilar_Threshold(t *testing.T) {
	a := uint64(0b1111)
	b := uint64(0b1000)
	assert.True(t, Similar(a, b, 3))
	assert.False(t, Similar(a, b, 2))
}
