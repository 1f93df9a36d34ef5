package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLSHIndex_InsertAndQuery(t *testing.T) {
	idx := NewLSHIndex()
	text := strings.Repeat("Maersk and MSC announced blanked sailings on Asia-Europe services for the coming month. ", 4)
	sig := MinHash(text)

	idx.Insert("a1", sig)
	require.Equal(t, 1, idx.Len())

	matches := idx.Query(sig, DefaultJaccardThreshold)
	require.Len(t, matches, 1)
	assert.Equal(t, "a1", matches[0].ArticleID)
	assert.Equal(t, 1.0, matches[0].Jaccard)
}

func TestLSHIndex_NearDuplicateFound(t *testing.T) {
	idx := NewLSHIndex()
	base := strings.Repeat("Spot rates from Shanghai to Los Angeles jumped 12% week on week as capacity tightened ahead of Golden Week. ", 4)
	idx.Insert("orig", MinHash(base))

	near := base + " Carriers expect the rally to continue."
	matches := idx.Query(MinHash(near), DefaultJaccardThreshold)
	require.NotEmpty(t, matches)
	assert.Equal(t, "orig", matches[0].ArticleID)
}

func TestLSHIndex_UnrelatedNotFound(t *testing.T) {
	idx := NewLSHIndex()
	idx.Insert("orig", MinHash(strings.Repeat("Panama Canal transit restrictions eased after rainfall improved lake levels. ", 4)))

	matches := idx.Query(MinHash(strings.Repeat("A new cold chain warehouse opened near the Dallas airport hub. ", 4)), DefaultJaccardThreshold)
	assert.Empty(t, matches)
}

func TestLSHIndex_DuplicateInsertIgnored(t *testing.T) {
	idx := NewLSHIndex()
	sig := MinHash("The port authority published revised berth schedules for next quarter.")
	idx.Insert("a1", sig)
	idx.Insert("a1", sig)
	assert.Equal(t, 1, idx.Len())
}

func TestLSHIndex_ShortSignatureIgnored(t *testing.T) {
	idx := NewLSHIndex()
	idx.Insert("a1", []uint64{1, 2, 3})
	assert.Equal(t, 0, idx.Len())
	assert.Nil(t, idx.Query([]uint64{1, 2, 3}, 0.5))
}

func TestLSHIndex_SortedBySimilarity(t *testing.T) {
	idx := NewLSHIndex()
	base := strings.Repeat("Forwarders booked extra loader capacity out of Ho Chi Minh City as e-commerce demand surged before the holidays. ", 4)
	idx.Insert("exact", MinHash(base))
	idx.Insert("near", MinHash(base+" Rates followed."))

	matches := idx.Query(MinHash(base), 0.5)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].ArticleID)
	assert.GreaterOrEqual(t, matches[0].Jaccard, matches[1].Jaccard)
}
