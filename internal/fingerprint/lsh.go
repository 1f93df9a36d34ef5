package fingerprint

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"sync"
)

const (
	// NumBands and RowsPerBand partition the 128-value signature for LSH.
	// Two signatures are candidate pairs when any band is identical.
	NumBands    = 16
	RowsPerBand = 8
)

// Match is one LSH candidate verified against the full Jaccard estimator.
type Match struct {
	ArticleID string
	Jaccard   float64
}

// LSHIndex is the in-process banded MinHash index used by content-level
// deduplication. It is transient: rebuilt from persisted signatures on
// startup. Safe for concurrent use; dedup readers proceed in parallel
// while an insert briefly holds the write lock.
type LSHIndex struct {
	mu         sync.RWMutex
	buckets    [NumBands]map[uint64][]string
	signatures map[string][]uint64
}

// NewLSHIndex returns an empty index.
func NewLSHIndex() *LSHIndex {
	idx := &LSHIndex{signatures: make(map[string][]uint64)}
	for i := range idx.buckets {
		idx.buckets[i] = make(map[uint64][]string)
	}
	return idx
}

// Insert adds an article's signature to all band buckets.
// Signatures shorter than the banded width are ignored.
func (idx *LSHIndex) Insert(articleID string, sig []uint64) {
	if len(sig) < NumBands*RowsPerBand {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.signatures[articleID]; exists {
		return
	}
	idx.signatures[articleID] = sig
	for band := 0; band < NumBands; band++ {
		h := bandHash(sig, band)
		idx.buckets[band][h] = append(idx.buckets[band][h], articleID)
	}
}

// Query returns articles whose signature shares at least one band with
// sig and whose full Jaccard estimate meets the threshold, sorted by
// descending similarity.
func (idx *LSHIndex) Query(sig []uint64, threshold float64) []Match {
	if len(sig) < NumBands*RowsPerBand {
		return nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	candidates := make(map[string]struct{})
	for band := 0; band < NumBands; band++ {
		h := bandHash(sig, band)
		for _, id := range idx.buckets[band][h] {
			candidates[id] = struct{}{}
		}
	}

	var matches []Match
	for id := range candidates {
		j := Jaccard(sig, idx.signatures[id])
		if j >= threshold {
			matches = append(matches, Match{ArticleID: id, Jaccard: j})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Jaccard > matches[j].Jaccard })
	return matches
}

// Len returns the number of indexed signatures.
func (idx *LSHIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.signatures)
}

// bandHash hashes one band of the signature into a bucket key.
func bandHash(sig []uint64, band int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	start := band * RowsPerBand
	for _, v := range sig[start : start+RowsPerBand] {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return h.Sum64()
}
