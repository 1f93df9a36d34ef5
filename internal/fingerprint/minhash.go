package fingerprint

import (
	"crypto/sha1"
	"encoding/binary"
	"math/rand"
	"regexp"
	"strings"
)

const (
	// NumPerm is the MinHash signature length.
	NumPerm = 128
	// ShingleSize is the character n-gram width used for shingling.
	ShingleSize = 5
	// DefaultJaccardThreshold is the estimator value at or above which two
	// bodies are considered near-duplicate content.
	DefaultJaccardThreshold = 0.85

	maxHash       = (1 << 32) - 1
	mersennePrime = (1 << 61) - 1
)

// hashParams holds the (a, b) coefficients of the universal hash family
// (a*x + b) mod mersennePrime. Deterministically seeded so every process
// generates the same permutations and signatures stay comparable across
// restarts.
var hashParams = generateHashParams(NumPerm, 42)

type hashParam struct{ a, b uint64 }

func generateHashParams(n int, seed int64) []hashParam {
	rng := rand.New(rand.NewSource(seed))
	params := make([]hashParam, n)
	for i := range params {
		params[i] = hashParam{
			a: uint64(rng.Int63n(mersennePrime-1)) + 1,
			b: uint64(rng.Int63n(mersennePrime)),
		}
	}
	return params
}

var shingleSpaceRe = regexp.MustCompile(`\s+`)

// shingle builds the set of overlapping k-character windows over the
// lowercased, whitespace-collapsed text.
func shingle(text string, k int) map[string]struct{} {
	text = shingleSpaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	out := make(map[string]struct{})
	if text == "" {
		return out
	}
	runes := []rune(text)
	if len(runes) < k {
		out[text] = struct{}{}
		return out
	}
	for i := 0; i+k <= len(runes); i++ {
		out[string(runes[i:i+k])] = struct{}{}
	}
	return out
}

// hashShingle maps a shingle to a 32-bit value via the leading bytes of
// its SHA-1 digest.
func hashShingle(s string) uint64 {
	sum := sha1.Sum([]byte(s))
	return uint64(binary.LittleEndian.Uint32(sum[:4]))
}

// MinHash computes the 128-value MinHash signature of body text.
// Returns nil when the text produces no shingles.
func MinHash(text string) []uint64 {
	shingles := shingle(text, ShingleSize)
	if len(shingles) == 0 {
		return nil
	}

	hashed := make([]uint64, 0, len(shingles))
	for s := range shingles {
		hashed = append(hashed, hashShingle(s))
	}

	sig := make([]uint64, NumPerm)
	for i, p := range hashParams {
		min := uint64(maxHash)
		for _, h := range hashed {
			v := (p.a*h + p.b) % mersennePrime & maxHash
			if v < min {
				min = v
			}
		}
		sig[i] = min
	}
	return sig
}

// Jaccard estimates the Jaccard similarity of the underlying shingle sets
// as the fraction of equal signature positions. The estimator is
// symmetric: Jaccard(a, b) == Jaccard(b, a). Signatures of unequal length
// estimate to 0.
func Jaccard(a, b []uint64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	matches := 0
	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
