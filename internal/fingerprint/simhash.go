package fingerprint

import (
	"crypto/md5"
	"encoding/binary"
	"math/bits"
	"strings"
)

// DefaultSimHashThreshold is the Hamming distance at or below which two
// titles are considered near-duplicates.
const DefaultSimHashThreshold = 3

// SimHash computes the 64-bit SimHash of a title. CJK ideographs are
// tokenized one per character; Latin text is tokenized as lowercased word
// runs of two or more letters. All tokens carry equal weight. Returns 0
// for text that yields no tokens.
func SimHash(text string) uint64 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return 0
	}

	var v [64]int
	for _, tok := range tokens {
		h := hashToken(tok)
		for i := 0; i < 64; i++ {
			if h&(1<<uint(i)) != 0 {
				v[i]++
			} else {
				v[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if v[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// HammingDistance counts differing bits between two SimHash values.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two SimHash values are within the threshold
// Hamming distance. Zero hashes (empty titles) never match anything.
func Similar(a, b uint64, threshold int) bool {
	if a == 0 || b == 0 {
		return false
	}
	return HammingDistance(a, b) <= threshold
}

// hashToken maps a token to the leading 64 bits of its MD5 digest,
// little-endian to stay bit-compatible with persisted fingerprints.
func hashToken(tok string) uint64 {
	sum := md5.Sum([]byte(tok))
	return binary.LittleEndian.Uint64(sum[:8])
}

func isCJK(r rune) bool {
	return (r >= 0x4e00 && r <= 0x9fff) || (r >= 0x3400 && r <= 0x4dbf)
}

func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() >= 2 {
			tokens = append(tokens, strings.ToLower(word.String()))
		}
		word.Reset()
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(r))
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
