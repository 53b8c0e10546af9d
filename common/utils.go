package common

import (
	"hash/fnv"
)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// Hash64 returns the 64-bit FNV-1a hash of s. Used for cache discriminants and
// shader names folded into descriptor hashes.
//
// Parameters:
//   - s: the string to hash
//
// Returns:
//   - uint64: the hash value
func Hash64(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// HashCombine mixes two hash values into one. The combination is order dependent.
//
// Parameters:
//   - seed: the running hash
//   - value: the value to fold in
//
// Returns:
//   - uint64: the combined hash
func HashCombine(seed, value uint64) uint64 {
	seed ^= value + 0x9e3779b97f4a7c15 + (seed << 12) + (seed >> 4)
	return seed
}
