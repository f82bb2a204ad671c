package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// --------------------------------------------------------------------------
// Seeds and Hashing
// --------------------------------------------------------------------------

// UintKey is the hashed form of a string key, used to pick a shard
type UintKey uint64

// GenerateSeed returns a random seed so that two databases in the same
// process distribute the same keys differently
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// HashString hashes s with FNV-1a, mixing the seed into the offset basis
func HashString(s string, seed uint64) UintKey {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return UintKey(hash)
}

// ShardIndex maps a hashed key onto one of n shards.
// The low bits of FNV-1a are weak for short keys, so the higher bits are used.
func ShardIndex(key UintKey, n int) int {
	if n <= 1 {
		return 0
	}
	return int((uint64(key) >> 7) % uint64(n))
}
