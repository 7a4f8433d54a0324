package raft

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// randomDuration returns a uniformly distributed duration in [min, max].
// Election timeouts must not be generated from math/rand's default source
// shared across goroutines; crypto/rand sidesteps that without needing a
// per-node *rand.Rand and a mutex to guard it.
func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := uint64(max-min) + 1
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return min
	}
	return min + time.Duration(binary.BigEndian.Uint64(buf[:])%span)
}
