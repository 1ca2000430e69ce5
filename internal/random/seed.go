// Package random provides seed generation for deterministic match replays.
//
// A match shares a single seed between the engine (turn order tie-breaks)
// and every competitor (NewGame), so recording the seed is enough to replay
// a match with deterministic competitors.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// SeedOrNew returns seed when non-zero, otherwise a fresh crypto seed.
func SeedOrNew(seed int64) (int64, error) {
	if seed != 0 {
		return seed, nil
	}
	return NewSeed()
}

// Derive mixes a base seed with a stream number (e.g. a round number) so
// each stream gets an independent but reproducible sequence.
func Derive(base int64, stream uint64) int64 {
	// splitmix64 finalizer
	z := uint64(base) + stream*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}
