// Package idgen generates the 64-bit exchange IDs the spec requires to
// uniquely identify an in-flight exchange with high probability (§3). Raw
// platform entropy from crypto/rand is whitened through a keyed BLAKE2b hash
// over a monotonic counter, rather than returned directly: a per-Generator
// random key (itself drawn from crypto/rand once at construction) means a
// weak or predictable platform RNG cannot make consecutive IDs guessable
// from each other, while the counter guarantees two calls never hash the
// same input twice.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Generator produces exchange IDs. The zero value is not usable; use New.
type Generator struct {
	mu      sync.Mutex
	counter uint64
	key     [32]byte
}

// New creates a Generator seeded from crypto/rand.
func New() (*Generator, error) {
	g := &Generator{}
	if _, err := rand.Read(g.key[:]); err != nil {
		return nil, err
	}
	return g, nil
}

// Next returns a fresh exchange ID. Safe for concurrent use.
func (g *Generator) Next() uint64 {
	g.mu.Lock()
	g.counter++
	counter := g.counter
	g.mu.Unlock()

	var input [16]byte
	binary.LittleEndian.PutUint64(input[0:8], counter)
	if _, err := rand.Read(input[8:16]); err != nil {
		// crypto/rand failure is effectively unrecoverable on any real
		// platform; fall back to the counter alone rather than panic so a
		// starved entropy pool degrades to "unique" instead of crashing.
	}

	h, err := blake2b.New(8, g.key[:])
	if err != nil {
		// Key length is fixed at 32 bytes and output size at 8, both valid
		// per blake2b.New's contract, so this is unreachable in practice.
		return counter
	}
	h.Write(input[:])
	return binary.LittleEndian.Uint64(h.Sum(nil))
}
