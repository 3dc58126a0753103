package engine

import (
	"sync"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// IDGenerator mints connection identifiers.
// Implemented by ShortUUIDGenerator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// ShortUUIDGenerator produces base57-encoded UUIDv4 identifiers.
//
// Short UUIDs keep connection keys readable while staying collision-safe
// across restarts; the per-side counter scheme some deployments used
// restarts at zero and is not safe to reuse.
//
// Thread-safety: stateless, safe for concurrent use.
type ShortUUIDGenerator struct{}

// Generate mints a fresh identifier, e.g. "mw2vPkRmY6HWWVdoJanF2P".
func (ShortUUIDGenerator) Generate() string {
	return shortuuid.DefaultEncoder.Encode(uuid.New())
}

// FixedGenerator returns predetermined identifiers for tests.
//
// Panics when exhausted: a test that mints more connections than it
// declared ids for is misconfigured, and failing fast surfaces that.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator returning ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined identifier.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
