// Package harness runs declarative reconciliation scenarios for tests.
//
// A scenario seeds an in-memory store, starts the engine with a short
// debounce window and deterministic connection ids, optionally applies
// further puts through the watch path, waits for the system to go
// quiescent, and then asserts on the resulting key set.
package harness

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cnscp/cns-orchestrator/internal/engine"
	"github.com/cnscp/cns-orchestrator/internal/storetest"
)

// Quiet is the debounce window scenarios run with.
const Quiet = 20 * time.Millisecond

// settleFor is how long the store must stay unchanged to count as
// quiescent.
const settleFor = 8 * Quiet

// deadline bounds a whole scenario run.
const deadline = 5 * time.Second

// Step is one external mutation applied after the engine starts.
// Delete removes the key instead of writing it.
type Step struct {
	Key    string
	Value  string
	Delete bool
}

// Scenario describes one reconciliation case.
type Scenario struct {
	Name string

	// Seed is the store content present before the orchestrator connects.
	Seed map[string]string

	// Steps are puts (or deletes) applied through the watch path once the
	// engine runs.
	Steps []Step

	// ExpectKeys maps keys to the values that must exist after quiescence.
	ExpectKeys map[string]string

	// AbsentPatterns are wildcard patterns that must match no key.
	AbsentPatterns []string
}

// Result exposes the final store to further assertions.
type Result struct {
	Store *storetest.Memory
	Trace []string
}

// Run executes the scenario and applies its expectations.
func Run(t *testing.T, s *Scenario) *Result {
	t.Helper()

	mem := storetest.New()
	mem.Seed(s.Seed)

	eng := engine.New(mem,
		engine.WithQuietPeriod(Quiet),
		engine.WithIDGenerator(newSeqGenerator()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()

	// Give the engine time to load the cache and start watching before
	// external mutations arrive.
	time.Sleep(Quiet / 2)
	for _, step := range s.Steps {
		if step.Delete {
			mem.Delete(step.Key)
			continue
		}
		require.NoError(t, mem.Put(ctx, step.Key, step.Value))
	}

	waitQuiescent(t, mem)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("scenario %s: engine did not stop", s.Name)
	}

	result := &Result{Store: mem, Trace: mem.Trace()}
	assertExpectations(t, s, result)
	return result
}

// waitQuiescent blocks until no mutation has been observed for settleFor,
// or fails the test at the deadline.
func waitQuiescent(t *testing.T, mem *storetest.Memory) {
	t.Helper()

	limit := time.After(deadline)
	for {
		rev := mem.Revision()
		select {
		case <-limit:
			t.Fatal("store did not quiesce")
		case <-time.After(settleFor):
		}
		if mem.Revision() == rev {
			return
		}
	}
}

// seqGenerator mints conn-0001, conn-0002, ... so scenario output is
// stable across runs.
type seqGenerator struct {
	n int
}

func newSeqGenerator() *seqGenerator {
	return &seqGenerator{}
}

func (g *seqGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("conn-%04d", g.n)
}
