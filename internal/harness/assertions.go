package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cnscp/cns-orchestrator/internal/keys"
)

// assertExpectations checks the scenario's declared key expectations
// against the final store contents.
func assertExpectations(t *testing.T, s *Scenario, r *Result) {
	t.Helper()

	dump := r.Store.Dump()
	for key, want := range s.ExpectKeys {
		got, ok := dump[key]
		if assert.True(t, ok, "scenario %s: expected key %s to exist", s.Name, key) {
			assert.Equal(t, want, got, "scenario %s: value of %s", s.Name, key)
		}
	}
	for _, pattern := range s.AbsentPatterns {
		matches := keys.Filter(dump, pattern)
		assert.Empty(t, matches, "scenario %s: pattern %s must match nothing", s.Name, pattern)
	}
}
