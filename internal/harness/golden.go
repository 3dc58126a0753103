package harness

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunGolden executes a scenario and compares the full write trace against
// a golden file in testdata/golden/{name}.golden.
//
// The trace is deterministic: the engine walks sorted key sets, connection
// ids come from the sequential test generator, and the single-writer loop
// fixes the interleaving of build writes and propagation echoes. To
// regenerate golden files run:
//
//	go test ./internal/harness -update
func RunGolden(t *testing.T, s *Scenario, name string) {
	t.Helper()

	result := Run(t, s)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(strings.Join(result.Trace, "\n")+"\n"))
}
