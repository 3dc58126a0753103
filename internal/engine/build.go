package engine

import (
	"context"
	"log/slog"
	"sort"

	"github.com/cnscp/cns-orchestrator/internal/keys"
	"github.com/cnscp/cns-orchestrator/internal/metrics"
	"github.com/cnscp/cns-orchestrator/internal/schema"
)

// Candidate is one provider/consumer pairing the matchmaker proposes.
// Provider and Consumer are absolute endpoint prefixes of the form
// cns/{network}/nodes/{node}/contexts/{ctx}.
type Candidate struct {
	Provider string
	Consumer string
	Profile  string
	Version  string
}

// build runs one matchmaker pass over the whole cache and materialises
// every candidate. Failures are logged per candidate so one bad pair
// cannot starve the rest of the pass.
func (e *Engine) build(ctx context.Context) error {
	snap := e.cache.Snapshot()
	cands := candidates(snap)
	slog.Info("build", "candidates", len(cands))

	for _, c := range cands {
		metrics.Candidates.Inc()
		if err := e.materialize(ctx, c); err != nil {
			slog.Error("connection write failed",
				"provider", c.Provider,
				"consumer", c.Consumer,
				"profile", c.Profile,
				"error", err,
			)
		}
	}
	return nil
}

// candidates enumerates provider/consumer pairs over a cache snapshot.
//
// For every network with a recognised orchestrator mode, every provider
// capability is matched against consumer capabilities of the same profile
// and version whose context name equals the provider's context name (the
// scope). ModeBySystem searches the provider's network only; ModeAllSystems
// repeats the search across every network.
//
// Iteration is in sorted key order throughout, so the candidate list is
// deterministic given the key set.
func candidates(snap map[string]string) []Candidate {
	var out []Candidate

	networks := networkNames(snap)
	for _, network := range networks {
		modeValue := snap[schema.OrchestratorKey(network)]
		mode, ok := schema.ParseMode(modeValue)
		if !ok {
			slog.Debug("skipping network: unrecognised mode",
				"network", network, "orchestrator", modeValue)
			continue
		}

		for _, node := range sortedSegment(snap, schema.NodeNamesPattern(network), schema.PartNode) {
			for _, ctx := range sortedSegment(snap, schema.ContextNamesPattern(network, node), schema.PartContext) {
				provider := schema.EndpointPrefix(network, node, ctx)
				versions := keys.Filter(snap, schema.CapabilityVersionsPattern(provider, schema.RoleProvider))
				for _, key := range sortedKeys(versions) {
					profile := keys.Split(key)[schema.PartProfile]
					version := versions[key]
					out = append(out, emitConsumers(snap, networks, mode, network, provider, ctx, profile, version)...)
				}
			}
		}
	}
	return out
}

// emitConsumers applies the scope mode: the per-network matcher runs on
// the provider's network under bysystem, and on every network under
// allsystems.
func emitConsumers(snap map[string]string, networks []string, mode schema.Mode, network, provider, scope, profile, version string) []Candidate {
	var out []Candidate
	switch mode {
	case schema.ModeAllSystems:
		for _, other := range networks {
			out = append(out, matchNetwork(snap, other, provider, scope, profile, version)...)
		}
	case schema.ModeBySystem:
		out = matchNetwork(snap, network, provider, scope, profile, version)
	}
	return out
}

// matchNetwork pairs the provider with every consumer capability in one
// network whose context name equals the scope and whose declared version
// equals the provider's.
func matchNetwork(snap map[string]string, network, provider, scope, profile, version string) []Candidate {
	var out []Candidate
	for _, node := range sortedSegment(snap, schema.NodeNamesPattern(network), schema.PartNode) {
		for _, ctx := range sortedSegment(snap, schema.ContextNamesPattern(network, node), schema.PartContext) {
			if ctx != scope {
				continue
			}
			consumer := schema.EndpointPrefix(network, node, ctx)
			pattern := schema.CapabilityVersionKey(consumer, schema.RoleConsumer, profile)
			for _, v := range keys.Filter(snap, pattern) {
				if v != version {
					continue
				}
				out = append(out, Candidate{
					Provider: provider,
					Consumer: consumer,
					Profile:  profile,
					Version:  version,
				})
			}
		}
	}
	return out
}

// networkNames returns the sorted names of every declared network.
func networkNames(snap map[string]string) []string {
	return sortedSegment(snap, schema.NetworkNamesPattern(), schema.PartNetwork)
}

// sortedSegment filters the snapshot and returns the segment at index
// part of every matching key, sorted.
func sortedSegment(snap map[string]string, pattern string, part int) []string {
	matches := keys.Filter(snap, pattern)
	out := make([]string, 0, len(matches))
	for k := range matches {
		out = append(out, keys.Split(k)[part])
	}
	sort.Strings(out)
	return out
}

// sortedKeys returns the keys of m in sorted order.
func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
