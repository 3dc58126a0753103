package engine

import (
	"context"
	"log/slog"

	"github.com/cnscp/cns-orchestrator/internal/keys"
	"github.com/cnscp/cns-orchestrator/internal/metrics"
	"github.com/cnscp/cns-orchestrator/internal/schema"
)

// update mirrors a connection-level property write to the opposite
// endpoint, when the write came from the owning side.
//
// key is .../{role}/{profile}/connections/{id}/properties/{p}. The write
// propagates only if the profile declares the property owned by the
// touched role; the peer is resolved through the connection's link
// record. Every missing precondition (unknown mode, absent version,
// undeclared property, non-owner write, missing link) bails quietly:
// these are normal states mid-convergence, not faults.
func (e *Engine) update(ctx context.Context, key, value string) error {
	parts := keys.Split(key)
	network := parts[schema.PartNetwork]
	role, _ := schema.ParseRole(parts[schema.PartRole])
	profile := parts[schema.PartProfile]
	id := parts[schema.PartItem]
	property := parts[schema.PartConnProp]

	if !e.modeRecognised(network) {
		return nil
	}

	endpoint := keys.Prefix(key, schema.PartRole)
	opposite, ok := e.resolveOpposite(network, endpoint, role, profile, property)
	if !ok {
		return nil
	}

	peer, ok := e.cache.Get(schema.ConnectionLinkKey(endpoint, role, profile, id))
	if !ok {
		slog.Debug("update: no link record", "key", key)
		return nil
	}

	metrics.PropertiesPropagated.Inc()
	return e.put(ctx, schema.ConnectionPropertyKey(peer, opposite, profile, id, property), value)
}

// propagate pushes a capability-level default write to every connection
// of the capability, when the write came from the owning side.
//
// key is .../{role}/{profile}/properties/{p}.
func (e *Engine) propagate(ctx context.Context, key, value string) error {
	parts := keys.Split(key)
	network := parts[schema.PartNetwork]
	role, _ := schema.ParseRole(parts[schema.PartRole])
	profile := parts[schema.PartProfile]
	property := parts[schema.PartItem]

	if !e.modeRecognised(network) {
		return nil
	}

	endpoint := keys.Prefix(key, schema.PartRole)
	if _, ok := e.resolveOpposite(network, endpoint, role, profile, property); !ok {
		return nil
	}

	// The link records' trailing segment is the opposite role, so this
	// enumerates the capability's connection ids. The value lands on this
	// side's connection-level property; the resulting watch event mirrors
	// it across to the peer.
	links := e.cache.Filter(schema.ConnectionLinksPattern(endpoint, role, profile))
	for _, linkKey := range sortedKeys(links) {
		id := keys.Split(linkKey)[schema.PartItem]
		metrics.PropertiesPropagated.Inc()
		if err := e.put(ctx, schema.ConnectionPropertyKey(endpoint, role, profile, id, property), value); err != nil {
			return err
		}
	}
	return nil
}

// resolveOpposite looks up the capability version and the profile's
// ownership flag, and resolves the propagation target role. Returns
// false when the write must be ignored.
func (e *Engine) resolveOpposite(network, endpoint string, role schema.Role, profile, property string) (schema.Role, bool) {
	if role == "" {
		return "", false
	}

	version, ok := e.cache.Get(schema.CapabilityVersionKey(endpoint, role, profile))
	if !ok {
		slog.Debug("propagation: capability has no version",
			"endpoint", endpoint, "role", string(role), "profile", profile)
		return "", false
	}

	flag, ok := e.cache.Get(schema.ProviderFlagKey(network, profile, version, property))
	if !ok {
		slog.Debug("propagation: property not declared by profile",
			"profile", profile, "version", version, "property", property)
		return "", false
	}

	opposite, ok := schema.OppositeRole(role, schema.ParseDirection(flag))
	if !ok {
		slog.Debug("propagation: write did not come from the owner",
			"role", string(role), "provider_flag", flag, "property", property)
		return "", false
	}
	return opposite, true
}

// modeRecognised reports whether the network declares a recognised
// reconciliation mode. Propagation no-ops for networks it does not
// orchestrate.
func (e *Engine) modeRecognised(network string) bool {
	value, _ := e.cache.Get(schema.OrchestratorKey(network))
	_, ok := schema.ParseMode(value)
	if !ok {
		slog.Debug("propagation: unrecognised mode", "network", network, "orchestrator", value)
	}
	return ok
}
