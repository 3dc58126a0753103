package engine

import (
	"context"
	"log/slog"

	"github.com/cnscp/cns-orchestrator/internal/keys"
	"github.com/cnscp/cns-orchestrator/internal/metrics"
	"github.com/cnscp/cns-orchestrator/internal/schema"
)

// materialize idempotently writes both sides of one candidate connection.
//
// A connection is doubly linked: a record under each endpoint points at
// the other endpoint's prefix. The id of whichever side already points at
// the peer is reused, so re-materialisation after a partial write never
// forks a second connection. When both sides exist the candidate is
// already fully materialised and nothing is written.
//
// On creation each new side also receives the merged capability defaults:
// the provider's capability-level properties first, then the consumer's,
// so consumer values win on key collision.
func (e *Engine) materialize(ctx context.Context, c Candidate) error {
	provLinks := e.cache.Filter(schema.ConnectionLinksPattern(c.Provider, schema.RoleProvider, c.Profile))
	consLinks := e.cache.Filter(schema.ConnectionLinksPattern(c.Consumer, schema.RoleConsumer, c.Profile))

	id := ""
	addProvider := true
	for _, key := range sortedKeys(provLinks) {
		if provLinks[key] == c.Consumer {
			id = keys.Split(key)[schema.PartItem]
			addProvider = false
			break
		}
	}

	addConsumer := true
	for _, key := range sortedKeys(consLinks) {
		if consLinks[key] == c.Provider {
			id = keys.Split(key)[schema.PartItem]
			addConsumer = false
			break
		}
	}

	if !addProvider && !addConsumer {
		return nil
	}

	defaults := e.connectionDefaults(c)
	if id == "" {
		id = e.ids.Generate()
	}

	if addProvider {
		if err := e.writeSide(ctx, c.Provider, schema.RoleProvider, c, id, defaults); err != nil {
			return err
		}
	}
	if addConsumer {
		if err := e.writeSide(ctx, c.Consumer, schema.RoleConsumer, c, id, defaults); err != nil {
			return err
		}
	}
	return nil
}

// connectionDefaults merges capability-level default properties for a new
// connection: provider first, consumer last so consumer values win.
func (e *Engine) connectionDefaults(c Candidate) map[string]string {
	defaults := make(map[string]string)
	provProps := e.cache.Filter(schema.CapabilityPropertiesPattern(c.Provider, schema.RoleProvider, c.Profile))
	for key, value := range provProps {
		defaults[keys.Split(key)[schema.PartItem]] = value
	}
	consProps := e.cache.Filter(schema.CapabilityPropertiesPattern(c.Consumer, schema.RoleConsumer, c.Profile))
	for key, value := range consProps {
		defaults[keys.Split(key)[schema.PartItem]] = value
	}
	return defaults
}

// writeSide writes one endpoint's link record and its merged properties.
// Puts are sequential, not transactional; a failure part-way leaves a
// partial side that the next build pass completes under the same id.
func (e *Engine) writeSide(ctx context.Context, endpoint string, role schema.Role, c Candidate, id string, defaults map[string]string) error {
	peer := c.Consumer
	if role == schema.RoleConsumer {
		peer = c.Provider
	}

	if err := e.put(ctx, schema.ConnectionLinkKey(endpoint, role, c.Profile, id), peer); err != nil {
		return err
	}
	for _, name := range sortedKeys(defaults) {
		if err := e.put(ctx, schema.ConnectionPropertyKey(endpoint, role, c.Profile, id, name), defaults[name]); err != nil {
			return err
		}
	}

	metrics.ConnectionsWritten.Inc()
	slog.Info("connection written",
		"endpoint", endpoint,
		"role", string(role),
		"profile", c.Profile,
		"id", id,
		"peer", peer,
	)
	return nil
}
