// Package engine implements the reconciliation engine.
//
// The engine observes the cns key namespace through a store watch and
// continuously brings the connections subtree into agreement with the
// declared provider/consumer capabilities, propagating property values
// across established connections according to per-property directionality.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All handlers run sequentially on one goroutine owned by Run(). This
// ensures:
//   - The cache reflects every committed event before any handler reads it
//   - Two build passes can never overlap
//   - Writes issued by a handler are sequential per invocation
//
// Event Processing Flow:
//  1. Watch events refresh the cache (put sets, delete unsets)
//  2. The classifier maps the key shape to a logical intent
//  3. Version, scope, profile, and orchestrator changes arm the debounce
//     timer; property writes dispatch directly to the propagator/updater
//  4. The timer firing wakes the loop, which runs one build pass:
//     matchmaking over the whole cache, then idempotent connection writes
//
// The engine's own puts flow back through the watch stream. That is
// expected: link writes classify as no-ops and property writes re-resolve
// to idempotent re-writes of identical values, so the loop converges.
//
// ERROR HANDLING: failures during startup (initial load, watch creation)
// are fatal and returned from Run. Failures inside event handlers and
// inside the debounced build are logged and swallowed so a single bad
// event cannot kill the watch.
package engine
