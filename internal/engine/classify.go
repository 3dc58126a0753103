package engine

import (
	"github.com/cnscp/cns-orchestrator/internal/keys"
	"github.com/cnscp/cns-orchestrator/internal/schema"
)

// Action is the logical intent of a raw store mutation.
type Action int

const (
	// ActionNone ignores the event.
	ActionNone Action = iota
	// ActionRebuild arms the debounced matchmaker pass.
	ActionRebuild
	// ActionPropagate pushes a capability-level default to every
	// connection of the capability.
	ActionPropagate
	// ActionUpdate mirrors a connection-level property to the opposite
	// endpoint.
	ActionUpdate
)

// String names the action for logs.
func (a Action) String() string {
	switch a {
	case ActionRebuild:
		return "rebuild"
	case ActionPropagate:
		return "propagate"
	case ActionUpdate:
		return "update"
	default:
		return "none"
	}
}

// classify maps a put key to its logical intent by positional segment.
//
// Dispatch table (parts indexed per schema):
//
//	parts[2]=orchestrator                              -> rebuild
//	parts[2]=profiles                                  -> rebuild
//	parts[2]=nodes, parts[8]=version|scope             -> rebuild
//	parts[2]=nodes, parts[8]=properties                -> propagate
//	parts[2]=nodes, parts[8]=connections,
//	                parts[10]=properties               -> update
//	anything else                                      -> none
//
// Keys whose root is not "cns" or whose network segment is missing are
// silently ignored.
func classify(key string) Action {
	parts := keys.Split(key)
	if len(parts) <= schema.PartSection || parts[schema.PartRoot] != schema.Root {
		return ActionNone
	}

	switch parts[schema.PartSection] {
	case schema.SectionOrchestrator, schema.SectionProfiles:
		return ActionRebuild

	case schema.SectionNodes:
		if len(parts) <= schema.PartField {
			return ActionNone
		}
		if parts[schema.PartContexts] != schema.SegmentContexts {
			return ActionNone
		}
		if _, ok := schema.ParseRole(parts[schema.PartRole]); !ok {
			return ActionNone
		}

		switch parts[schema.PartField] {
		case schema.FieldVersion, schema.FieldScope:
			return ActionRebuild

		case schema.FieldProperties:
			if len(parts) == schema.PartItem+1 {
				return ActionPropagate
			}

		case schema.FieldConnections:
			if len(parts) == schema.PartConnProp+1 && parts[schema.PartSub] == schema.FieldProperties {
				return ActionUpdate
			}
		}
	}

	return ActionNone
}
