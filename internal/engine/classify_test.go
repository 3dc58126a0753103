package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		want Action
	}{
		{"orchestrator", "cns/n1/orchestrator", ActionRebuild},
		{"profile property flag", "cns/n1/profiles/p1/versions/version1/properties/a/provider", ActionRebuild},
		{"profile subtree generally", "cns/n1/profiles/p1/versions/version1", ActionRebuild},
		{"capability version", "cns/n1/nodes/a/contexts/x/provider/p1/version", ActionRebuild},
		{"capability scope", "cns/n1/nodes/a/contexts/x/consumer/p1/scope", ActionRebuild},
		{"capability default property", "cns/n1/nodes/a/contexts/x/provider/p1/properties/speed", ActionPropagate},
		{"connection property", "cns/n1/nodes/a/contexts/x/provider/p1/connections/c1/properties/speed", ActionUpdate},
		{"connection link", "cns/n1/nodes/a/contexts/x/provider/p1/connections/c1/consumer", ActionNone},
		{"network name", "cns/n1/name", ActionNone},
		{"node name", "cns/n1/nodes/a/name", ActionNone},
		{"context name", "cns/n1/nodes/a/contexts/x/name", ActionNone},
		{"foreign root", "other/n1/orchestrator", ActionNone},
		{"missing network segment", "cns/n1", ActionNone},
		{"bare root", "cns", ActionNone},
		{"bad role segment", "cns/n1/nodes/a/contexts/x/observer/p1/version", ActionNone},
		{"bad contexts literal", "cns/n1/nodes/a/subtrees/x/provider/p1/version", ActionNone},
		{"deep connection key beyond properties", "cns/n1/nodes/a/contexts/x/provider/p1/connections/c1/properties/speed/extra", ActionNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classify(tc.key), "key %s", tc.key)
		})
	}
}
