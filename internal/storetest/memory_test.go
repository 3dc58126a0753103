package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnscp/cns-orchestrator/internal/store"
)

func TestAllFiltersByPrefix(t *testing.T) {
	m := New()
	m.Seed(map[string]string{
		"cns/n1/name":   "one",
		"other/n1/name": "elsewhere",
	})

	got, err := m.All(context.Background(), "cns")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cns/n1/name": "one"}, got)
}

func TestGetPut(t *testing.T) {
	m := New()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "cns/n1/name")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, "cns/n1/name", "one"))
	v, ok, err := m.Get(ctx, "cns/n1/name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "one", v)
}

func collect(ch <-chan store.Event, n int, t *testing.T) []store.Event {
	t.Helper()
	out := make([]store.Event, 0, n)
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestWatchDeliversInOrder(t *testing.T) {
	m := New()
	ctx := context.Background()

	ch, err := m.Watch(ctx, "cns")
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, "cns/n1/name", "one"))
	require.NoError(t, m.Put(ctx, "cns/n1/orchestrator", "bysystem"))
	m.Delete("cns/n1/name")

	events := collect(ch, 3, t)
	assert.Equal(t, store.OpPut, events[0].Op)
	assert.Equal(t, "cns/n1/name", events[0].Key)
	assert.Equal(t, "one", events[0].Value)
	assert.Equal(t, "1", events[0].Version, "first write of a key is version 1")

	assert.Equal(t, "cns/n1/orchestrator", events[1].Key)

	assert.Equal(t, store.OpDelete, events[2].Op)
	assert.Equal(t, "cns/n1/name", events[2].Key)
}

func TestWatchIgnoresForeignPrefix(t *testing.T) {
	m := New()
	ctx := context.Background()

	ch, err := m.Watch(ctx, "cns")
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, "other/key", "x"))
	require.NoError(t, m.Put(ctx, "cns/n1/name", "one"))

	events := collect(ch, 1, t)
	assert.Equal(t, "cns/n1/name", events[0].Key)
}

func TestWatchVersionIncrements(t *testing.T) {
	m := New()
	ctx := context.Background()

	ch, err := m.Watch(ctx, "cns")
	require.NoError(t, err)

	require.NoError(t, m.Put(ctx, "cns/k", "a"))
	require.NoError(t, m.Put(ctx, "cns/k", "b"))

	events := collect(ch, 2, t)
	assert.Equal(t, "1", events[0].Version)
	assert.Equal(t, "2", events[1].Version)
}

func TestPutFromWatchConsumerDoesNotDeadlock(t *testing.T) {
	m := New()
	ctx := context.Background()

	ch, err := m.Watch(ctx, "cns")
	require.NoError(t, err)

	// Writing many keys without draining the channel must not block the
	// writer; delivery is queued per watcher.
	for i := 0; i < 500; i++ {
		require.NoError(t, m.Put(ctx, "cns/k", "v"))
	}
	events := collect(ch, 500, t)
	assert.Len(t, events, 500)
}

func TestCloseStopsWatchers(t *testing.T) {
	m := New()
	ch, err := m.Watch(context.Background(), "cns")
	require.NoError(t, err)

	require.NoError(t, m.Close())

	select {
	case _, open := <-ch:
		assert.False(t, open, "watch channel must close")
	case <-time.After(time.Second):
		t.Fatal("watch channel did not close")
	}

	require.NoError(t, m.Close(), "double close is a no-op")
}

func TestTraceRecordsMutations(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.Seed(map[string]string{"cns/seeded": "x"})

	require.NoError(t, m.Put(ctx, "cns/a", "1"))
	m.Delete("cns/a")

	assert.Equal(t, []string{
		"PUT cns/a = 1",
		"DELETE cns/a",
	}, m.Trace(), "seeded entries are not traced")
}
