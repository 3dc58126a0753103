package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnscp/cns-orchestrator/internal/store"
	"github.com/cnscp/cns-orchestrator/internal/storetest"
)

func TestRunStopsOnCancel(t *testing.T) {
	mem := storetest.New()
	eng := New(mem, WithQuietPeriod(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("engine did not stop on cancel")
	}
}

func TestRunFatalOnWatchClose(t *testing.T) {
	mem := storetest.New()
	eng := New(mem, WithQuietPeriod(10*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, mem.Close())

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, store.IsKind(err, store.KindFailedToWatch))
	case <-time.After(time.Second):
		t.Fatal("engine did not stop when the watch stream closed")
	}
}

func TestRunLoadsInitialCache(t *testing.T) {
	mem := storetest.New()
	mem.Seed(map[string]string{
		"cns/n1/name":   "one",
		"other/ignored": "not ours",
	})
	eng := New(mem, WithQuietPeriod(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := eng.Cache().Get("cns/n1/name")
		return ok
	}, time.Second, 5*time.Millisecond)

	_, ok := eng.Cache().Get("other/ignored")
	assert.False(t, ok, "only the cns prefix is mirrored")

	cancel()
	<-done
}

func TestRunKeepsCacheCurrent(t *testing.T) {
	mem := storetest.New()
	eng := New(mem, WithQuietPeriod(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	require.NoError(t, mem.Put(ctx, "cns/n1/name", "one"))
	require.Eventually(t, func() bool {
		v, ok := eng.Cache().Get("cns/n1/name")
		return ok && v == "one"
	}, time.Second, 5*time.Millisecond)

	mem.Delete("cns/n1/name")
	require.Eventually(t, func() bool {
		_, ok := eng.Cache().Get("cns/n1/name")
		return !ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunConvergesWithoutExternalMutation(t *testing.T) {
	mem := storetest.New()
	mem.Seed(makePair())
	eng := New(mem,
		WithQuietPeriod(10*time.Millisecond),
		WithIDGenerator(NewFixedGenerator("cold")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	// State that existed before startup converges from the initial pass
	// alone; no store mutation is needed to kick the engine.
	require.Eventually(t, func() bool {
		_, ok, _ := mem.Get(ctx, "cns/n1/nodes/a/contexts/x/provider/p1/connections/cold/consumer")
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunSurvivesBadEvents(t *testing.T) {
	mem := storetest.New()
	mem.Seed(makePair())
	eng := New(mem,
		WithQuietPeriod(10*time.Millisecond),
		WithIDGenerator(NewFixedGenerator("cid1")),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	// A connection property under a capability with no version resolves
	// nothing; the handler logs and the loop keeps serving.
	require.NoError(t, mem.Put(ctx, "cns/n1/nodes/zz/contexts/q/provider/px/connections/c9/properties/p", "v"))

	require.Eventually(t, func() bool {
		_, ok, _ := mem.Get(ctx, "cns/n1/nodes/a/contexts/x/provider/p1/connections/cid1/consumer")
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
