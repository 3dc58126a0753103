package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounceFiresOnceAfterQuiet(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.Trigger()

	select {
	case <-d.Fired():
	case <-time.After(time.Second):
		t.Fatal("debounce never fired")
	}

	// One trigger, one firing.
	select {
	case <-d.Fired():
		t.Fatal("debounce fired twice for one trigger")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebounceCoalescesBursts(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(5 * time.Millisecond)
	}

	fired := 0
	deadline := time.After(500 * time.Millisecond)
	for {
		select {
		case <-d.Fired():
			fired++
		case <-deadline:
			assert.Equal(t, 1, fired, "a burst within the quiet window coalesces to one firing")
			return
		}
	}
}

func TestDebounceRestartDelaysFiring(t *testing.T) {
	d := newDebouncer(50 * time.Millisecond)
	d.Trigger()
	time.Sleep(30 * time.Millisecond)
	d.Trigger() // restart mid-window

	select {
	case <-d.Fired():
		t.Fatal("fired before the restarted window elapsed")
	case <-time.After(30 * time.Millisecond):
	}

	select {
	case <-d.Fired():
	case <-time.After(time.Second):
		t.Fatal("restarted debounce never fired")
	}
}

func TestDebounceCancel(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.Trigger()
	require.True(t, d.Armed())

	d.Cancel()
	assert.False(t, d.Armed())

	select {
	case <-d.Fired():
		t.Fatal("cancelled debounce fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebounceCancelWithoutTrigger(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	d.Cancel() // no-op
	assert.False(t, d.Armed())
}
