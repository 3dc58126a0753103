// Package storetest provides an in-memory store.Client for tests.
//
// Memory mirrors the etcd adapter's observable behaviour: prefix get,
// single-key get/put, per-key versions, and prefix watches that deliver
// events in write order. Watch delivery is decoupled from Put through an
// unbounded per-watcher queue, so the engine can issue puts from inside
// its own event loop without deadlocking on its own watch stream.
package storetest

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/cnscp/cns-orchestrator/internal/store"
)

// Memory is an in-memory implementation of store.Client.
type Memory struct {
	mu       sync.Mutex
	data     map[string]string
	versions map[string]int64
	watchers []*watcher
	revision int64
	trace    []string
	closed   bool
}

// watcher buffers events for one Watch subscription.
type watcher struct {
	prefix string
	mu     sync.Mutex
	queue  []store.Event
	signal chan struct{} // coalesced availability signal, buffer 1
	done   chan struct{}
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{
		data:     make(map[string]string),
		versions: make(map[string]int64),
	}
}

// Seed loads initial contents without emitting watch events or trace
// entries, mimicking state that existed before the orchestrator connected.
func (m *Memory) Seed(entries map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = v
		m.versions[k]++
	}
}

// All returns every key under prefix with its current value.
func (m *Memory) All(_ context.Context, prefix string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

// Get returns the value of a single key and whether it exists.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

// Put writes a key and fans the event out to matching watchers.
// Re-writing an identical value still produces an event, as etcd does.
func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.versions[key]++
	m.revision++
	m.trace = append(m.trace, "PUT "+key+" = "+value)
	ev := store.Event{
		Op:      store.OpPut,
		Key:     key,
		Value:   value,
		Version: strconv.FormatInt(m.versions[key], 10),
	}
	watchers := m.watchers
	m.mu.Unlock()

	for _, w := range watchers {
		w.deliver(ev)
	}
	return nil
}

// Delete removes a key and fans out a delete event. The orchestrator never
// deletes, but tests exercise the engine's delete handling through this.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	version := m.versions[key]
	delete(m.data, key)
	delete(m.versions, key)
	m.revision++
	m.trace = append(m.trace, "DELETE "+key)
	ev := store.Event{
		Op:      store.OpDelete,
		Key:     key,
		Version: strconv.FormatInt(version, 10),
	}
	watchers := m.watchers
	m.mu.Unlock()

	for _, w := range watchers {
		w.deliver(ev)
	}
}

// Watch emits an Event for every subsequent mutation under prefix.
func (m *Memory) Watch(ctx context.Context, prefix string) (<-chan store.Event, error) {
	w := &watcher{
		prefix: prefix,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.watchers = append(m.watchers, w)
	m.mu.Unlock()

	out := make(chan store.Event, 16)
	go w.pump(ctx, out)
	return out, nil
}

// Close stops all watchers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, w := range m.watchers {
		close(w.done)
	}
	m.watchers = nil
	return nil
}

// Dump returns a copy of the current contents.
func (m *Memory) Dump() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out
}

// Revision returns a counter incremented by every mutation. Tests use it
// to detect quiescence.
func (m *Memory) Revision() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// Trace returns every mutation applied since construction, in order.
// Seeded entries are not traced.
func (m *Memory) Trace() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.trace))
	copy(out, m.trace)
	return out
}

// deliver enqueues an event if it falls under the watcher's prefix.
func (w *watcher) deliver(ev store.Event) {
	if !strings.HasPrefix(ev.Key, w.prefix) {
		return
	}
	w.mu.Lock()
	w.queue = append(w.queue, ev)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// pump drains the queue into out, preserving order.
func (w *watcher) pump(ctx context.Context, out chan<- store.Event) {
	defer close(out)
	for {
		w.mu.Lock()
		var ev store.Event
		have := len(w.queue) > 0
		if have {
			ev = w.queue[0]
			w.queue[0] = store.Event{}
			w.queue = w.queue[1:]
		}
		w.mu.Unlock()

		if have {
			select {
			case out <- ev:
				continue
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}

		select {
		case <-w.signal:
		case <-ctx.Done():
			return
		case <-w.done:
			return
		}
	}
}
