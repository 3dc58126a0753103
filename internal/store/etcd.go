package store

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// DefaultDialTimeout bounds the initial connection attempt. The engine has
// no per-operation timeouts beyond this; in-flight puts are never cancelled
// mid-flight.
const DefaultDialTimeout = 5 * time.Second

// Config carries the connection parameters for the etcd adapter.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	DialTimeout time.Duration
}

// Endpoint returns the host:port the adapter dials.
func (c Config) Endpoint() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Etcd is the production Client backed by go.etcd.io/etcd/client/v3.
type Etcd struct {
	cli *clientv3.Client
}

// Connect dials the store. Credentials are passed through opaquely; an
// empty username disables authentication entirely.
func Connect(ctx context.Context, cfg Config) (*Etcd, error) {
	if cfg.Host == "" {
		return nil, NewError(KindNotConfigured, "no host configured")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	ecfg := clientv3.Config{
		Endpoints:   []string{cfg.Endpoint()},
		DialTimeout: cfg.DialTimeout,
		Context:     ctx,
	}
	if cfg.Username != "" {
		ecfg.Username = cfg.Username
		ecfg.Password = cfg.Password
	}

	cli, err := clientv3.New(ecfg)
	if err != nil {
		return nil, WrapError(KindNotConnected, cfg.Endpoint(), err)
	}
	return &Etcd{cli: cli}, nil
}

// All returns every key under prefix with its current value.
func (e *Etcd) All(ctx context.Context, prefix string) (map[string]string, error) {
	if e.cli == nil {
		return nil, NewError(KindNotConnected, prefix)
	}
	resp, err := e.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, WrapError(KindFailedToGetAll, prefix, err)
	}
	out := make(map[string]string, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out[string(kv.Key)] = string(kv.Value)
	}
	return out, nil
}

// Get returns the value of a single key and whether it exists.
func (e *Etcd) Get(ctx context.Context, key string) (string, bool, error) {
	if e.cli == nil {
		return "", false, NewError(KindNotConnected, key)
	}
	resp, err := e.cli.Get(ctx, key)
	if err != nil {
		return "", false, WrapError(KindFailedToGet, key, err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// Put writes a single key.
func (e *Etcd) Put(ctx context.Context, key, value string) error {
	if e.cli == nil {
		return NewError(KindNotConnected, key)
	}
	if _, err := e.cli.Put(ctx, key, value); err != nil {
		return WrapError(KindFailedToPut, key, err)
	}
	return nil
}

// Watch emits an Event for every mutation under prefix. The returned
// channel closes when the watch fails or ctx is cancelled; the engine
// treats an unexpected close as fatal.
func (e *Etcd) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	if e.cli == nil {
		return nil, NewError(KindNotConnected, prefix)
	}

	wch := e.cli.Watch(ctx, prefix, clientv3.WithPrefix())
	out := make(chan Event, 64)

	go func() {
		defer close(out)
		for resp := range wch {
			if err := resp.Err(); err != nil {
				slog.Error("watch stream failed", "prefix", prefix, "error", err)
				return
			}
			for _, ev := range resp.Events {
				converted := Event{
					Key:     string(ev.Kv.Key),
					Value:   string(ev.Kv.Value),
					Version: strconv.FormatInt(ev.Kv.Version, 10),
				}
				if ev.Type == clientv3.EventTypeDelete {
					converted.Op = OpDelete
				} else {
					converted.Op = OpPut
				}
				select {
				case out <- converted:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close releases the connection. Safe to call more than once.
func (e *Etcd) Close() error {
	if e.cli == nil {
		return nil
	}
	cli := e.cli
	e.cli = nil
	return cli.Close()
}
