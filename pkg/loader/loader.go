// Package loader implements request scoped batching of keyed lookups.
//
// A Loader is created per query. Keys requested while resolvers are still
// runnable are collected; once every resolver goroutine of the request is
// blocked the distinct pending keys are handed to the batch function in a
// single call. Results are memoized for the life of the loader, so each
// distinct key is fetched at most once per query.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/yair/encore/pkg/metrics"
)

// Result is the outcome for one key of a batch.
type Result[V any] struct {
	Value V
	Err   error
}

// BatchFunc fetches values for distinct keys. The returned slice must be
// positional: results[i] belongs to keys[i]. A non-nil error fails every key
// of the batch.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]Result[V], error)

// Thunk waits for the value of one Load.
type Thunk[V any] func() (V, error)

type call[V any] struct {
	done chan struct{}
	res  Result[V]
}

type Loader[K comparable, V any] struct {
	name    string
	ctx     context.Context
	fetch   BatchFunc[K, V]
	tick    *Tick
	metrics *metrics.Metrics

	mu      sync.Mutex
	memo    map[K]*call[V]
	keys    []K
	pending []*call[V]
}

type Options struct {
	Name    string
	Tick    *Tick
	Metrics *metrics.Metrics
}

// New creates a loader bound to the request context. Batches run with ctx, so
// they are abandoned when the request is.
func New[K comparable, V any](ctx context.Context, fetch BatchFunc[K, V], opts Options) *Loader[K, V] {
	return &Loader[K, V]{
		name:    opts.Name,
		ctx:     ctx,
		fetch:   fetch,
		tick:    opts.Tick,
		metrics: opts.Metrics,
		memo:    make(map[K]*call[V]),
	}
}

// Load queues key for the current batch and returns a thunk for its value.
// Repeated keys share the first call.
func (l *Loader[K, V]) Load(key K) Thunk[V] {
	l.mu.Lock()
	c, ok := l.memo[key]
	if !ok {
		c = &call[V]{done: make(chan struct{})}
		l.memo[key] = c
		l.keys = append(l.keys, key)
		l.pending = append(l.pending, c)
		if len(l.keys) == 1 && l.tick != nil {
			l.tick.Defer(l.dispatch)
		}
	}
	l.mu.Unlock()

	return func() (V, error) {
		return l.wait(c)
	}
}

// LoadMany loads every key and waits for all of them. Results keep the order
// and cardinality of keys.
func (l *Loader[K, V]) LoadMany(keys []K) []Result[V] {
	thunks := make([]Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.Load(key)
	}

	results := make([]Result[V], len(keys))
	for i, thunk := range thunks {
		results[i].Value, results[i].Err = thunk()
	}
	return results
}

func (l *Loader[K, V]) wait(c *call[V]) (V, error) {
	select {
	case <-c.done:
		return c.res.Value, c.res.Err
	default:
	}

	if l.tick == nil {
		l.dispatch()
	}

	l.tick.Leave()
	defer l.tick.Enter()

	select {
	case <-c.done:
		return c.res.Value, c.res.Err
	case <-l.ctx.Done():
		var zero V
		return zero, l.ctx.Err()
	}
}

func (l *Loader[K, V]) dispatch() {
	l.mu.Lock()
	keys, calls := l.keys, l.pending
	l.keys, l.pending = nil, nil
	l.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	l.metrics.ObserveBatch(l.name, len(keys))

	go l.run(keys, calls)
}

func (l *Loader[K, V]) run(keys []K, calls []*call[V]) {
	defer func() {
		if r := recover(); r != nil {
			l.resolve(calls, nil, fmt.Errorf("%s loader panic: %v", l.name, r))
		}
	}()

	results, err := l.fetch(l.ctx, keys)
	if err == nil && len(results) != len(keys) {
		err = fmt.Errorf("%s loader: batch function returned %d results for %d keys", l.name, len(results), len(keys))
	}
	l.resolve(calls, results, err)
}

func (l *Loader[K, V]) resolve(calls []*call[V], results []Result[V], err error) {
	for i, c := range calls {
		select {
		case <-c.done:
			continue
		default:
		}
		if err != nil {
			c.res = Result[V]{Err: err}
		} else {
			c.res = results[i]
		}
		close(c.done)
	}
}
