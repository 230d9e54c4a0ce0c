package loader

import (
	"context"
	"sync"
)

// Tick is the resolution window of one request. It counts the resolver
// goroutines that are currently runnable; when the last of them blocks (on a
// loader, on its children or on upstream I/O) every deferred hook runs once.
// Loaders use the hooks to dispatch their pending batch.
//
// A nil *Tick is valid and never fires hooks.
type Tick struct {
	mu     sync.Mutex
	active int
	hooks  []func()
}

func NewTick() *Tick {
	return &Tick{}
}

// Enter marks one more goroutine as runnable.
func (t *Tick) Enter() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.active++
	t.mu.Unlock()
}

// Leave marks a goroutine as blocked or finished.
func (t *Tick) Leave() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.active > 0 {
		t.active--
	}
	var hooks []func()
	if t.active == 0 {
		hooks, t.hooks = t.hooks, nil
	}
	t.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// Block runs fn with the calling goroutine counted as blocked.
func (t *Tick) Block(fn func()) {
	t.Leave()
	defer t.Enter()
	fn()
}

// Defer registers hook to run at the end of the current window.
func (t *Tick) Defer(hook func()) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.hooks = append(t.hooks, hook)
	t.mu.Unlock()
}

type tickKey struct{}

func WithTick(ctx context.Context, t *Tick) context.Context {
	return context.WithValue(ctx, tickKey{}, t)
}

// TickFrom returns the request tick, or nil outside of a query.
func TickFrom(ctx context.Context) *Tick {
	t, _ := ctx.Value(tickKey{}).(*Tick)
	return t
}
