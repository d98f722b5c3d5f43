package httpform

import (
	"context"
	"sync"
)

type redirectSlotKey struct{}

type redirectSlot struct {
	mu   sync.Mutex
	path string
	set  bool
}

// RedirectNavigator records the navigation target in the request context so the
// handler can answer with a redirect. Outside a handler request it does nothing.
type RedirectNavigator struct{}

// GoTo stores path in the slot installed by [WithRedirectSlot].
func (RedirectNavigator) GoTo(ctx context.Context, path string) {
	slot, ok := ctx.Value(redirectSlotKey{}).(*redirectSlot)
	if !ok {
		return
	}
	slot.mu.Lock()
	slot.path = path
	slot.set = true
	slot.mu.Unlock()
}

// WithRedirectSlot returns a context that [RedirectNavigator] can write into and a
// func reporting the recorded path.
func WithRedirectSlot(ctx context.Context) (context.Context, func() (string, bool)) {
	slot := &redirectSlot{}
	return context.WithValue(ctx, redirectSlotKey{}, slot), func() (string, bool) {
		slot.mu.Lock()
		defer slot.mu.Unlock()
		return slot.path, slot.set
	}
}
