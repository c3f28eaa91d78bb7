package view

import (
	"fmt"
	"sync"

	"github.com/jmcleod/daystore/cart"
	"github.com/jmcleod/daystore/session"
)

// AuthSource is the part of the session store the badge observes.
type AuthSource interface {
	IsAuthenticated() bool
	Subscribe(fn func(session.Event)) (unsubscribe func())
}

// CartSource is the part of the cart store the badge observes.
type CartSource interface {
	Count() int
	Subscribe(fn func(cart.Event)) (unsubscribe func())
}

// Badge tracks the header status line: authentication state and cart
// count. It updates itself from store notifications rather than polling.
type Badge struct {
	mu            sync.Mutex
	authenticated bool
	count         int
	onChange      func(string)
	unsubscribe   []func()
}

// NewBadge subscribes to both stores. onChange, if non-nil, receives the
// new status line after every update.
func NewBadge(auth AuthSource, items CartSource, onChange func(string)) *Badge {
	b := &Badge{
		authenticated: auth.IsAuthenticated(),
		count:         items.Count(),
		onChange:      onChange,
	}
	b.unsubscribe = append(b.unsubscribe,
		auth.Subscribe(func(ev session.Event) {
			b.update(func() { b.authenticated = ev.Authenticated })
		}),
		items.Subscribe(func(ev cart.Event) {
			b.update(func() { b.count = ev.Count })
		}),
	)
	return b
}

func (b *Badge) update(fn func()) {
	b.mu.Lock()
	fn()
	line := b.lineLocked()
	cb := b.onChange
	b.mu.Unlock()
	if cb != nil {
		cb(line)
	}
}

// Authenticated reports the last observed authentication state.
func (b *Badge) Authenticated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authenticated
}

// Count reports the last observed cart count.
func (b *Badge) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Badge) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lineLocked()
}

func (b *Badge) lineLocked() string {
	state := "anonymous"
	if b.authenticated {
		state = "authorized"
	}
	return fmt.Sprintf("DayStore [%s] Cart: %d", state, b.count)
}

// Close stops observing the stores.
func (b *Badge) Close() {
	b.mu.Lock()
	unsubs := b.unsubscribe
	b.unsubscribe = nil
	b.mu.Unlock()
	for _, fn := range unsubs {
		fn()
	}
}
