// Package cart holds the locally owned shopping cart.
//
// The cart is an ordered set of line items keyed by product id. It survives
// logout and is not namespaced per user.
package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmcleod/daystore/internal/notify"
	"github.com/jmcleod/daystore/storage"
)

const cartKey = "CART_V1"

// Item is one product referenced in the cart. Presence is binary; there is
// no quantity.
type Item struct {
	ID    string   `json:"id"`
	Brand string   `json:"brand,omitempty"`
	Model string   `json:"model,omitempty"`
	Price *float64 `json:"price"`
}

// Event is published after every mutation that changed the cart.
type Event struct {
	Count int
}

// Store is the persisted cart. Call New to create one.
type Store struct {
	mu       sync.Mutex
	repo     storage.Repository
	bucket   string
	logger   *slog.Logger
	hub      notify.Hub[Event]
	items    []Item
	degraded bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report storage faults and corrupt data.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithBucket overrides the storage bucket. Default: storage.ClientStateBucket.
func WithBucket(bucket string) Option {
	return func(s *Store) {
		s.bucket = bucket
	}
}

// New loads the cart persisted in repo. A nil repo keeps the cart in memory.
// A corrupt persisted cart loads as empty.
func New(repo storage.Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		bucket: storage.ClientStateBucket,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.repo == nil {
		s.degraded = true
	}
	s.load()
	return s
}

func (s *Store) load() {
	if s.degraded {
		return
	}
	raw, err := s.repo.Get(s.bucket, cartKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrBucketNotFound) {
			s.degrade("load cart", err)
		}
		return
	}
	s.items = decode(raw, s.logger)
}

// decode parses a persisted cart, falling back to empty on bad data.
// Duplicate ids left by older writers keep their first occurrence.
func decode(raw []byte, logger *slog.Logger) []Item {
	if len(raw) == 0 {
		return nil
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn("discarding corrupt cart", slog.String("error", err.Error()))
		return nil
	}
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, it := range items {
		if it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

// List returns a copy of the cart contents in insertion order.
func (s *Store) List() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

// Count returns the number of items without copying them.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Contains reports whether an item with id is in the cart.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// Add appends item unless an item with the same id is already present or
// the id is empty. It reports whether the cart changed.
func (s *Store) Add(item Item) bool {
	if item.ID == "" {
		return false
	}
	s.mu.Lock()
	if s.indexLocked(item.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items, item.clone())
	s.persistLocked()
	s.mu.Unlock()
	s.hub.PublishFunc(s.event)
	return true
}

// Remove deletes the item with id if present. It reports whether the cart
// changed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.persistLocked()
	s.mu.Unlock()
	s.hub.PublishFunc(s.event)
	return true
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.persistLocked()
	s.mu.Unlock()
	s.hub.PublishFunc(s.event)
}

// Subscribe registers fn to run after every mutation.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Degraded reports whether the store has fallen back to memory only.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Store) indexLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// event describes the cart as it is now.
func (s *Store) event() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Event{Count: len(s.items)}
}

func (s *Store) persistLocked() {
	if s.degraded {
		return
	}
	items := s.items
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.degrade("encode cart", err)
		return
	}
	if err := s.repo.Put(s.bucket, cartKey, data); err != nil {
		s.degrade("persist cart", err)
	}
}

func (s *Store) degrade(op string, err error) {
	s.degraded = true
	s.logger.Warn("cart storage unavailable, continuing in memory",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

func (it Item) clone() Item {
	if it.Price != nil {
		p := *it.Price
		it.Price = &p
	}
	return it
}

// PriceOf is a convenience for building items with a known price.
func PriceOf(v float64) *float64 {
	return &v
}
