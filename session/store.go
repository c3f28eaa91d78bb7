// Package session holds the client-side authenticated session: the current
// credential and the time it was last used.
//
// A session is either fully absent or fully present. It expires after an
// idle window measured from the last Set or Touch, so every authenticated
// request slides the window forward.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jmcleod/daystore/internal/notify"
	"github.com/jmcleod/daystore/storage"
)

const (
	credentialKey = "AUTH"
	acquiredAtKey = "AUTH_AT"

	// DefaultIdleTimeout is the sliding expiry window.
	DefaultIdleTimeout = 10 * time.Minute
)

// Event is published after every session mutation.
type Event struct {
	Authenticated bool
	// ExpiresAt is zero when Authenticated is false.
	ExpiresAt time.Time
}

// Store is the persisted session. The zero value is not usable; call New.
type Store struct {
	mu          sync.Mutex
	repo        storage.Repository
	bucket      string
	idleTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
	hub         notify.Hub[Event]

	credential string
	acquiredAt time.Time
	degraded   bool
}

// Option configures a Store.
type Option func(*Store)

// WithIdleTimeout sets the sliding expiry window. 0 disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.idleTimeout = d
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used to report storage faults.
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

// New loads the session persisted in repo. A nil repo keeps the session in
// memory only. Storage faults never surface: they are logged and the store
// carries on in memory for the rest of its lifetime.
func New(repo storage.Repository, opts ...Option) *Store {
	s := &Store{
		repo:        repo,
		bucket:      storage.ClientStateBucket,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
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
	cred, err := s.repo.Get(s.bucket, credentialKey)
	if err != nil {
		if !isMissing(err) {
			s.degrade("load credential", err)
		}
		return
	}
	if len(cred) == 0 {
		return
	}
	raw, err := s.repo.Get(s.bucket, acquiredAtKey)
	if err != nil && !isMissing(err) {
		s.degrade("load timestamp", err)
		return
	}
	at, perr := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil || perr != nil {
		// A credential without a usable timestamp counts as expired.
		s.persistClear()
		return
	}
	s.credential = string(cred)
	s.acquiredAt = at
}

// Get returns the stored credential if present and not expired. An expired
// session is cleared (and observers notified) before Get returns.
func (s *Store) Get() (string, bool) {
	s.mu.Lock()
	if s.credential == "" {
		s.mu.Unlock()
		return "", false
	}
	if s.expiredLocked() {
		s.clearLocked()
		s.mu.Unlock()
		s.hub.PublishFunc(s.event)
		return "", false
	}
	cred := s.credential
	s.mu.Unlock()
	return cred, true
}

// IsAuthenticated reports whether Get would return a credential.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Get()
	return ok
}

// ExpiresAt reports when the current session lapses if left idle.
func (s *Store) ExpiresAt() (time.Time, bool) {
	if !s.IsAuthenticated() {
		return time.Time{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credential == "" {
		return time.Time{}, false
	}
	return s.expiresAtLocked(), true
}

// Set stores credential and stamps the current time. An empty credential
// behaves like Clear.
func (s *Store) Set(credential string) {
	if credential == "" {
		s.Clear()
		return
	}
	s.mu.Lock()
	s.credential = credential
	s.acquiredAt = s.now()
	s.persistSet()
	s.mu.Unlock()
	s.hub.PublishFunc(s.event)
}

// Touch restarts the idle window without changing the credential.
// It has no effect when no session is present; an already expired session
// is cleared instead of revived.
func (s *Store) Touch() {
	s.mu.Lock()
	if s.credential == "" {
		s.mu.Unlock()
		return
	}
	if s.expiredLocked() {
		s.clearLocked()
	} else {
		s.acquiredAt = s.now()
		s.persistTouch()
	}
	s.mu.Unlock()
	s.hub.PublishFunc(s.event)
}

// Clear removes the credential and its timestamp.
func (s *Store) Clear() {
	s.mu.Lock()
	s.clearLocked()
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

func (s *Store) expiredLocked() bool {
	return s.idleTimeout > 0 && s.now().Sub(s.acquiredAt) > s.idleTimeout
}

func (s *Store) expiresAtLocked() time.Time {
	if s.idleTimeout <= 0 {
		return time.Time{}
	}
	return s.acquiredAt.Add(s.idleTimeout)
}

// event describes the session as it is now, without applying expiry.
func (s *Store) event() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventLocked()
}

func (s *Store) eventLocked() Event {
	if s.credential == "" {
		return Event{}
	}
	return Event{Authenticated: true, ExpiresAt: s.expiresAtLocked()}
}

func (s *Store) clearLocked() {
	s.credential = ""
	s.acquiredAt = time.Time{}
	s.persistClear()
}

func (s *Store) persistSet() {
	if s.degraded {
		return
	}
	at := []byte(s.acquiredAt.Format(time.RFC3339Nano))
	cred := []byte(s.credential)
	err := s.repo.Batch(s.bucket, func(tx storage.BatchTx) error {
		if err := tx.Put(credentialKey, cred); err != nil {
			return err
		}
		return tx.Put(acquiredAtKey, at)
	})
	if err != nil {
		s.degrade("persist session", err)
	}
}

func (s *Store) persistTouch() {
	if s.degraded {
		return
	}
	at := []byte(s.acquiredAt.Format(time.RFC3339Nano))
	if err := s.repo.Put(s.bucket, acquiredAtKey, at); err != nil {
		s.degrade("persist timestamp", err)
	}
}

func (s *Store) persistClear() {
	if s.degraded {
		return
	}
	err := s.repo.Batch(s.bucket, func(tx storage.BatchTx) error {
		if err := tx.Delete(credentialKey); err != nil {
			return err
		}
		return tx.Delete(acquiredAtKey)
	})
	if err != nil {
		s.degrade("clear session", err)
	}
}

func (s *Store) degrade(op string, err error) {
	s.degraded = true
	s.logger.Warn("session storage unavailable, continuing in memory",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

func isMissing(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrBucketNotFound)
}
