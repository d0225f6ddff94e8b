package driftchat

import (
	"sync"

	"github.com/driftchat/drift-sdk-go/driftchat/store"
)

const credentialKey = "session/credential"

// SessionStore holds the current bearer credential for the whole process. It
// is the single shared mutable resource between the request client and the
// realtime connection: read-many, write-rare, with the login flow and the
// invalidation path as the only writers.
//
// Clear has compare-and-clear semantics: listeners fire exactly once per
// present-to-absent transition, so concurrent 401s collapse to one observable
// invalidation.
type SessionStore struct {
	mu        sync.Mutex
	kv        store.KV
	logger    Logger
	token     string
	hydrated  bool
	listeners []func()
}

// NewSessionStore creates a store backed by kv. kv may be nil, in which case
// the credential lives only in memory for the process lifetime.
func NewSessionStore(kv store.KV) *SessionStore {
	return &SessionStore{kv: kv, logger: noopLogger{}}
}

// SetLogger overrides the logger (optional).
func (s *SessionStore) SetLogger(l Logger) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
}

// Get returns the current credential, hydrating from durable storage on
// first use.
func (s *SessionStore) Get() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked()
	return s.token, s.token != ""
}

// Set stores a new credential and persists it.
func (s *SessionStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrated = true
	s.token = token
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(credentialKey, []byte(token)); err != nil {
		s.logger.Warn("credential persist failed", map[string]any{"error": err.Error()})
	}
}

// Clear drops the credential and notifies invalidation listeners. Idempotent:
// clearing an already-absent credential notifies nobody.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	s.hydrateLocked()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	if s.kv != nil {
		if err := s.kv.Delete(credentialKey); err != nil {
			s.logger.Warn("credential delete failed", map[string]any{"error": err.Error()})
		}
	}
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	logger := s.logger
	s.mu.Unlock()

	logger.Info("session invalidated", nil)
	for _, fn := range listeners {
		fn()
	}
}

// OnInvalidate registers a listener fired synchronously on each
// present-to-absent transition.
func (s *SessionStore) OnInvalidate(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *SessionStore) hydrateLocked() {
	if s.hydrated {
		return
	}
	s.hydrated = true
	if s.kv == nil {
		return
	}
	v, ok, err := s.kv.Get(credentialKey)
	if err != nil {
		s.logger.Warn("credential hydration failed", map[string]any{"error": err.Error()})
		return
	}
	if ok {
		s.token = string(v)
	}
}
