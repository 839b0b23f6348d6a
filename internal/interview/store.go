package interview

import (
	"sync"
	"time"
)

type entry struct {
	session *Session
	busy    bool
	touched time.Time
}

// Store keeps sessions alive between user interactions, keyed by the caller's
// session key. At most one turn may hold a key at a time.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	idleTTL time.Duration
	now     func() time.Time
}

// NewStore creates a store that forgets sessions left idle for longer than
// idleTTL. Zero keeps them until they are deleted.
func NewStore(idleTTL time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (s *Store) Get(key string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	e, ok := s.entries[key]
	if !ok || e.session == nil {
		return nil, ErrSessionNotFound
	}
	e.touched = s.now()
	return e.session, nil
}

// Delete removes the session stored under key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	e, ok := s.entries[key]
	if !ok {
		return ErrSessionNotFound
	}
	if e.busy {
		return ErrTurnInProgress
	}
	delete(s.entries, key)
	return nil
}

// Begin marks key as busy and returns its session with a release func.
// A second Begin for the same key fails with ErrTurnInProgress until release is called.
func (s *Store) Begin(key string) (*Session, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	e, ok := s.entries[key]
	if !ok || e.session == nil {
		return nil, nil, ErrSessionNotFound
	}
	if e.busy {
		return nil, nil, ErrTurnInProgress
	}
	e.busy = true
	e.touched = s.now()

	return e.session, s.releaser(key, e), nil
}

// Reserve marks key as busy even when no session is stored yet, so that a
// session can be built for it without a concurrent turn interleaving.
func (s *Store) Reserve(key string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	if e.busy {
		return nil, ErrTurnInProgress
	}
	e.busy = true
	e.touched = s.now()

	return s.releaser(key, e), nil
}

func (s *Store) releaser(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			e.busy = false
			e.touched = s.now()
			if e.session == nil && s.entries[key] == e {
				delete(s.entries, key)
			}
		})
	}
}

// replace swaps the session of a reserved key.
func (s *Store) replace(key string, session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.session = session
	e.touched = s.now()
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire()

	n := 0
	for _, e := range s.entries {
		if e.session != nil {
			n++
		}
	}
	return n
}

// expire drops idle entries. Busy entries are never dropped. Callers hold mu.
func (s *Store) expire() {
	if s.idleTTL <= 0 {
		return
	}

	deadline := s.now().Add(-s.idleTTL)
	for key, e := range s.entries {
		if !e.busy && e.touched.Before(deadline) {
			delete(s.entries, key)
		}
	}
}
