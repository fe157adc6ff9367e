package session

import (
	"sync"
	"time"
)

// Store is a concurrency-safe in-memory session registry keyed by SenderID.
//
// Reads and writes are individually atomic. Callers that need a
// read-modify-write cycle for one sender hold Lock for its duration;
// locks for different senders are independent.
type Store struct {
	mu       sync.RWMutex
	sessions map[SenderID]*Session

	locksMu sync.Mutex
	locks   map[SenderID]*sync.Mutex
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[SenderID]*Session),
		locks:    make(map[SenderID]*sync.Mutex),
	}
}

// GetOrCreate returns a copy of the sender's session, creating an idle one on first contact.
func (s *Store) GetOrCreate(id SenderID) Session {
	s.mu.RLock()
	if sess, ok := s.sessions[id]; ok {
		out := sess.snapshot()
		s.mu.RUnlock()
		return out
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id).snapshot()
}

// Update merges patch into the collected fields and sets the state.
// Later keys overwrite earlier ones with the same name.
func (s *Store) Update(id SenderID, state State, patch Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(id)
	sess.State = state
	for k, v := range patch {
		sess.Fields[k] = v
	}
}

// Reset returns the sender's session to idle with no collected fields.
func (s *Store) Reset(id SenderID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(id)
	sess.State = StateIdle
	sess.Fields = make(Fields)
}

// Touch records an inbound attempt for the sender.
func (s *Store) Touch(id SenderID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(id)
	sess.AttemptCount++
	sess.LastAttempt = at
}

// Lock serialises work for one sender and returns the matching unlock function.
func (s *Store) Lock(id SenderID) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

// Len reports how many senders have a session.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) getLocked(id SenderID) *Session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession()
		s.sessions[id] = sess
	}
	return sess
}
