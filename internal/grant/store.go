// Package grant holds time-bounded authorization grants keyed by
// (session, operation). Grants are issued by the collaboration broker on
// human approval and consumed by the authorization guard. They live in
// memory only and do not survive a process restart.
package grant

import (
	"sync"
	"time"
)

// DefaultTTL is the lifetime of a grant when the caller does not specify one.
const DefaultTTL = 300 * time.Second

// Grant is a single authorization record. It permits one (session,
// operation) pair to bypass the working-directory boundary check until it
// expires or, for one-time grants, until it is consumed.
type Grant struct {
	SessionID    string
	OperationKey string
	ExpiresAt    time.Time
	OneTimeUse   bool
	Consumed     bool
	IssuedAt     time.Time
}

type key struct {
	session   string
	operation string
}

// Store is the in-memory grant map. The store owns all mutation; callers
// never hold a Grant reference across calls. The mutex is short-held and
// never held across a blocking wait.
type Store struct {
	mu     sync.Mutex
	grants map[key]Grant
	now    func() time.Time // injectable for testing
}

// NewStore creates an empty grant store with real time.
func NewStore() *Store {
	return &Store{
		grants: make(map[key]Grant),
		now:    time.Now,
	}
}

// NewStoreWithClock creates a store with an injected clock.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		grants: make(map[key]Grant),
		now:    now,
	}
}

// Grant issues a grant for (sessionID, operationKey). A non-positive ttl
// uses DefaultTTL. Granting twice for the same key keeps the most recently
// issued grant reachable, so repeated approvals simply extend coverage.
func (s *Store) Grant(sessionID, operationKey string, ttl time.Duration, oneTimeUse bool) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	issued := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[key{sessionID, operationKey}] = Grant{
		SessionID:    sessionID,
		OperationKey: operationKey,
		ExpiresAt:    issued.Add(ttl),
		OneTimeUse:   oneTimeUse,
		IssuedAt:     issued,
	}
}

// IsActive reports whether an unexpired, unconsumed grant covers
// (sessionID, operationKey). One-time grants are consumed by the lookup
// that observes them, so a second call returns false. Expired entries are
// swept opportunistically.
func (s *Store) IsActive(sessionID, operationKey string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{sessionID, operationKey}
	g, ok := s.grants[k]
	if !ok {
		return false
	}
	if now.After(g.ExpiresAt) || g.Consumed {
		delete(s.grants, k)
		return false
	}
	if g.OneTimeUse {
		// Consumed-and-one-time grants are gone; keeping a tombstone would
		// only delay the sweep.
		delete(s.grants, k)
	}
	return true
}

// SweepExpired removes all expired or consumed grants and returns how many
// were dropped. Lookup already expires lazily; the periodic sweep bounds
// memory growth from abandoned grants.
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, g := range s.grants {
		if now.After(g.ExpiresAt) || g.Consumed {
			delete(s.grants, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of grants currently held, including ones that
// would expire on their next lookup.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grants)
}
