package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/pos-gateway/internal/obs"
)

// Store keeps one ledger per cart session. The mutex guards the session map
// only; each ledger is owned by the single request operating on it, matching
// the one-cart-per-session model.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	TTL      time.Duration
	Now      func() time.Time
}

type session struct {
	ledger    *Ledger
	expiresAt time.Time
}

// NewStore constructs a session store with the provided idle TTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 4 * time.Hour
	}
	return &Store{
		sessions: make(map[uuid.UUID]*session),
		TTL:      ttl,
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create registers a new empty ledger and returns its identifier.
func (s *Store) Create() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.sessions[id] = &session{ledger: NewLedger(), expiresAt: s.now().Add(s.TTL)}
	if obs.CartsActive != nil {
		obs.CartsActive.Set(float64(len(s.sessions)))
	}
	return id
}

// Get returns the ledger for the cart id, refreshing its TTL. Expired or
// unknown carts report false.
func (s *Store) Get(id uuid.UUID) (*Ledger, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, id)
		if obs.CartsActive != nil {
			obs.CartsActive.Set(float64(len(s.sessions)))
		}
		return nil, false
	}
	sess.expiresAt = s.now().Add(s.TTL)
	return sess.ledger, true
}

// Delete removes the session. Deleting an absent session is a no-op.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	if obs.CartsActive != nil {
		obs.CartsActive.Set(float64(len(s.sessions)))
	}
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 && obs.CartsActive != nil {
		obs.CartsActive.Set(float64(len(s.sessions)))
	}
	return removed
}

// Janitor sweeps expired sessions on the given interval until the context is done.
func (s *Store) Janitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
