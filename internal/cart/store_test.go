package cart

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStoreLifecycle(t *testing.T) {
	s := NewStore(time.Hour)
	id := s.Create()

	ledger, ok := s.Get(id)
	if !ok || ledger == nil {
		t.Fatalf("expected ledger for new session")
	}

	s.Delete(id)
	if _, ok := s.Get(id); ok {
		t.Fatalf("expected session gone after delete")
	}
}

func TestStoreGetUnknown(t *testing.T) {
	s := NewStore(time.Hour)
	if _, ok := s.Get(uuid.New()); ok {
		t.Fatalf("expected miss for unknown id")
	}
}

func TestStoreExpiry(t *testing.T) {
	now := time.Now()
	s := NewStore(time.Minute)
	s.Now = func() time.Time { return now }

	id := s.Create()
	now = now.Add(2 * time.Minute)
	if _, ok := s.Get(id); ok {
		t.Fatalf("expected session expired")
	}
}

func TestStoreGetRefreshesTTL(t *testing.T) {
	now := time.Now()
	s := NewStore(time.Minute)
	s.Now = func() time.Time { return now }

	id := s.Create()
	now = now.Add(50 * time.Second)
	if _, ok := s.Get(id); !ok {
		t.Fatalf("expected live session")
	}
	// well past the original deadline but within the refreshed one
	now = now.Add(50 * time.Second)
	if _, ok := s.Get(id); !ok {
		t.Fatalf("expected TTL refreshed by previous access")
	}
}

func TestStoreSweep(t *testing.T) {
	now := time.Now()
	s := NewStore(time.Minute)
	s.Now = func() time.Time { return now }

	s.Create()
	s.Create()
	live := s.Create()
	now = now.Add(30 * time.Second)
	if _, ok := s.Get(live); !ok {
		t.Fatalf("expected live session")
	}
	now = now.Add(45 * time.Second)

	if removed := s.Sweep(); removed != 2 {
		t.Fatalf("expected 2 swept, got %d", removed)
	}
	if _, ok := s.Get(live); !ok {
		t.Fatalf("expected refreshed session to survive sweep")
	}
}
