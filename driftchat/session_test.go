package driftchat

import (
	"testing"
	"time"

	"github.com/driftchat/drift-sdk-go/driftchat/store"
)

func TestSessionStoreCompareAndClear(t *testing.T) {
	s := NewSessionStore(store.NewMemory())
	var fired int
	s.OnInvalidate(func() { fired++ })

	s.Set("tok")
	s.Clear()
	s.Clear()
	s.Clear()

	if fired != 1 {
		t.Fatalf("invalidation fired %d times, want 1", fired)
	}
	if _, ok := s.Get(); ok {
		t.Fatalf("credential still present after clear")
	}
}

func TestSessionStoreClearWhileAbsentIsSilent(t *testing.T) {
	s := NewSessionStore(store.NewMemory())
	var fired int
	s.OnInvalidate(func() { fired++ })

	s.Clear()
	if fired != 0 {
		t.Fatalf("invalidation fired with no credential present")
	}
}

func TestSessionStoreHydratesFromDurableStorage(t *testing.T) {
	kv := store.NewMemory()

	first := NewSessionStore(kv)
	first.Set("tok")

	// a fresh store over the same kv simulates a process restart
	second := NewSessionStore(kv)
	got, ok := second.Get()
	if !ok || got != "tok" {
		t.Fatalf("hydrated credential = %q, %v", got, ok)
	}

	second.Clear()
	third := NewSessionStore(kv)
	if _, ok := third.Get(); ok {
		t.Fatalf("cleared credential survived restart")
	}
}

func TestSessionStoreWorksWithoutStorage(t *testing.T) {
	s := NewSessionStore(nil)
	s.Set("tok")
	if got, ok := s.Get(); !ok || got != "tok" {
		t.Fatalf("get = %q, %v", got, ok)
	}
	s.Clear()
	if _, ok := s.Get(); ok {
		t.Fatalf("credential present after clear")
	}
}

func TestReadMarkersRoundTrip(t *testing.T) {
	m := NewReadMarkers(store.NewMemory())
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, _ := m.LastSeen("r1"); ok {
		t.Fatalf("marker present before any mark")
	}
	if err := m.MarkSeen("r1", at); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, ok, err := m.LastSeen("r1")
	if err != nil || !ok || !got.Equal(at) {
		t.Fatalf("last seen = %v, %v, %v", got, ok, err)
	}
}
