package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/driftchat/drift-sdk-go/driftchat"
	"github.com/driftchat/drift-sdk-go/driftchat/store"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *driftchat.SessionStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := driftchat.DefaultConfig()
	cfg.BaseURL = srv.URL
	session := driftchat.NewSessionStore(store.NewMemory())
	return NewClient(cfg, session), session
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	session.Set("tok")

	if _, err := c.ListRooms(context.Background()); err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", gotAuth)
	}
}

func TestUnauthorizedInvalidatesSessionExactlyOnce(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"token expired"}`))
	}))
	session.Set("tok")

	var invalidations int
	var mu sync.Mutex
	session.OnInvalidate(func() {
		mu.Lock()
		invalidations++
		mu.Unlock()
	})

	// three concurrent in-flight requests all see the 401
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ListRooms(context.Background())
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if invalidations != 1 {
		t.Fatalf("invalidations = %d, want 1", invalidations)
	}
	if _, ok := session.Get(); ok {
		t.Fatalf("credential still present after 401")
	}
	for _, err := range errs {
		code := driftchat.CodeOf(err)
		if code != driftchat.ErrorAuthExpired && code != driftchat.ErrorInvalidInput {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestVerifyEndpoint401KeepsSession(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"wrong password"}`))
	}))
	session.Set("tok")
	var invalidations int
	session.OnInvalidate(func() { invalidations++ })

	err := c.VerifyPassword(context.Background(), "nope")
	if driftchat.CodeOf(err) != driftchat.ErrorInvalidInput {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if invalidations != 0 {
		t.Fatalf("verification 401 invalidated the session")
	}
	if _, ok := session.Get(); !ok {
		t.Fatalf("credential cleared by verification 401")
	}
}

func TestForbiddenDoesNotInvalidate(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	session.Set("tok")

	_, err := c.ListRooms(context.Background())
	if driftchat.CodeOf(err) != driftchat.ErrorForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if _, ok := session.Get(); !ok {
		t.Fatalf("403 cleared the session")
	}
}

func TestBadRequestCarriesServerMessage(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"room name too long"}`))
	}))
	session.Set("tok")

	err := c.MarkRead(context.Background(), "r1")
	if driftchat.CodeOf(err) != driftchat.ErrorBadRequest {
		t.Fatalf("err = %v, want bad_request", err)
	}
	var ce *driftchat.ChatError
	if !errors.As(err, &ce) || ce.Message != "room name too long" {
		t.Fatalf("message not surfaced: %v", err)
	}
}

func TestTransportFailureSurfacedWithoutRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	srv.Close() // nothing listening anymore

	cfg := driftchat.DefaultConfig()
	cfg.BaseURL = srv.URL
	session := driftchat.NewSessionStore(store.NewMemory())
	session.Set("tok")
	c := NewClient(cfg, session)

	_, err := c.ListRooms(context.Background())
	if !driftchat.IsTransport(err) {
		t.Fatalf("err = %v, want transport", err)
	}
	if calls != 0 {
		t.Fatalf("request retried %d times", calls)
	}
	if _, ok := session.Get(); !ok {
		t.Fatalf("transport failure cleared the session")
	}
}

func TestLoginStoresCredential(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("login carried stale auth %q", auth)
		}
		_ = json.NewEncoder(w).Encode(tokenResponse{Token: "fresh"})
	}))

	if err := c.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok, ok := session.Get(); !ok || tok != "fresh" {
		t.Fatalf("stored credential = %q, %v", tok, ok)
	}
}

func TestLoginRejectionIsInvalidInput(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad credentials"}`))
	}))

	err := c.Login(context.Background(), "alice", "wrong")
	if driftchat.CodeOf(err) != driftchat.ErrorInvalidInput {
		t.Fatalf("err = %v, want invalid_input", err)
	}
	if _, ok := session.Get(); ok {
		t.Fatalf("failed login left a credential behind")
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	c, session := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rooms":
			_, _ = w.Write([]byte(`[{"room_id":"r1","display_name":"Team","is_group":true,"unread_count":3}]`))
		case "/rooms/r1/messages":
			_, _ = w.Write([]byte(`{"messages":[{"room_id":"r1","sender_id":"alice","body":"hi","sent_at":"2025-06-01T12:00:00Z"}],"has_more":false}`))
		default:
			http.NotFound(w, r)
		}
	}))
	session.Set("tok")

	rooms, err := c.ListRooms(context.Background())
	if err != nil || len(rooms) != 1 {
		t.Fatalf("rooms = %v, %v", rooms, err)
	}
	if rooms[0].RoomID != "r1" || !rooms[0].IsGroup || rooms[0].UnreadCount != 3 {
		t.Fatalf("room = %+v", rooms[0])
	}

	msgs, err := c.FetchHistory(context.Background(), "r1")
	if err != nil || len(msgs) != 1 {
		t.Fatalf("history = %v, %v", msgs, err)
	}
	if msgs[0].SenderID != "alice" || msgs[0].Body != "hi" {
		t.Fatalf("message = %+v", msgs[0])
	}
}
