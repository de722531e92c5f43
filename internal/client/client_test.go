package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAPI is a minimal server speaking the auth protocol: one access token is
// "good", everything else gets a 403. The refresh endpoint hands out the good
// token when presented with validRefresh.
type fakeAPI struct {
	goodAccess   string
	validRefresh string
	refreshDelay time.Duration

	refreshCalls atomic.Int64
	taskCalls    atomic.Int64
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{
			"accessToken":  f.goodAccess,
			"refreshToken": f.validRefresh,
		})
	})

	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		if f.refreshDelay > 0 {
			time.Sleep(f.refreshDelay)
		}
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.RefreshToken != f.validRefresh {
			writeJSON(w, 403, map[string]string{"message": "Invalid refresh token"})
			return
		}
		writeJSON(w, 200, map[string]string{"accessToken": f.goodAccess})
	})

	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		f.taskCalls.Add(1)
		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeJSON(w, 401, map[string]string{"message": "access token required"})
			return
		}
		if auth != "Bearer "+f.goodAccess {
			writeJSON(w, 403, map[string]string{"message": "invalid or expired token"})
			return
		}
		writeJSON(w, 200, map[string]any{
			"tasks": []any{}, "total": 0, "page": 1, "totalPages": 0,
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSilentRefreshRetry(t *testing.T) {
	api := &fakeAPI{goodAccess: "good-access", validRefresh: "good-refresh"}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokens("stale-access", "good-refresh")

	// the stale token draws a 403; the client must refresh and retry without
	// surfacing an error
	if _, err := c.ListTasks(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}

	if got := api.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
	if got := api.taskCalls.Load(); got != 2 {
		t.Fatalf("task calls = %d, want 2 (original + one retry)", got)
	}

	access, refresh := c.Tokens()
	if access != "good-access" {
		t.Fatalf("access token not replaced: %q", access)
	}
	if refresh != "good-refresh" {
		t.Fatalf("refresh token must not rotate: %q", refresh)
	}
}

func TestRefreshFailureEndsSession(t *testing.T) {
	api := &fakeAPI{goodAccess: "good-access", validRefresh: "good-refresh"}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokens("stale-access", "stale-refresh")

	var expired atomic.Bool
	c.OnSessionExpired = func() { expired.Store(true) }

	_, err := c.ListTasks(context.Background(), ListOptions{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("got %v, want ErrSessionExpired", err)
	}
	if !expired.Load() {
		t.Fatal("OnSessionExpired not called")
	}

	access, refresh := c.Tokens()
	if access != "" || refresh != "" {
		t.Fatalf("tokens not cleared: %q %q", access, refresh)
	}
}

func TestAtMostOneRetryPerRequest(t *testing.T) {
	// refresh succeeds but the server keeps rejecting: the client must give
	// up after one retry instead of looping
	mux := http.NewServeMux()
	var taskCalls atomic.Int64
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{"accessToken": "fresh"})
	})
	mux.HandleFunc("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		taskCalls.Add(1)
		writeJSON(w, 403, map[string]string{"message": "invalid or expired token"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokens("a", "r")

	_, err := c.ListTasks(context.Background(), ListOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Fatalf("got %v, want APIError 403", err)
	}
	if got := taskCalls.Load(); got != 2 {
		t.Fatalf("task calls = %d, want exactly 2", got)
	}
}

func TestNoRetryOn401(t *testing.T) {
	api := &fakeAPI{goodAccess: "good-access", validRefresh: "good-refresh"}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	// a client holding no tokens sends no credential and must not refresh
	c := New(srv.URL)
	_, err := c.ListTasks(context.Background(), ListOptions{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("got %v, want APIError 401", err)
	}
	if got := api.refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0", got)
	}
}

func TestConcurrentRefreshCoalesced(t *testing.T) {
	api := &fakeAPI{
		goodAccess:   "good-access",
		validRefresh: "good-refresh",
		refreshDelay: 200 * time.Millisecond,
	}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c := New(srv.URL)
	c.SetTokens("stale-access", "good-refresh")

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ListTasks(context.Background(), ListOptions{})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	// a burst of failing requests shares a single in-flight refresh
	if got := api.refreshCalls.Load(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestLoginStoresTokens(t *testing.T) {
	api := &fakeAPI{goodAccess: "good-access", validRefresh: "good-refresh"}
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	c := New(srv.URL)
	if err := c.Login(context.Background(), "alice@example.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	access, refresh := c.Tokens()
	if access != "good-access" || refresh != "good-refresh" {
		t.Fatalf("tokens = %q %q", access, refresh)
	}

	// authenticated call goes straight through, no refresh
	if _, err := c.ListTasks(context.Background(), ListOptions{}); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if got := api.refreshCalls.Load(); got != 0 {
		t.Fatalf("refresh calls = %d, want 0", got)
	}
}
