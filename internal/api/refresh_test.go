package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliotalk/foliotalk/internal/storage"
)

// Three concurrent requests hitting the token-expired 403 must share one
// refresh call and each retry exactly once with the new token.
func TestRefreshSingleFlight(t *testing.T) {
	var refreshCalls int32

	router := mux.NewRouter()
	router.HandleFunc("/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		var body refreshTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "ref-old", body.RefreshToken)
		writeEnvelope(w, http.StatusOK, TokenResponse{AccessToken: "acc-new", RefreshToken: "ref-old"}, nil)
	})
	router.HandleFunc("/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status": "error",
				"error":  map[string]string{"code": codeTokenExpired, "message": "access token expired"},
			})
			return
		}
		writeEnvelope(w, http.StatusOK, UserInfo{ID: "u1"}, nil)
	})

	client, tokens := newTestClient(t, router)
	require.NoError(t, tokens.Set(storage.TokenPair{AccessToken: "acc-old", RefreshToken: "ref-old"}))

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Me(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls), "refresh must be single-flight")
	assert.Equal(t, "acc-new", tokens.Get().AccessToken)
}

// A failed refresh tears the session down and reports ErrSessionExpired.
func TestRefreshFailureClearsSession(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	router.HandleFunc("/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"error":  map[string]string{"code": codeTokenExpired, "message": "access token expired"},
		})
	})

	client, tokens := newTestClient(t, router)
	require.NoError(t, tokens.Set(storage.TokenPair{AccessToken: "acc", RefreshToken: "ref"}))

	_, err := client.Me(context.Background())
	assert.True(t, IsAuth(err), "expected session-expired, got %v", err)
	assert.Empty(t, tokens.Get().AccessToken)
	assert.Empty(t, tokens.Get().RefreshToken)
}

// The retry happens once, never indefinitely: if the server keeps answering
// with the expiry code even after a successful refresh, the second response
// is surfaced as an error instead of looping.
func TestRefreshRetriesOnlyOnce(t *testing.T) {
	var meCalls int32

	router := mux.NewRouter()
	router.HandleFunc("/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, TokenResponse{AccessToken: "acc-new", RefreshToken: "ref"}, nil)
	})
	router.HandleFunc("/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"error":  map[string]string{"code": codeTokenExpired, "message": "access token expired"},
		})
	})

	client, tokens := newTestClient(t, router)
	require.NoError(t, tokens.Set(storage.TokenPair{AccessToken: "acc", RefreshToken: "ref"}))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&meCalls), "original call plus exactly one retry")
}
