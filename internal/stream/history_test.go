package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"github.com/foliotalk/foliotalk/internal/api"
	"github.com/foliotalk/foliotalk/internal/storage"
)

// historyHandler serves a fixed total number of messages in pages
func historyHandler(t *testing.T, total int) http.Handler {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/v1/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		paging, _ := strconv.Atoi(r.URL.Query().Get("paging"))
		if page < 1 || paging < 1 {
			t.Errorf("bad pagination params: %v", r.URL.Query())
		}

		start := (page - 1) * paging
		var items []map[string]any
		for i := start; i < total && i < start+paging; i++ {
			items = append(items, map[string]any{
				"id":              i + 1,
				"content":         fmt.Sprintf("message %d", i+1),
				"sender_type":     "USER",
				"conversation_id": mux.Vars(r)["id"],
				"created_at":      1700000000000 + int64(i),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": items})
	})
	return router
}

func newHistoryStream(t *testing.T, handler http.Handler, pageSize int) *Stream {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens, err := storage.NewTokenStore(storage.NewPathManagerAt(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	client := api.NewClient(srv.URL, tokens)
	return New(client, &TCPDialer{}, Options{PageSize: pageSize})
}

func TestLoadHistoryStopsOnShortPage(t *testing.T) {
	// 13 messages at page size 10: a full page, then a short page of 3
	s := newHistoryStream(t, historyHandler(t, 13), 10)
	s.Open("c1")

	n, hasMore, err := s.LoadHistory(context.Background())
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if n != 10 || !hasMore {
		t.Errorf("page 1: n=%d hasMore=%v", n, hasMore)
	}

	n, hasMore, err = s.LoadHistory(context.Background())
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	if n != 3 || hasMore {
		t.Errorf("page 2: n=%d hasMore=%v", n, hasMore)
	}

	// Exhausted history must not trigger further requests
	n, hasMore, err = s.LoadHistory(context.Background())
	if err != nil || n != 0 || hasMore {
		t.Errorf("exhausted history refetched: n=%d hasMore=%v err=%v", n, hasMore, err)
	}

	messages := s.Messages()
	if len(messages) != 13 {
		t.Fatalf("expected 13 messages, got %d", len(messages))
	}
	// Ascending order preserved across page appends
	for i, m := range messages {
		if m.ID != strconv.Itoa(i+1) {
			t.Fatalf("order broken at %d: %+v", i, m)
		}
	}
}

func TestLateHistoryForSwitchedConversationDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	router := mux.NewRouter()
	router.HandleFunc("/v1/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": []map[string]any{{
				"id": 1, "content": "stale", "sender_type": "USER",
				"conversation_id": "A", "created_at": 1700000000000,
			}},
		})
	})

	s := newHistoryStream(t, router, 10)
	s.Open("A")

	done := make(chan error, 1)
	go func() {
		_, _, err := s.LoadHistory(context.Background())
		done <- err
	}()

	// Switch conversations while the fetch is still in flight
	<-entered
	s.Open("B")
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if messages := s.Messages(); len(messages) != 0 {
		t.Errorf("stale history leaked into the new conversation: %+v", messages)
	}
}
