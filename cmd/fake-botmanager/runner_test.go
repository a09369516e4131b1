package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"botdash/internal/botmanager"
	"botdash/internal/livefeed"
	"botdash/internal/store"
	"botdash/internal/telemetry"
)

type recordingSink struct {
	mu   sync.Mutex
	bets []store.Bet
}

func (s *recordingSink) InsertBet(ctx context.Context, b store.Bet) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets = append(s.bets, b)
	return b.ID, nil
}

func TestControlEndpoints(t *testing.T) {
	r := newRunner(time.Hour, 250, nil, 1)
	ts := httptest.NewServer(r.routes("/socket.io/"))
	defer ts.Close()

	c := botmanager.NewClient(ts.URL, time.Second)
	got, err := c.Balance(context.Background(), "A123")
	if err != nil || got != 250 {
		t.Fatalf("balance = %v, %v", got, err)
	}
	if err := c.Start(context.Background(), "A123"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.isRunning("A123") {
		t.Fatal("instance not running after start")
	}
	if err := c.Stop(context.Background(), "A123"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.isRunning("A123") {
		t.Fatal("instance still running after stop")
	}
}

func TestPlaceBetMovesBalance(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner(time.Hour, 100, sink, 7)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		before := r.balance("A123")
		payload := r.placeBet("A123", "Hold &amp; wait", now)
		stake := payload["stake"].(float64)
		if stake < 0.5 || stake > 20 {
			t.Fatalf("stake = %v", stake)
		}
		want := before - stake
		if payload["status"] == "SUCCESS" {
			want = before + stake
		}
		if got := r.balance("A123"); got != want {
			t.Fatalf("balance = %v, want %v", got, want)
		}
		raw, _ := json.Marshal(payload)
		rec, err := telemetry.ParseRecord(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		entry := telemetry.NormalizeBetEvent(rec, now)
		if entry.InstanceID != "A123" || telemetry.DecodeTipMessage(entry.Tip) != "Hold & wait" {
			t.Fatalf("entry = %+v", entry)
		}
	}
	if len(sink.bets) != 20 {
		t.Fatalf("recorded %d bets, want 20", len(sink.bets))
	}
}

func TestFeedPushesWhileRunning(t *testing.T) {
	r := newRunner(5*time.Millisecond, 100, nil, 3)
	r.setRunning("A123", true)
	ts := httptest.NewServer(r.routes("/socket.io/"))
	defer ts.Close()

	sub := livefeed.NewClient(livefeed.Config{BaseURL: ts.URL, ReconnectDelay: 10 * time.Millisecond}).
		Subscribe(context.Background(), "A123")
	defer sub.Close()

	seen := map[livefeed.EventKind]bool{}
	deadline := time.After(5 * time.Second)
	for !(seen[livefeed.EventConnect] && seen[livefeed.EventLog] && seen[livefeed.EventBet]) {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatal("feed closed")
			}
			seen[ev.Kind] = true
		case <-deadline:
			t.Fatalf("events seen = %v", seen)
		}
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	r := newRunner(time.Hour, 1, nil, 1)
	w := httptest.NewRecorder()
	r.routes("/socket.io/").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bot/reboot/A", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}
