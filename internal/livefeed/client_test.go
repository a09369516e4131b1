package livefeed

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for feed event")
	}
	return Event{}
}

func newTestClient(srvURL string) *Client {
	return NewClient(Config{
		BaseURL:           srvURL,
		ReconnectDelay:    10 * time.Millisecond,
		ReconnectDelayMax: 20 * time.Millisecond,
	})
}

func TestFeedURL(t *testing.T) {
	got, err := FeedURL("https://runner.example.com/", "/socket.io/", "A 123")
	if err != nil {
		t.Fatalf("FeedURL error = %v", err)
	}
	if !strings.HasPrefix(got, "wss://runner.example.com/socket.io/?") {
		t.Fatalf("FeedURL = %s", got)
	}
	for _, part := range []string{"EIO=4", "transport=websocket", "instanceId=A+123"} {
		if !strings.Contains(got, part) {
			t.Fatalf("FeedURL = %s, missing %s", got, part)
		}
	}
	if _, err := FeedURL("ftp://x", "", "a"); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestSubscriptionDeliversEvents(t *testing.T) {
	var subscribed atomic.Value
	srv := NewServer(func(s *Session) {
		subscribed.Store(s.InstanceID)
		s.Emit("log", map[string]any{"level": "INFO", "message": "started"})
		s.Emit("unknown", map[string]any{"x": 1})
		s.Emit("tip", map[string]any{"id": "t1", "message": "Buy%20signal", "source": "X"})
		s.Emit("bet", map[string]any{"stake": 10, "status": "SUCCESS"})
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	sub := newTestClient(ts.URL).Subscribe(context.Background(), "A123")
	defer sub.Close()

	if ev := nextEvent(t, sub); ev.Kind != EventConnect {
		t.Fatalf("first event = %s, want connect", ev.Kind)
	}
	want := []EventKind{EventLog, EventTip, EventBet}
	for _, kind := range want {
		ev := nextEvent(t, sub)
		if ev.Kind != kind {
			t.Fatalf("event = %s, want %s", ev.Kind, kind)
		}
		if len(ev.Data) == 0 {
			t.Fatalf("%s event without data", kind)
		}
	}
	if got, _ := subscribed.Load().(string); got != "A123" {
		t.Fatalf("server saw subscribe for %q, want A123", got)
	}
}

func TestSubscriptionReconnectsAfterDrop(t *testing.T) {
	var connects atomic.Int32
	srv := NewServer(func(s *Session) {
		if connects.Add(1) == 1 {
			s.Kick()
			return
		}
		s.Emit("log", map[string]any{"message": "back"})
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	sub := newTestClient(ts.URL).Subscribe(context.Background(), "A123")
	defer sub.Close()

	kinds := []EventKind{EventConnect, EventDisconnect, EventConnect, EventLog}
	for _, kind := range kinds {
		if ev := nextEvent(t, sub); ev.Kind != kind {
			t.Fatalf("event = %s, want %s", ev.Kind, kind)
		}
	}
}

func TestSubscriptionAnswersPing(t *testing.T) {
	srv := NewServer(func(s *Session) {
		s.Emit("log", map[string]any{"message": "first"})
	})
	srv.PingInterval = 20 * time.Millisecond
	srv.PingTimeout = 50 * time.Millisecond
	ts := httptest.NewServer(srv)
	defer ts.Close()

	sub := newTestClient(ts.URL).Subscribe(context.Background(), "A123")
	defer sub.Close()

	nextEvent(t, sub)
	nextEvent(t, sub)
	select {
	case ev := <-sub.Events():
		t.Fatalf("connection should stay up across pings, got %s", ev.Kind)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestCloseStopsConnection(t *testing.T) {
	srv := NewServer(nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	sub := newTestClient(ts.URL).Subscribe(context.Background(), "A123")
	nextEvent(t, sub)
	if err := sub.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	for range sub.Events() {
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(srv.Sessions()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("server still has %d sessions after Close", len(srv.Sessions()))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubscribeWithBadURLClosesImmediately(t *testing.T) {
	sub := NewClient(Config{BaseURL: "ftp://nowhere"}).Subscribe(context.Background(), "A123")
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed events channel")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
	_ = sub.Close()
}
