package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"botdash/internal/livefeed"
	"botdash/internal/telemetry"
)

type fakeFeed struct {
	instanceID string
	events     chan livefeed.Event
	closeOnce  sync.Once
	closed     chan struct{}
}

func newFakeFeed(id string) *fakeFeed {
	return &fakeFeed{instanceID: id, events: make(chan livefeed.Event, 16), closed: make(chan struct{})}
}

func (f *fakeFeed) Events() <-chan livefeed.Event {
	return f.events
}

func (f *fakeFeed) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		close(f.events)
	})
	return nil
}

func (f *fakeFeed) push(t *testing.T, kind livefeed.EventKind, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	f.events <- livefeed.Event{Kind: kind, Data: raw, At: time.Now()}
}

type fakeSubscriber struct {
	mu    sync.Mutex
	feeds []*fakeFeed
	ready chan *fakeFeed
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{ready: make(chan *fakeFeed, 8)}
}

func (s *fakeSubscriber) subscribe(ctx context.Context, id string) Feed {
	f := newFakeFeed(id)
	s.mu.Lock()
	s.feeds = append(s.feeds, f)
	s.mu.Unlock()
	s.ready <- f
	return f
}

func (s *fakeSubscriber) next(t *testing.T) *fakeFeed {
	t.Helper()
	select {
	case f := <-s.ready:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no subscription opened")
		return nil
	}
}

type balanceFunc func(ctx context.Context, id string) (float64, error)

func (f balanceFunc) Balance(ctx context.Context, id string) (float64, error) {
	return f(ctx, id)
}

type historyFunc func(ctx context.Context, id string, limit int) ([]telemetry.BetEntry, error)

func (f historyFunc) RecentBets(ctx context.Context, id string, limit int) ([]telemetry.BetEntry, error) {
	return f(ctx, id, limit)
}

func noHistory() HistorySource {
	return historyFunc(func(ctx context.Context, id string, limit int) ([]telemetry.BetEntry, error) {
		return nil, nil
	})
}

func fixedBalance(v float64) BalanceSource {
	return balanceFunc(func(ctx context.Context, id string) (float64, error) {
		return v, nil
	})
}

// quietOptions keeps the timers out of the way so each test drives fetches
// explicitly.
func quietOptions() Options {
	return Options{BalanceInterval: time.Hour, BetPollInterval: time.Hour}
}

func startMonitor(t *testing.T, m *Monitor) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-m.Done()
	})
	return cancel
}

func waitState(t *testing.T, m *Monitor, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := m.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met, last state: %+v", s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func holdState(t *testing.T, m *Monitor, d time.Duration, cond func(State) bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if s := m.Snapshot(); !cond(s) {
			t.Fatalf("condition broken: %+v", s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
