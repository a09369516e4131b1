package monitor

import (
	"context"
	"testing"
	"time"

	"botdash/internal/telemetry"
)

func TestRegistryOpenAndRelease(t *testing.T) {
	subs := newFakeSubscriber()
	r := NewRegistry(fixedBalance(1), noHistory(), subs.subscribe, quietOptions())

	ctx, cancel := context.WithCancel(context.Background())
	v := r.Open(ctx, "A123", "alice", nil)
	if v.ID == "" || v.Owner != "alice" {
		t.Fatalf("view = %+v", v)
	}
	if got, ok := r.Get(v.ID); !ok || got != v {
		t.Fatal("view not registered")
	}
	var mounted *Mount = v
	var shown View = Render(mounted.Monitor.Snapshot(), nil)
	if shown.InstanceID != "A123" {
		t.Fatalf("rendered mount = %+v", shown)
	}
	if f := subs.next(t); f.instanceID != "A123" {
		t.Fatalf("subscribed to %s", f.instanceID)
	}

	cancel()
	<-v.Monitor.Done()
	deadline := time.Now().Add(time.Second)
	for r.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("view not removed after its context ended")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := r.Get(v.ID); ok {
		t.Fatal("closed view still reachable")
	}
}

func TestRegistryHistoryOverride(t *testing.T) {
	subs := newFakeSubscriber()
	r := NewRegistry(fixedBalance(1), noHistory(), subs.subscribe, quietOptions())
	own := historyFunc(func(ctx context.Context, id string, limit int) ([]telemetry.BetEntry, error) {
		return []telemetry.BetEntry{{ID: "mine", Status: telemetry.BetSuccess}}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v := r.Open(ctx, "A123", "alice", own)
	s := waitState(t, v.Monitor, func(s State) bool { return len(s.Bets) == 1 })
	if s.Bets[0].ID != "mine" {
		t.Fatalf("bets = %+v", s.Bets)
	}
}
