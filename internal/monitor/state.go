package monitor

import (
	"time"

	"botdash/internal/telemetry"
)

// State is an immutable snapshot of one view. Slices are never mutated after
// the snapshot has been handed out.
type State struct {
	InstanceID string               `json:"instanceId"`
	Connected  bool                 `json:"connected"`
	Balance    float64              `json:"balance"`
	HasBalance bool                 `json:"hasBalance"`
	Logs       []telemetry.LogEntry `json:"logs"`
	Bets       []telemetry.BetEntry `json:"bets"`
	Tips       []telemetry.TipEntry `json:"tips"`
	Version    uint64               `json:"version"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// Watch returns a channel that always holds the newest snapshot not yet
// received. Intermediate snapshots may be skipped. The channel is closed by
// Unwatch or when Run returns.
func (m *Monitor) Watch() chan State {
	ch := make(chan State, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch
	}
	ch <- m.state
	m.watchers[ch] = struct{}{}
	return ch
}

func (m *Monitor) Unwatch(ch chan State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watchers[ch]; ok {
		delete(m.watchers, ch)
		close(ch)
	}
}

func (m *Monitor) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) publish(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	s.Version = m.state.Version + 1
	m.state = s
	for ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (m *Monitor) closeWatchers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for ch := range m.watchers {
		close(ch)
		delete(m.watchers, ch)
	}
}
