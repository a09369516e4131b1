package monitor

import (
	"context"
	"sync"

	"botdash/internal/ids"
)

// Mount is a monitor mounted on behalf of a remote client.
type Mount struct {
	ID      string
	Owner   string
	Monitor *Monitor
}

// Registry keeps the monitors currently mounted by remote clients.
type Registry struct {
	balances  BalanceSource
	history   HistorySource
	subscribe Subscriber
	opts      Options

	mu    sync.Mutex
	views map[string]*Mount
}

func NewRegistry(balances BalanceSource, history HistorySource, subscribe Subscriber, opts Options) *Registry {
	return &Registry{
		balances:  balances,
		history:   history,
		subscribe: subscribe,
		opts:      opts,
		views:     map[string]*Mount{},
	}
}

// Open mounts a view of instanceID for owner. history overrides the
// registry's history source when non-nil. The view stays mounted and
// registered until ctx ends.
func (r *Registry) Open(ctx context.Context, instanceID, owner string, history HistorySource) *Mount {
	if history == nil {
		history = r.history
	}
	v := &Mount{
		ID:      ids.New(),
		Owner:   owner,
		Monitor: New(instanceID, r.balances, history, r.subscribe, r.opts),
	}
	r.mu.Lock()
	r.views[v.ID] = v
	r.mu.Unlock()

	go func() {
		_ = v.Monitor.Run(ctx)
		r.mu.Lock()
		delete(r.views, v.ID)
		r.mu.Unlock()
	}()
	return v
}

func (r *Registry) Get(viewID string) (*Mount, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[viewID]
	return v, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}
