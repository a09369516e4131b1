package monitor

import (
	"context"

	"botdash/internal/livefeed"
	"botdash/internal/telemetry"
)

type BalanceSource interface {
	Balance(ctx context.Context, instanceID string) (float64, error)
}

type HistorySource interface {
	RecentBets(ctx context.Context, instanceID string, limit int) ([]telemetry.BetEntry, error)
}

// Feed is one live connection scoped to an instance. Events is closed once
// the connection has stopped for good; Close returns after that.
type Feed interface {
	Events() <-chan livefeed.Event
	Close() error
}

type Subscriber func(ctx context.Context, instanceID string) Feed

// LiveSubscriber opens feeds through a livefeed client.
func LiveSubscriber(c *livefeed.Client) Subscriber {
	return func(ctx context.Context, instanceID string) Feed {
		return c.Subscribe(ctx, instanceID)
	}
}
