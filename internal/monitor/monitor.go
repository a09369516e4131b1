// Package monitor aggregates the live telemetry of one bot instance into a
// single view: pushed logs, bets and tips, the polled bet history and the
// polled account balance.
package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"botdash/internal/config"
	"botdash/internal/livefeed"
	"botdash/internal/telemetry"

	"github.com/rs/zerolog/log"
)

var ErrAlreadyRunning = errors.New("monitor_already_running")

const (
	DefaultBalanceInterval = 60 * time.Second
	DefaultBetPollInterval = 3 * time.Second
	DefaultBetHistoryLimit = 50
)

type Options struct {
	BalanceInterval time.Duration
	BetPollInterval time.Duration
	BetHistoryLimit int
	Now             func() time.Time
}

func OptionsFromConfig(cfg config.MonitorConfig) Options {
	return Options{
		BalanceInterval: cfg.BalanceInterval,
		BetPollInterval: cfg.BetPollInterval,
		BetHistoryLimit: cfg.BetHistoryLimit,
	}
}

// Monitor is one mounted view. All view state is owned by the goroutine
// running Run; other goroutines talk to it through the inbox and read
// published snapshots.
type Monitor struct {
	balances  BalanceSource
	history   HistorySource
	subscribe Subscriber
	opts      Options

	inbox   chan any
	done    chan struct{}
	running atomic.Bool

	mu       sync.Mutex
	state    State
	watchers map[chan State]struct{}
	closed   bool
}

func New(instanceID string, balances BalanceSource, history HistorySource, subscribe Subscriber, opts Options) *Monitor {
	if opts.BalanceInterval <= 0 {
		opts.BalanceInterval = DefaultBalanceInterval
	}
	if opts.BetPollInterval <= 0 {
		opts.BetPollInterval = DefaultBetPollInterval
	}
	if opts.BetHistoryLimit <= 0 {
		opts.BetHistoryLimit = DefaultBetHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Monitor{
		balances:  balances,
		history:   history,
		subscribe: subscribe,
		opts:      opts,
		inbox:     make(chan any, 16),
		done:      make(chan struct{}),
		state:     State{InstanceID: instanceID},
		watchers:  map[chan State]struct{}{},
	}
}

type setInstanceMsg struct {
	id string
}

type refreshBalanceMsg struct{}

type balanceResult struct {
	gen     uint64
	seq     uint64
	ctx     context.Context
	balance float64
	err     error
}

type betsResult struct {
	gen  uint64
	seq  uint64
	ctx  context.Context
	bets []telemetry.BetEntry
	err  error
}

// SetInstance rebinds the view: the current connection, timers and
// in-flight fetches are abandoned and all state starts over for id.
func (m *Monitor) SetInstance(id string) {
	m.send(setInstanceMsg{id: id})
}

// RefreshBalance fetches the balance now, superseding any fetch in flight.
func (m *Monitor) RefreshBalance() {
	m.send(refreshBalanceMsg{})
}

// Done is closed once Run has returned.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) send(msg any) {
	select {
	case m.inbox <- msg:
	case <-m.done:
	}
}

// Run mounts the view and blocks until ctx ends. Nothing is mutated after
// Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(m.done)
	defer m.closeWatchers()

	metricViewsActive.Inc()
	defer metricViewsActive.Dec()

	l := &loop{
		m:           m,
		ctx:         ctx,
		feed:        telemetry.NewFeed(),
		balanceTick: time.NewTicker(m.opts.BalanceInterval),
		betTick:     time.NewTicker(m.opts.BetPollInterval),
	}
	defer l.stop()

	l.mount(m.Snapshot().InstanceID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.inbox:
			l.handle(msg)
		case ev, ok := <-l.events:
			if !ok {
				l.events = nil
				continue
			}
			l.apply(ev)
		case <-l.balanceTick.C:
			l.fetchBalance()
		case <-l.betTick.C:
			l.fetchBets()
		}
	}
}

type loop struct {
	m   *Monitor
	ctx context.Context

	instanceID string
	gen        uint64
	feed       *telemetry.Feed
	connected  bool
	balance    float64
	hasBalance bool

	instCtx    context.Context
	instCancel context.CancelFunc
	live       Feed
	events     <-chan livefeed.Event

	balanceTick   *time.Ticker
	betTick       *time.Ticker
	balanceSeq    uint64
	balanceCancel context.CancelFunc
	betSeq        uint64
	betApplied    uint64

	fetches sync.WaitGroup
}

func (l *loop) mount(id string) {
	l.gen++
	l.instanceID = id
	l.feed.Reset()
	l.connected = false
	l.balance = 0
	l.hasBalance = false
	l.betApplied = l.betSeq
	l.balanceTick.Reset(l.m.opts.BalanceInterval)
	l.betTick.Reset(l.m.opts.BetPollInterval)
	l.publish()

	if id == "" {
		return
	}
	l.instCtx, l.instCancel = context.WithCancel(l.ctx)
	l.live = l.m.subscribe(l.instCtx, id)
	l.events = l.live.Events()
	metricSubscriptionsTotal.Inc()
	log.Debug().Str("instance_id", id).Msg("monitor mounted")

	l.fetchBalance()
	l.fetchBets()
}

func (l *loop) unmount() {
	if l.instCancel != nil {
		l.instCancel()
		l.instCancel = nil
	}
	l.balanceCancel = nil
	if l.live != nil {
		_ = l.live.Close()
		l.live = nil
		l.events = nil
	}
}

func (l *loop) stop() {
	l.unmount()
	l.balanceTick.Stop()
	l.betTick.Stop()
	l.fetches.Wait()
}

func (l *loop) handle(msg any) {
	switch msg := msg.(type) {
	case setInstanceMsg:
		if msg.id == l.instanceID {
			return
		}
		l.unmount()
		l.mount(msg.id)
	case refreshBalanceMsg:
		l.fetchBalance()
	case balanceResult:
		l.onBalance(msg)
	case betsResult:
		l.onBets(msg)
	}
}

func (l *loop) post(msg any) {
	select {
	case l.m.inbox <- msg:
	case <-l.ctx.Done():
	}
}

func (l *loop) fetchBalance() {
	if l.instanceID == "" || l.m.balances == nil {
		return
	}
	if l.balanceCancel != nil {
		l.balanceCancel()
	}
	l.balanceSeq++
	ctx, cancel := context.WithCancel(l.instCtx)
	l.balanceCancel = cancel

	gen, seq, id := l.gen, l.balanceSeq, l.instanceID
	l.fetches.Add(1)
	go func() {
		defer l.fetches.Done()
		bal, err := l.m.balances.Balance(ctx, id)
		l.post(balanceResult{gen: gen, seq: seq, ctx: ctx, balance: bal, err: err})
	}()
}

func (l *loop) onBalance(r balanceResult) {
	if r.gen != l.gen || r.seq != l.balanceSeq {
		metricStaleResultsTotal.WithLabelValues("balance").Inc()
		return
	}
	if l.balanceCancel != nil {
		l.balanceCancel()
		l.balanceCancel = nil
	}
	if r.err != nil {
		if cancelled(r.ctx, r.err) {
			return
		}
		metricFetchFailuresTotal.WithLabelValues("balance").Inc()
		log.Warn().Err(r.err).Str("instance_id", l.instanceID).Msg("balance refresh failed")
		return
	}
	l.balance = r.balance
	l.hasBalance = true
	l.publish()
}

func (l *loop) fetchBets() {
	if l.instanceID == "" || l.m.history == nil {
		return
	}
	l.betSeq++
	ctx := l.instCtx
	gen, seq, id, limit := l.gen, l.betSeq, l.instanceID, l.m.opts.BetHistoryLimit
	l.fetches.Add(1)
	go func() {
		defer l.fetches.Done()
		bets, err := l.m.history.RecentBets(ctx, id, limit)
		l.post(betsResult{gen: gen, seq: seq, ctx: ctx, bets: bets, err: err})
	}()
}

func (l *loop) onBets(r betsResult) {
	if r.gen != l.gen || r.seq <= l.betApplied {
		metricStaleResultsTotal.WithLabelValues("bets").Inc()
		return
	}
	if r.err != nil {
		if cancelled(r.ctx, r.err) {
			return
		}
		metricFetchFailuresTotal.WithLabelValues("bets").Inc()
		log.Warn().Err(r.err).Str("instance_id", l.instanceID).Msg("bet history poll failed")
		return
	}
	l.betApplied = r.seq
	l.feed.ReplaceBets(r.bets)
	l.publish()
}

func (l *loop) apply(ev livefeed.Event) {
	metricEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	now := ev.At
	if now.IsZero() {
		now = l.m.opts.Now()
	}
	switch ev.Kind {
	case livefeed.EventConnect:
		l.connected = true
	case livefeed.EventDisconnect:
		l.connected = false
	case livefeed.EventLog, livefeed.EventBet, livefeed.EventTip:
		r, err := telemetry.ParseRecord(ev.Data)
		if err != nil {
			log.Debug().Err(err).Str("event", string(ev.Kind)).Str("instance_id", l.instanceID).Msg("dropping malformed event")
			return
		}
		switch ev.Kind {
		case livefeed.EventLog:
			l.feed.AddLog(telemetry.NormalizeLogEvent(r, now))
		case livefeed.EventBet:
			l.feed.AddBet(telemetry.NormalizeBetEvent(r, now))
		case livefeed.EventTip:
			l.feed.AddTip(telemetry.NormalizeTipEvent(r, now))
		}
	default:
		return
	}
	l.publish()
}

func (l *loop) publish() {
	l.m.publish(State{
		InstanceID: l.instanceID,
		Connected:  l.connected,
		Balance:    l.balance,
		HasBalance: l.hasBalance,
		Logs:       l.feed.Logs.Items(),
		Bets:       l.feed.Bets.Items(),
		Tips:       l.feed.Tips.Items(),
		UpdatedAt:  l.m.opts.Now(),
	})
}

// cancelled reports whether err is the result of our own cancellation rather
// than a failure worth reporting.
func cancelled(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || (ctx != nil && ctx.Err() != nil)
}
