package main

import (
	"context"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"botdash/internal/ids"
	"botdash/internal/livefeed"
	"botdash/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var tipMessages = []string{
	"Buy now",
	"Sell now",
	"Hold &amp; wait",
	"Over 2.5 goals",
	"Draw &quot;no bet&quot;",
	"Home win &gt; 60%",
}

var logMessages = []struct {
	level string
	text  string
}{
	{"INFO", "polling odds"},
	{"INFO", "tip received"},
	{"WARN", "odds moved before placement"},
	{"ERROR", "bookmaker timeout"},
}

type betSink interface {
	InsertBet(ctx context.Context, b store.Bet) (string, error)
}

// runner imitates the bot-runner: it tracks a balance and a run flag per
// instance and pushes random telemetry to subscribed feed clients of
// running instances.
type runner struct {
	interval time.Duration
	initial  float64
	sink     betSink
	feed     *livefeed.Server

	mu       sync.Mutex
	rnd      *rand.Rand
	balances map[string]float64
	running  map[string]bool
}

func newRunner(interval time.Duration, initial float64, sink betSink, seed int64) *runner {
	r := &runner{
		interval: interval,
		initial:  initial,
		sink:     sink,
		rnd:      rand.New(rand.NewSource(seed)),
		balances: map[string]float64{},
		running:  map[string]bool{},
	}
	r.feed = livefeed.NewServer(r.emitLoop)
	return r
}

func (r *runner) routes(socketPath string) http.Handler {
	mux := chi.NewRouter()
	mux.Get("/bot/balance/{instanceId}", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"balance": r.balance(chi.URLParam(req, "instanceId"))})
	})
	mux.Get("/bot/start/{instanceId}", func(w http.ResponseWriter, req *http.Request) {
		r.setRunning(chi.URLParam(req, "instanceId"), true)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.Get("/bot/stop/{instanceId}", func(w http.ResponseWriter, req *http.Request) {
		r.setRunning(chi.URLParam(req, "instanceId"), false)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.Mount(strings.TrimSuffix(socketPath, "/"), r.feed)
	return mux
}

func (r *runner) balance(id string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.balances[id]; ok {
		return v
	}
	return r.initial
}

func (r *runner) setRunning(id string, on bool) {
	r.mu.Lock()
	r.running[id] = on
	r.mu.Unlock()
	log.Info().Str("instance_id", id).Bool("running", on).Msg("instance toggled")
}

func (r *runner) isRunning(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[id]
}

func (r *runner) emitLoop(s *livefeed.Session) {
	s.Emit("log", map[string]any{"level": "INFO", "message": "feed attached", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.Done():
			return
		case <-ticker.C:
			if !r.isRunning(s.InstanceID) {
				continue
			}
			name, payload := r.next(s.InstanceID, time.Now())
			if !s.Emit(name, payload) {
				return
			}
		}
	}
}

// next picks the following event for id: half logs, the rest bets and tips.
func (r *runner) next(id string, now time.Time) (string, map[string]any) {
	r.mu.Lock()
	roll := r.rnd.Intn(10)
	pick := r.rnd.Intn(len(tipMessages))
	r.mu.Unlock()
	switch {
	case roll < 5:
		l := logMessages[pick%len(logMessages)]
		return "log", map[string]any{"level": l.level, "message": l.text, "timestamp": now.UTC().Format(time.RFC3339)}
	case roll < 8:
		return "bet", r.placeBet(id, tipMessages[pick], now)
	default:
		return "tip", map[string]any{
			"id":        ids.New(),
			"timestamp": now.UTC().Format(time.RFC3339),
			"message":   url.PathEscape(tipMessages[pick]),
			"source":    "tipster",
		}
	}
}

// placeBet settles a random bet against the balance of id and records it.
func (r *runner) placeBet(id, tip string, now time.Time) map[string]any {
	r.mu.Lock()
	stake, _ := decimal.NewFromInt(int64(r.rnd.Intn(40) + 1)).Div(decimal.NewFromInt(2)).Float64()
	won := r.rnd.Intn(2) == 0
	bal, ok := r.balances[id]
	if !ok {
		bal = r.initial
	}
	failed := 0
	status := "SUCCESS"
	if won {
		bal += stake
	} else {
		bal -= stake
		failed = 1
		status = "FAILED"
	}
	r.balances[id] = bal
	r.mu.Unlock()

	bet := store.Bet{
		ID:            ids.New(),
		BotInstanceID: id,
		TipID:         ids.New(),
		Tip:           url.PathEscape(tip),
		Stake:         stake,
		FailedCount:   failed,
		Status:        status,
		CreatedAt:     now.UTC(),
	}
	if r.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := r.sink.InsertBet(ctx, bet); err != nil {
			log.Warn().Err(err).Str("instance_id", id).Msg("record bet failed")
		}
		cancel()
	}
	return map[string]any{
		"_id":           bet.ID,
		"botInstanceId": id,
		"tip_id":        bet.TipID,
		"tip":           bet.Tip,
		"stake":         stake,
		"failedCount":   failed,
		"status":        status,
		"createdAt":     bet.CreatedAt.Format(time.RFC3339Nano),
	}
}
