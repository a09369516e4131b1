package main

import (
	"encoding/json"
	"net/http"
	"time"

	"botdash/internal/config"
	"botdash/internal/logging"
	"botdash/internal/store"

	"github.com/rs/zerolog/log"
)

func main() {
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	logging.Init(logCfg)
	cfg, err := config.LoadRunner()
	if err != nil {
		log.Fatal().Err(err).Msg("load runner config failed")
	}

	var sink betSink
	if cfg.PostgresDSN != "" {
		st, err := store.New(cfg.PostgresDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("store init failed")
		}
		defer st.Close()
		sink = st
	}

	r := newRunner(cfg.EmitInterval, cfg.InitialBalance, sink, time.Now().UnixNano())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r.routes(cfg.SocketPath),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Addr).Bool("record_bets", sink != nil).Msg("fake bot-runner listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
