package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appinstances "botdash/internal/app/instances"
	appusers "botdash/internal/app/users"
	"botdash/internal/botmanager"
	"botdash/internal/config"
	"botdash/internal/livefeed"
	"botdash/internal/logging"
	"botdash/internal/monitor"
	"botdash/internal/store"
	httptransport "botdash/internal/transport/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	if cfg.Server.MigrationsDir != "" {
		if err := migrate(context.Background(), st, cfg.Server.MigrationsDir); err != nil {
			log.Fatal().Err(err).Msg("migrate failed")
		}
	}

	runner := botmanager.NewClient(cfg.Server.BotManagerURL, cfg.Server.ControlTimeout)
	feed := livefeed.NewClient(livefeed.Config{
		BaseURL:           cfg.Monitor.BotManagerURL,
		Path:              cfg.Monitor.SocketPath,
		ReconnectDelay:    cfg.Monitor.ReconnectDelay,
		ReconnectDelayMax: cfg.Monitor.ReconnectDelayMax,
	})
	svc := appinstances.NewService(st, runner)
	registry := monitor.NewRegistry(runner, nil, monitor.LiveSubscriber(feed), monitor.OptionsFromConfig(cfg.Monitor))

	r := httptransport.NewRouter(svc, appusers.NewService(st), registry, st.Ping)
	httptransport.LogRoutes(r)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, newHTTPServer(cfg.Server.HTTPAddr, r)); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}

func migrate(ctx context.Context, st *store.Store, dir string) error {
	migrations, err := store.LoadMigrations(dir)
	if err != nil {
		return err
	}
	applied, err := st.Migrate(ctx, migrations)
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Strs("applied", applied).Msg("schema up to date")
	return nil
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	// No WriteTimeout: monitor streams stay open for the life of a view.
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// serve runs srv until ctx ends, then drains it. Open monitor streams are
// released through their request contexts.
func serve(ctx context.Context, srv *http.Server) error {
	base := ctx
	srv.BaseContext = func(net.Listener) context.Context { return base }
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown incomplete")
			return srv.Close()
		}
		return nil
	})
	return g.Wait()
}
