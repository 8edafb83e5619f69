// Package app builds the timerlist server from its configuration. The
// store is constructed first and handed to every consumer.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"timerlist/internal/config"
	"timerlist/internal/producer"
	"timerlist/internal/realtime"
	"timerlist/internal/timers"
	"timerlist/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

// App bundles the store and everything that consumes it.
type App struct {
	Store    *timers.Store
	Producer *producer.Producer
	Realtime *realtime.Server
	Inbox    *watcher.Watcher // nil when no inbox is configured

	cfg       config.Config
	logger    *slog.Logger
	stopTrace func()
}

// New constructs the dependency graph from cfg.
func New(cfg config.Config, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}

	store := timers.NewStore(timers.WithHistory(cfg.HistorySize))
	prod := producer.New(store)
	rt := realtime.New(store, prod, cfg.StaticDir, logger)

	var inbox *watcher.Watcher
	if cfg.InboxDir != "" {
		inbox = watcher.New(cfg.InboxDir, prod, logger)
	}

	stopTrace := store.Observe(func(e timers.ChangeEvent) {
		logger.Debug("timers changed",
			slog.Uint64("seq", e.Seq),
			slog.String("action", string(e.Action)),
			slog.Bool("running", e.State.IsRunning),
			slog.Int("timers", len(e.State.Timers)))
	})

	return &App{
		Store:     store,
		Producer:  prod,
		Realtime:  rt,
		Inbox:     inbox,
		cfg:       cfg,
		logger:    logger,
		stopTrace: stopTrace,
	}
}

// Run listens on the configured port and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts everything down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.Inbox != nil {
		if err := a.Inbox.Start(); err != nil {
			ln.Close()
			return fmt.Errorf("start inbox: %w", err)
		}
	}

	httpServer := &http.Server{Handler: a.Realtime.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	a.logger.Info("timerlist server running", slog.String("addr", ln.Addr().String()))

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	a.shutdown(httpServer)

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

func (a *App) shutdown(httpServer *http.Server) {
	if a.Inbox != nil {
		a.Inbox.Shutdown()
	}

	// Stop accepting connections before dropping WebSocket clients, so no
	// upgrade can slip in between. Hijacked connections are not waited on.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		a.logger.Warn("http shutdown", slog.String("error", err.Error()))
	}
	a.Realtime.Shutdown()

	a.stopTrace()
	a.Store.Close()
}
