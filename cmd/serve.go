package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/djq/internal/lifecycle"
	"github.com/desertthunder/djq/internal/server"
	"github.com/desertthunder/djq/internal/shared"
	"github.com/desertthunder/djq/internal/web"
)

const (
	shutdownTimeout = 5 * time.Second
	probeTimeout    = 2 * time.Second
)

// Serve runs the HTTP server until interrupted.
//
// Only one dashboard may run against a queue at a time, so the session lock is held for the server's lifetime.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	lock, err := shared.AcquireSessionLock(r.config.Dashboard.LockPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	manager, err := r.open(ctx)
	if err != nil {
		return err
	}

	handler, err := r.httpHandler(manager)
	if err != nil {
		return err
	}

	cfg := r.config.Server
	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	url := "http://" + ln.Addr().String()
	r.logger.Info("listening", "url", url, "backend", r.config.Store.Backend, "requests", len(manager.Snapshot()))
	r.writePlain("Request form: %s/\nDJ dashboard: %s/dashboard\n", url, url)

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url + "/dashboard"); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// httpHandler assembles every route behind the recovery and access-log middleware.
func (r *Runner) httpHandler(manager *lifecycle.Manager) (http.Handler, error) {
	logger := shared.WithLogger(r.logger, "component", "http")
	trusted, err := server.ParseTrustedProxies(r.config.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}
	limiter := server.NewClientLimiter(r.config.Server.SubmitRate, r.config.Server.SubmitBurst, trusted...)

	pages, err := web.NewHandler(manager, limiter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	router := server.NewBasicRouter()
	router.Use(server.Recover(logger), server.Logging(logger))
	router.Handler(pages)
	router.Handler(server.NewAPIHandler(manager, limiter, logger))
	router.Handler(server.NewHealthHandler(manager.Store(), probeTimeout))
	router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	return router, nil
}
