package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"rentavail/pkg/config"
	"rentavail/pkg/contracts"
	"rentavail/pkg/middleware"
)

type namedWorker struct {
	name   string
	worker contracts.Worker
}

type namedCloser struct {
	name  string
	close func() error
}

type Application struct {
	cfg            *config.Config
	server         *http.Server
	rateLimiter    *middleware.ClientRateLimiter
	healthHandler  http.Handler
	appHttpHandler http.Handler
	workers        []namedWorker
	closers        []namedCloser
}

func NewApplication(cfg *config.Config) *Application {
	return &Application{cfg: cfg}
}

func (a *Application) SetApp(healthHandler, appHandler contracts.Handler) {
	a.setHealthHandler(healthHandler)
	a.setAppHandler(appHandler)
	a.setAppServer()
}

// AddWorker registers a background loop started by Run alongside the HTTP
// server. A worker returning a non-cancellation error stops the application.
func (a *Application) AddWorker(name string, w contracts.Worker) {
	a.workers = append(a.workers, namedWorker{name: name, worker: w})
}

// OnShutdown registers a cleanup step. Steps run in reverse order after the
// server and workers have stopped.
func (a *Application) OnShutdown(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) setHealthHandler(h contracts.Handler) {
	healthRouter := httprouter.New()
	h.RegisterRoutes(healthRouter)

	var healthHTTPHandler http.Handler = healthRouter
	healthHTTPHandler = middleware.RequestLogging(a.cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(a.cfg.Log)(healthHTTPHandler)
	a.healthHandler = healthHTTPHandler
	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
}

func (a *Application) setAppHandler(h contracts.Handler) {
	appRouter := httprouter.New()
	h.RegisterRoutes(appRouter)

	a.rateLimiter = middleware.NewClientRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ClientIP,
		a.cfg.Log,
	)

	var appHttpHandler http.Handler = appRouter
	appHttpHandler = middleware.RequestTimeout(a.cfg.RequestTimeout)(appHttpHandler)
	appHttpHandler = a.rateLimiter.Middleware(appHttpHandler)
	appHttpHandler = middleware.ContentTypeValidation(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize))(appHttpHandler)
	if len(a.cfg.CORSAllowedOrigins) > 0 {
		appHttpHandler = cors.New(cors.Options{
			AllowedOrigins: a.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{middleware.RequestIDHeader},
			MaxAge:         300,
		}).Handler(appHttpHandler)
		a.cfg.Log.Info("CORS enabled", "origins", a.cfg.CORSAllowedOrigins)
	}
	appHttpHandler = middleware.RequestLogging(a.cfg.Log)(appHttpHandler)
	appHttpHandler = middleware.Recovery(a.cfg.Log)(appHttpHandler)
	a.appHttpHandler = appHttpHandler
	a.cfg.Log.Info("Application endpoints configured with full middleware stack")
}

func (a *Application) setAppServer() {
	mux := http.NewServeMux()
	mux.Handle("/health", a.healthHandler)
	mux.Handle("/ready", a.healthHandler)
	mux.Handle("/", a.appHttpHandler)

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}

	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

func (a *Application) RunContext(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		a.shutdownHooks()
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}
	return a.serve(ctx, listener)
}

func (a *Application) serve(ctx context.Context, listener net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.cfg.Log.Info("Starting HTTP server", "address", listener.Addr().String())
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	for _, w := range a.workers {
		g.Go(func() error {
			a.cfg.Log.Info("Starting worker", "worker", w.name)
			if err := w.worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Worker failed", "worker", w.name, "error", err)
				return fmt.Errorf("worker %s: %w", w.name, err)
			}
			a.cfg.Log.Info("Worker stopped", "worker", w.name)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.cfg.Log.Info("Shutdown requested", "cause", context.Cause(gctx))
		a.gracefulShutdown()
		return nil
	})

	err := g.Wait()
	a.shutdownHooks()
	if err != nil {
		return err
	}
	a.cfg.Log.Info("Application stopped gracefully")
	return nil
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	a.rateLimiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Error("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Server stopped")
}

func (a *Application) shutdownHooks() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.cfg.Log.Error("Shutdown step failed", "step", c.name, "error", err)
			continue
		}
		a.cfg.Log.Debug("Shutdown step completed", "step", c.name)
	}
	a.closers = nil
}
