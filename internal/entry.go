// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/activity"
	"github.com/starford/folio/internal/api"
	"github.com/starford/folio/internal/contentapi"
	"github.com/starford/folio/internal/mcpserver"
	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/panel"
	"github.com/starford/folio/internal/session"
	"github.com/starford/folio/internal/shell"
	"github.com/starford/folio/internal/sse"
	pkgconfig "github.com/starford/folio/pkg/config"
)

// mcpOperator owns the navigator driven by MCP tools.
const mcpOperator = "mcp"

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func newContentClient(cfg ContentAPIConfig) (*contentapi.Client, error) {
	return contentapi.New(cfg.BaseURL,
		contentapi.WithAuth(contentapi.HeaderAuth{Header: cfg.KeyHeader, Key: cfg.APIKey}),
		contentapi.WithTimeout(cfg.Timeout),
	)
}

// watchLogLevel re-reads the config file on change and applies its log level.
// Other settings need a restart.
func watchLogLevel(ctx context.Context, path string, level *slog.LevelVar, logger *slog.Logger) error {
	return pkgconfig.Watch(ctx, path, logger, func() {
		next, err := pkgconfig.Read(path, NewDefaultConfig)
		if err != nil {
			logger.Warn("config reload failed", slog.String("error", err.Error()))
			return
		}
		if level.Level() != next.App.LogLevel {
			level.Set(next.App.LogLevel)
			logger.Info("log level changed", slog.String("log_level", next.App.LogLevel.String()))
		}
	})
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stdout, level)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_api", cfg.ContentAPI.BaseURL),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.String("activity_path", cfg.Activity.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	client, err := newContentClient(cfg.ContentAPI)
	if err != nil {
		return fmt.Errorf("init content api client: %w", err)
	}

	gate, err := session.NewGate(cfg.Auth.Session())
	if err != nil {
		return fmt.Errorf("init session gate: %w", err)
	}

	activityLog, err := activity.Open(cfg.Activity.Path)
	if err != nil {
		return fmt.Errorf("init activity log: %w", err)
	}
	defer activityLog.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	notices := notify.NewCenter(cfg.Notifications.TTL, broker)

	g, gCtx := errgroup.WithContext(ctx)

	// Each operator gets its own panels, reporting to their notifications,
	// activity entries and event stream.
	panelsFor := func(op string) *shell.Panels {
		return shell.NewPanels(client, cfg.Messages.PollInterval,
			panel.WithNotifier(notices.For(op)),
			panel.WithObserver(activityLog.Observer(op, logger)),
			panel.WithObserver(broker.Observer(op)),
			panel.WithLogger(logger),
		)
	}
	dash := shell.New(gCtx, panelsFor, shell.WithLogger(logger), shell.OnSwitch(broker.PublishSwitch))
	defer dash.Close()

	apiRouter := api.NewRouter(api.Deps{
		Shell:    dash,
		Gate:     gate,
		Notices:  notices,
		Activity: activityLog,
		Events:   broker,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/", api.NewPages(dash, gate, notices))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	var handler http.Handler = r
	if len(cfg.CORS.AllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler(r)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Reapply the log level when the config file changes.
	if app.configPath != "" {
		g.Go(func() error {
			if err := watchLogLevel(gCtx, app.configPath, level, logger); err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the config watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	level := new(slog.LevelVar)
	level.Set(cfg.App.LogLevel)
	logger := newLogger(os.Stderr, level)
	slog.SetDefault(logger)

	client, err := newContentClient(cfg.ContentAPI)
	if err != nil {
		return fmt.Errorf("init content api client: %w", err)
	}

	notices := notify.NewCenter(cfg.Notifications.TTL, nil)
	panels := shell.NewPanels(client, cfg.Messages.PollInterval,
		panel.WithNotifier(notices.For(mcpOperator)),
		panel.WithLogger(logger),
	)
	nav := shell.NewNavigator(ctx, panels, shell.WithNavigatorLogger(logger))
	defer nav.Close()
	if err := nav.Start(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting", slog.String("version", app.version))
	if err := mcpserver.New(nav, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
