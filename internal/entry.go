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
	"golang.org/x/sync/errgroup"

	"github.com/starford/productos/internal/api"
	"github.com/starford/productos/internal/folders"
	"github.com/starford/productos/internal/mcpserver"
	"github.com/starford/productos/internal/service"
	"github.com/starford/productos/internal/sse"
	"github.com/starford/productos/internal/workspace"
)

const watchPollInterval = 2 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logOutput == nil {
		app.logOutput = os.Stdout
	}
	return app, nil
}

func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openWorkspace creates the workspace manager and opens the current
// workspace, falling back to the app data dir on first run.
func (a *application) openWorkspace(logger *slog.Logger) (*workspace.Manager, error) {
	cfg := a.config
	ws := workspace.NewManager(cfg.Workspace.Options(), folders.NewRegistry(logger), logger)
	configured, err := ws.Bootstrap()
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("bootstrap workspace: %w", err)
	}
	logger.Info("Workspace opened",
		slog.String("path", ws.Path()),
		slog.String("db_path", ws.DBPath()),
		slog.Bool("configured", configured))
	return ws, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("app_data_dir", cfg.Workspace.AppDataDir),
		slog.String("db_filename", cfg.Workspace.DBFilename),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ws, err := app.openWorkspace(logger)
	if err != nil {
		return err
	}
	defer ws.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := service.NewService(ws, broker, logger)

	// Run initial sync.
	if _, err := svc.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := ws.Store(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no workspace"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api. The SSE endpoint is /api/events.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch product folders with SSE callback.
	if cfg.Workspace.Watch {
		g.Go(func() error {
			watchWorkspace(gCtx, ws, logger, func(name string) {
				broker.Publish(sse.Event{Type: sse.TypeProductChanged, Data: map[string]string{"folder": name}})
			})
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

// errShutdown ends the errgroup so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// watchWorkspace runs the folder watcher on the current workspace and
// restarts it on the new root after a migration or re-initialization.
func watchWorkspace(ctx context.Context, ws *workspace.Manager, logger *slog.Logger, cb folders.ChangeCallback) {
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		root := ws.Path()
		wctx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		if root != "" {
			go func() { done <- folders.Watch(wctx, ws.Folders(), root, logger, cb) }()
		} else {
			close(done)
		}

		restart := false
		for !restart {
			select {
			case <-ctx.Done():
				cancel()
				<-done
				return
			case err, ok := <-done:
				if ok && err != nil {
					logger.Warn("folder watcher failed", slog.String("root", root), slog.String("error", err.Error()))
				}
				// Wait for the next tick before retrying.
				done = nil
			case <-ticker.C:
				restart = ws.Path() != root || done == nil
			}
		}
		cancel()
		if done != nil {
			<-done
		}
	}
}

// InitWorkspace makes path the workspace and syncs it.
func InitWorkspace(ctx context.Context, path string, out io.Writer, opts ...Option) error {
	return withService(ctx, opts, func(svc *service.Service) error {
		report, err := svc.InitializeWorkspace(ctx, path)
		if err != nil {
			return err
		}
		return printReport(out, report)
	})
}

// SyncWorkspace runs one sync pass on the current workspace.
func SyncWorkspace(ctx context.Context, out io.Writer, opts ...Option) error {
	return withService(ctx, opts, func(svc *service.Service) error {
		report, err := svc.Sync(ctx)
		if err != nil {
			return err
		}
		return printReport(out, report)
	})
}

// MigrateWorkspace moves the current workspace to newPath.
func MigrateWorkspace(ctx context.Context, newPath string, out io.Writer, opts ...Option) error {
	return withService(ctx, opts, func(svc *service.Service) error {
		res := svc.Migrate(ctx, newPath)
		fmt.Fprintf(out, "migrated: %t\nnew path: %s\nbackup: %s\n", res.Success, res.NewPath, res.BackupPath)
		if !res.Success {
			return fmt.Errorf("migration failed: %s", res.Error)
		}
		return nil
	})
}

// RenderEntity writes the freshly rendered Markdown of an entity to out.
func RenderEntity(ctx context.Context, id string, out io.Writer, opts ...Option) error {
	return withService(ctx, opts, func(svc *service.Service) error {
		content, err := svc.RenderEntity(ctx, id)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, content)
		return err
	})
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	return withService(ctx, opts, func(svc *service.Service) error {
		return mcpserver.New(svc).ServeStdio()
	})
}

func withService(_ context.Context, opts []Option, fn func(*service.Service) error) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	ws, err := app.openWorkspace(logger)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(service.NewService(ws, nil, logger))
}

func printReport(out io.Writer, r *workspace.SyncReport) error {
	_, err := fmt.Fprintf(out, "workspace: %s\nproducts: %d\nentities: %d\nfolders updated: %d\nfiles regenerated: %d\norphans: %d\nerrors: %d\n",
		r.Path, r.Products, r.Entities, r.FoldersUpdated, r.FilesRegenerated, len(r.Orphans), len(r.Errors))
	return err
}
