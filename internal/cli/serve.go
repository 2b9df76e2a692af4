package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/eventify/internal/auth"
	"github.com/Shivanand-hulikatti/eventify/internal/certificate"
	"github.com/Shivanand-hulikatti/eventify/internal/config"
	"github.com/Shivanand-hulikatti/eventify/internal/database"
	"github.com/Shivanand-hulikatti/eventify/internal/handler"
	"github.com/Shivanand-hulikatti/eventify/internal/repository"
	"github.com/Shivanand-hulikatti/eventify/internal/service"
	"github.com/Shivanand-hulikatti/eventify/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	port    string
	migrate bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

With EVENTIFY_STORE=postgres (the default) pending migrations are applied
before the server starts unless --migrate=false is given.

Example:
  eventify serve
  eventify serve --port 9000
  EVENTIFY_STORE=memory eventify serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.port, "port", "", "port to listen on (overrides PORT)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "apply pending migrations on startup")
	return cmd
}

// stores are the backing implementations picked by EVENTIFY_STORE.
type stores struct {
	events service.EventStore
	users  service.UserStore
	close  func()
}

func openStores(ctx context.Context, cfg config.Config, migrate bool, log *slog.Logger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on exit")
		return &stores{
			events: repository.NewMemoryEventStore(),
			users:  repository.NewMemoryUserStore(),
			close:  func() {},
		}, nil
	}

	if migrate {
		version, err := database.MigrateUp(cfg.Database.MigrationURL())
		if err != nil {
			return nil, err
		}
		log.Info("schema up to date", slog.Uint64("version", uint64(version)))
	}

	pool, err := database.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.Info("connected to postgres",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.DBName),
	)
	return &stores{
		events: repository.NewEventRepository(pool),
		users:  repository.NewUserRepository(pool),
		close:  pool.Close,
	}, nil
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if opts.port != "" {
		cfg.Server.Port = opts.port
	}
	log := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(log)

	tp, err := telemetry.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("flush traces", slog.Any("error", err))
		}
	}()

	st, err := openStores(ctx, cfg, opts.migrate, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, err := auth.NewTokens([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	renderer := certificate.NewPDFRenderer()
	renderer.FontPath = cfg.Certificate.FontPath

	tracer := tp.Tracer()
	router := handler.NewRouter(handler.RouterDeps{
		Events:     service.NewEventService(st.events, st.users, log, tracer),
		Registrar:  service.NewRegistrationService(st.events, st.users, renderer, log, tracer),
		Accounts:   service.NewUserService(st.users, tokens, cfg.Auth.AllowAdminSignup, log),
		Resolver:   tokens,
		Log:        log,
		CORSOrigin: cfg.Server.CORSOrigin,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", slog.String("addr", srv.Addr), slog.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
