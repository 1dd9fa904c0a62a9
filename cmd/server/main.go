package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hubjoltd/formrelay/internal/auth"
	"github.com/hubjoltd/formrelay/internal/config"
	"github.com/hubjoltd/formrelay/internal/core"
	"github.com/hubjoltd/formrelay/internal/form"
	"github.com/hubjoltd/formrelay/internal/logging"
	"github.com/hubjoltd/formrelay/internal/store"
	"github.com/hubjoltd/formrelay/internal/submit"
	"github.com/hubjoltd/formrelay/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"strategy", cfg.Submit.Strategy,
		"max_concurrent_jobs", cfg.Submit.MaxConcurrentJobs,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Select the job store: Postgres when a URL is configured, otherwise
	// in-memory (jobs are lost on restart).
	var jobStore core.JobStore
	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		pg := store.NewPostgres(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate job tables", "error", err)
			os.Exit(1)
		}
		jobStore = pg

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
	} else {
		jobStore = store.NewMemory()
		slog.Warn("no DATABASE_URL configured, keeping jobs in memory")
	}

	// Credentials for the structured metadata API. OAuth client credentials
	// win over a static token; with neither, discovery relies on the
	// structural scan alone.
	var creds auth.CredentialProvider
	switch {
	case cfg.Forms.OAuthTokenURL != "":
		creds = auth.NewRefreshing(cfg.Forms.OAuthTokenURL, cfg.Forms.OAuthClientID, cfg.Forms.OAuthClientSecret, nil)
	default:
		creds = auth.NewStatic(cfg.Forms.APIToken)
	}

	httpClient := &http.Client{Timeout: cfg.Forms.HTTPTimeout}
	resolver := form.NewResolver(httpClient, creds)

	service := core.NewService(jobStore, resolver, httpClient, creds, core.Options{
		DefaultBatchSize:  cfg.Submit.DefaultBatchSize,
		MaxBatchSize:      cfg.Submit.MaxBatchSize,
		DefaultBatchDelay: cfg.Submit.DefaultBatchDelay,
		RecordDelay:       cfg.Submit.RecordDelay,
		DefaultStrategy:   cfg.Submit.Strategy,
		JobTimeout:        cfg.Submit.JobTimeout,
		MaxConcurrentJobs: cfg.Submit.MaxConcurrentJobs,
		SlotWait:          cfg.Submit.SlotWait,
		Simulated: submit.SimulatedOptions{
			ExecPath:         cfg.Browser.ExecPath,
			PageTimeout:      cfg.Browser.PageTimeout,
			ConfirmationText: cfg.Browser.ConfirmationText,
		},
	}, slog.Default())

	server := web.NewServer(service, cfg)

	// Graceful shutdown: stop accepting requests, then drain running jobs.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.ActiveJobs(); active > 0 {
			slog.Info("waiting for jobs to complete", "active", active)
			if err := service.Drain(shutdownCtx); err != nil {
				slog.Warn("jobs did not complete in time", "error", err)
			} else {
				slog.Info("all jobs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
