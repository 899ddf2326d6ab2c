package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sp-hack/server/internal/api"
	"github.com/sp-hack/server/internal/api/handlers"
	"github.com/sp-hack/server/internal/api/middleware"
	"github.com/sp-hack/server/internal/auth"
	"github.com/sp-hack/server/internal/captcha"
	"github.com/sp-hack/server/internal/config"
	"github.com/sp-hack/server/internal/email"
	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/storage/postgres"
	"github.com/sp-hack/server/internal/telemetry"
)

const (
	shutdownTimeout       = 10 * time.Second
	dbMetricsInterval     = 15 * time.Second
	captchaPurgeInterval  = 5 * time.Minute
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultHeaderTimeout  = 5 * time.Second
	defaultMaxHeaderBytes = 1 << 20
)

type serveOptions struct {
	host    string
	port    int
	migrate bool
}

func newServeCommand(opts *globalOptions) *cobra.Command {
	so := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Optionally apply pending database migrations (--migrate)
- Serve the procedures under /api, the docs and the frontend
- Reset rate limit counters and purge expired captchas in the background
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Apply migrations before serving
  server serve --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts, so)
		},
	}

	cmd.Flags().StringVar(&so.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&so.port, "port", 0, "server port (default: 5000)")
	cmd.Flags().BoolVar(&so.migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func runServer(parent context.Context, opts *globalOptions, so *serveOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if so.host != "" {
		cfg.Server.Host = so.host
	}
	if so.port != 0 {
		cfg.Server.Port = so.port
	}

	logger := config.NewLogger(cfg.Logging)
	build := buildInfo()
	logger.Info().Str("version", build.Version).Str("environment", cfg.Environment).Msg("starting sp-hack server")
	metrics.Init(build.Version, build.GitCommit, build.BuildDate)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, build.Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if so.migrate {
		if err := postgres.MigrateUp(cfg.Database.URL, ""); err != nil {
			return err
		}
		logger.Info().Msg("migrations applied")
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}

	location, err := time.LoadLocation(cfg.Event.Timezone)
	if err != nil {
		return fmt.Errorf("event timezone: %w", err)
	}

	var challenges captcha.ChallengeStore = captcha.NewMemoryStore()
	if cfg.Captcha.Store == "postgres" {
		challenges = repo.Captcha()
	}
	verifier := captcha.NewVerifier(
		captcha.NewCaptchasNet(cfg.Captcha.Client, cfg.Captcha.Secret),
		challenges, cfg.Captcha.TTL, cfg.IsDevelopment(),
	)

	mailer, err := email.NewGateway(cfg.Email, logger)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	logger.Info().Int("limit", cfg.RateLimit.Limit).Dur("window", limiter.Window()).Msg("rate limiter configured")
	metrics.TrackRateLimiter(limiter.Len)
	collector := metrics.NewDBCollector(pool)
	janitor := captcha.NewJanitor(challenges, captchaPurgeInterval, logger)

	server := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(api.Deps{
			Config:   cfg,
			Logger:   logger,
			Store:    repo,
			Limiter:  limiter,
			Captcha:  verifier,
			Mailer:   mailer,
			Sessions: auth.NewSessionCodec(cfg.Auth.JWTSecret),
			Health:   handlers.NewHealthChecker(repo, build.Version, build.GitCommit),
			Location: location,
			Build:    build,
		}),
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		ReadHeaderTimeout: defaultHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return limiter.Start(gctx) })
	g.Go(func() error { return janitor.Start(gctx) })
	g.Go(func() error { return collector.Start(gctx, dbMetricsInterval) })
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return gracefulShutdown(server, logger, limiter, collector)
	})

	return g.Wait()
}

// stopper is a background loop that can be ended ahead of its context.
type stopper interface {
	Stop()
}

// gracefulShutdown drains the HTTP server and then ends the background loops.
func gracefulShutdown(server *http.Server, logger zerolog.Logger, loops ...stopper) error {
	logger.Info().Msg("shutting down")
	defer func() {
		for _, loop := range loops {
			loop.Stop()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
