package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	authmodule "github.com/stackblog/authkit/modules/auth"
	"github.com/stackblog/authkit/pkg/config"
	"github.com/stackblog/authkit/pkg/email"
	"github.com/stackblog/authkit/pkg/httpserver"
	"github.com/stackblog/authkit/pkg/jwt"
	"github.com/stackblog/authkit/pkg/logger"
	"github.com/stackblog/authkit/pkg/password"
	"github.com/stackblog/authkit/pkg/pg"
	"github.com/stackblog/authkit/storage/postgres"
	"github.com/stackblog/authkit/svc/auth"
)

type appConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

func main() {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	log := logger.New(logger.WithEnvironment(appCfg.Environment, "authd"))
	logger.SetAsDefault(log)

	if err := run(context.Background(), appCfg, log); err != nil {
		log.Error("authd exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var (
		pgCfg     pg.Config
		jwtCfg    jwt.Config
		authCfg   auth.Config
		emailCfg  email.Config
		serverCfg httpserver.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&jwtCfg)
	config.MustLoad(&authCfg)
	config.MustLoad(&emailCfg)
	config.MustLoad(&serverCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, postgres.Migrations, pgCfg, log); err != nil {
		return err
	}

	codec, err := jwt.New(jwtCfg)
	if err != nil {
		return err
	}

	mailer, err := newMailer(appCfg, emailCfg, log)
	if err != nil {
		return err
	}

	svc := auth.New(
		postgres.New(pool),
		codec,
		password.New(),
		mailer,
		authCfg,
		auth.WithLogger(log),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cleanupLoop(ctx, svc, authCfg.CleanupInterval, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Mount("/auth", authmodule.New(svc, authmodule.WithLogger(log)).Router())
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))

	srv := httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// newMailer picks the real Postmark client when a server token is configured
// and falls back to the file-based dev sender otherwise.
func newMailer(appCfg appConfig, cfg email.Config, log *slog.Logger) (email.EmailSender, error) {
	if cfg.PostmarkServerToken != "" {
		return email.NewPostmarkClient(cfg)
	}

	log.Warn("no postmark token configured, writing emails to disk",
		slog.String("dir", cfg.DevOutputDir),
		slog.String("environment", appCfg.Environment),
	)
	return email.NewDevSender(cfg.DevOutputDir), nil
}

func cleanupLoop(ctx context.Context, svc *auth.Service, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.CleanupExpiredTokens(ctx); err != nil {
				log.Error("token cleanup failed", logger.Error(err))
			}
		}
	}
}
