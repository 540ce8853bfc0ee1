// Package server initializes and runs the authentication server: it wires
// storage, the token issuer, the session service, and the OAuth providers
// into the HTTP endpoint, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jaeha-dev/inklings/internal/logging"
	"github.com/jaeha-dev/inklings/internal/server/auth"
	"github.com/jaeha-dev/inklings/internal/server/config"
	"github.com/jaeha-dev/inklings/internal/server/httpapi"
	"github.com/jaeha-dev/inklings/internal/server/identity"
	"github.com/jaeha-dev/inklings/internal/server/metrics"
	"github.com/jaeha-dev/inklings/internal/server/oauth"
	"github.com/jaeha-dev/inklings/internal/server/reaper"
	"github.com/jaeha-dev/inklings/internal/server/refreshsessions"
	"github.com/jaeha-dev/inklings/internal/server/sessions"
	"github.com/jaeha-dev/inklings/internal/server/shared/db"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      db.RepositoryManager
	httpServer *httpapi.Server
	reaper     *reaper.Reaper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	handler := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(handler)

	repos, err := db.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.AccessTokenValidityDuration)
	store := refreshsessions.NewStore(repos.RefreshSessions(), c.RefreshTokenValidityDuration)
	resolver := identity.NewResolver(repos.Users(), repos.OAuthLinks(), logger)
	svc := sessions.NewService(repos.Conn(), resolver, issuer, store, repos.Users(), logger, collector)

	providers := oauth.NewProviders(c)
	httpServer := httpapi.NewServer(c, svc, issuer, providers, logger, collector, metrics.Handler(registry))

	return &App{
		config:     c,
		logger:     logger,
		repos:      repos,
		httpServer: httpServer,
		reaper:     reaper.New(store, c.ReapInterval, logger, collector),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "env", app.config.Env, "transport", app.config.TokenTransport)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.reaper.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing db failed", "error", err.Error())
	}
}
