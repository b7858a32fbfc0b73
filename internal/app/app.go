package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/cine-go/internal/backend"
	"github.com/kirinyoku/cine-go/internal/checkout"
	"github.com/kirinyoku/cine-go/internal/config"
	"github.com/kirinyoku/cine-go/internal/gateway"
	"github.com/kirinyoku/cine-go/internal/handoff"
	"github.com/kirinyoku/cine-go/internal/postgres"
	redisx "github.com/kirinyoku/cine-go/internal/redis"
	postgresrepo "github.com/kirinyoku/cine-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/cine-go/internal/repository/redis"
	"github.com/kirinyoku/cine-go/internal/service"
	"github.com/kirinyoku/cine-go/internal/session"
	httpgin "github.com/kirinyoku/cine-go/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	sessions   *session.Manager
	pubsub     *redisx.CheckoutEventsPubSub
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	pgxPool, err := postgres.New(context.Background(), postgres.Config{
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Name:     cfg.Postgres.Name,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(context.Background(), redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	if err := store.EnsureSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	cache := redisrepo.New(rdb)
	pubsub := redisx.NewCheckoutEventsPubSub(rdb)
	payLock := redisrepo.NewPayLock(rdb, 15*time.Minute)
	handoffStore := redisrepo.NewHandoffStore(rdb, 30*time.Minute)
	payLimiter := redisrepo.NewFixedWindowLimiter(rdb, "cinego:v1:rl:pay", 10, 1*time.Minute)

	// Upstream backend client and gateway options builder
	client := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	})

	builder := gateway.NewBuilder(gateway.Config{
		KeyID:       cfg.Gateway.KeyID,
		Currency:    cfg.Gateway.Currency,
		CallbackURL: cfg.Gateway.CallbackURL,
	})

	// Initialize services
	services := service.NewServices(store, cache, client, pubsub, logger, service.Config{})

	hoff := handoff.NewCache(handoffStore)

	// Per-session checkout collaborators
	sessions := session.NewManager(
		session.Config{
			Secret:     []byte(cfg.Session.Secret),
			TTL:        cfg.Session.TTL,
			StaleAfter: cfg.Session.StaleAfter,
		},
		client,
		checkout.Deps{
			Backend:  client,
			Gateway:  builder,
			Locker:   payLock,
			Recorder: services.Tickets,
			Handoff:  hoff,
			Logger:   logger,
		},
		logger,
	)

	// Initialize Gin router
	router := httpgin.NewRouter(services, sessions, hoff, payLimiter, httpgin.RouterConfig{
		SessionTTL:  cfg.Session.TTL,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		sessions: sessions,
		pubsub:   pubsub,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Expire idle sessions
	g.Go(func() error {
		a.sessions.RunJanitor(gCtx, 10*time.Minute)
		return nil
	})

	// Re-verify stale auth snapshots
	g.Go(func() error {
		a.sessions.RunAuthSweep(gCtx, a.cfg.Session.StaleAfter)
		return nil
	})

	// Mirror checkout events into the log for operational visibility
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, ev redisx.CheckoutEvent) {
			a.logger.Info("checkout event",
				"type", ev.Type,
				"screen_id", ev.ScreenID,
				"payment_id", ev.PaymentID,
				"amount", ev.Amount,
			)
		})
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
