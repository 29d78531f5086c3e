package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cartsync/api/controllers"
	"github.com/angelmondragon/cartsync/api/routes"
	"github.com/angelmondragon/cartsync/internal/cart"
	"github.com/angelmondragon/cartsync/internal/client"
	"github.com/angelmondragon/cartsync/internal/refresh"
	"github.com/angelmondragon/cartsync/internal/session"
	"github.com/angelmondragon/cartsync/internal/wishlist"
	"github.com/angelmondragon/cartsync/pkg/auth"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
	"github.com/angelmondragon/cartsync/pkg/metrics"
)

const (
	serviceName     = "cartsyncd"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "cartsyncd stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"store": cfg.Store.Backend,
		"lock":  cfg.Sync.LockBackend,
	})

	res := &resources{pingers: map[string]controllers.Pinger{}}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(res.closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, res.closers[i](closeCtx))
		}
	}()

	store, err := openStore(ctx, cfg, logg, res)
	if err != nil {
		return err
	}
	locker, err := openLocker(ctx, cfg, logg, res)
	if err != nil {
		return err
	}

	var verifier session.TokenVerifier
	if cfg.Auth.TokenSecret != "" {
		verifier = auth.NewVerifier(cfg.Auth)
	}
	sess := session.NewManager(verifier)
	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	cartEngine, err := cart.NewEngine(cart.EngineParams{
		Store:            store,
		Session:          sess,
		Locker:           locker,
		Logger:           logg,
		Metrics:          syncMetrics,
		Collection:       cfg.Sync.CartCollection,
		OperationTimeout: cfg.Sync.OperationTimeout,
	})
	if err != nil {
		return err
	}
	wishEngine, err := wishlist.NewEngine(wishlist.EngineParams{
		Store:            store,
		Session:          sess,
		Locker:           locker,
		Logger:           logg,
		Metrics:          syncMetrics,
		Collection:       cfg.Sync.WishlistCollection,
		OperationTimeout: cfg.Sync.OperationTimeout,
	})
	if err != nil {
		return err
	}

	c, err := client.New(client.Params{
		Session:  sess,
		Cart:     cartEngine,
		Wishlist: wishEngine,
		Logger:   logg,
	})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, c.Close()) }()

	errCh := make(chan error, 2)
	running := 0

	if cfg.Sync.RefreshEnabled() {
		service, err := refresh.NewService(refresh.ServiceParams{
			Logger: logg,
			Registry: refresh.NewRegistry(
				refresh.FetchJob("cart", cartEngine),
				refresh.FetchJob("wishlist", wishEngine),
			),
			Session:  c,
			Interval: cfg.Sync.RefreshInterval,
		})
		if err != nil {
			return err
		}
		running++
		go func() { errCh <- service.Run(ctx) }()
		logg.Info(ctx, "refresh service started")
	}

	var server *http.Server
	if cfg.FeatureFlags.HTTPBridge {
		port := os.Getenv("PORT")
		if port == "" {
			port = cfg.App.Port
		}
		server = &http.Server{
			Addr: ":" + port,
			Handler: routes.NewRouter(routes.Params{
				Config:   cfg,
				Logger:   logg,
				Sessions: c,
				Cart:     cartEngine,
				Wishlist: wishEngine,
				Pingers:  res.pingers,
				Gatherer: prometheus.DefaultGatherer,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		running++
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
				return
			}
			errCh <- nil
		}()
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": server.Addr}), "http bridge listening")
	}

	if running == 0 {
		logg.Warn(ctx, "neither the http bridge nor the refresh service is enabled")
	}

	select {
	case <-ctx.Done():
		logg.Info(ctx, "cartsyncd shutting down gracefully")
	case err = <-errCh:
		running--
		if err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "component stopped", err)
		} else {
			err = nil
		}
		stop()
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, server.Shutdown(shutdownCtx))
	}
	for ; running > 0; running-- {
		if runErr := <-errCh; runErr != nil && !errors.Is(runErr, context.Canceled) {
			err = multierr.Append(err, runErr)
		}
	}
	return err
}
