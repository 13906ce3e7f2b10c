package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/drinkhub/internal/domain/cart"
	"github.com/xenking/drinkhub/internal/domain/order"
	"github.com/xenking/drinkhub/internal/handler"
	"github.com/xenking/drinkhub/internal/outbox"
	"github.com/xenking/drinkhub/internal/storage/postgres"
	"github.com/xenking/drinkhub/internal/storage/rediscache"
	"github.com/xenking/drinkhub/pkg/health"
	"github.com/xenking/drinkhub/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server and the outbox
// publisher, and handles graceful shutdown. It is the single wiring point
// for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.Register(health.Readiness, "postgres", health.PingCheck(pool), health.WithTimeout(5*time.Second))
	healthSvc.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(10000))

	orderOpts := []order.Option{
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	}
	if cfg.Redis.URL != "" {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(redisOpts)
		defer func() { _ = client.Close() }()

		cache := rediscache.New(client, cfg.Redis.TTL)
		healthSvc.Register(health.Readiness, "redis", health.PingCheck(cache))
		orderOpts = append(orderOpts, order.WithCache(cache))
		lg.Info("Order cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
	}

	orderService, err := order.NewService(postgres.NewStore(pool), orderOpts...)
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	cartService := cart.NewService(postgres.NewCartRepository(pool), postgres.NewProductRepository(pool))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	handler.New(orderService, cartService).Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument("orders-api", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		writer := outbox.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
		defer func() {
			if err := writer.Close(); err != nil {
				lg.Warn("Close kafka writer", zap.Error(err))
			}
		}()
		publisher := outbox.NewPublisher(postgres.NewOutboxRepository(pool), writer, cfg.Kafka.PollInterval)

		g.Go(func() error {
			pctx := zctx.Base(gctx, lg.Named("outbox"))
			return publisher.Run(pctx)
		})
		lg.Info("Outbox publisher enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}
