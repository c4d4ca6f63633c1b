package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/jupiterclapton/nowshare/config"
	"github.com/jupiterclapton/nowshare/internal/adapters/primary/rest"
	"github.com/jupiterclapton/nowshare/internal/adapters/primary/scheduler"
	"github.com/jupiterclapton/nowshare/internal/adapters/secondary/cache"
	"github.com/jupiterclapton/nowshare/internal/adapters/secondary/eventbroker"
	"github.com/jupiterclapton/nowshare/internal/adapters/secondary/metrics"
	"github.com/jupiterclapton/nowshare/internal/adapters/secondary/repository"
	"github.com/jupiterclapton/nowshare/internal/core/ports"
	"github.com/jupiterclapton/nowshare/internal/core/services"
)

// store bundles the repositories of one driver with its teardown.
type store struct {
	users     ports.UserRepository
	posts     ports.PostRepository
	nativeTTL bool
	close     func(context.Context)
}

func main() {
	// 1. Config & Logger
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	initLogger(cfg)
	slog.Info("🚀 Starting NowShare API", "env", cfg.Env, "port", cfg.Port, "store", cfg.StoreDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Tracing
	if cfg.OtelEndpoint != "" {
		tp, err := initTracer(ctx, cfg)
		if err != nil {
			slog.Error("Failed to init tracer", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					slog.Error("Error shutting down tracer", "error", err)
				}
			}()
		}
	}

	// 3. Storage
	st, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Unable to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close(context.Background())
	slog.Info("✅ Store ready", "driver", cfg.StoreDriver)

	// 4. Metrics
	m := metrics.New()
	opts := []services.Option{services.WithMetrics(m)}

	// 5. Event broker (optional)
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name(cfg.ServiceName))
		if err != nil {
			slog.Error("Unable to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		opts = append(opts, services.WithPublisher(eventbroker.NewNatsPublisher(nc)))
		slog.Info("✅ Connected to NATS")
	}

	// 6. Timeline cache (optional)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			slog.Error("Failed to instrument Redis", "error", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		opts = append(opts, services.WithTimelineCache(cache.NewRedisTimelineCache(rdb, cfg.TimelineCacheTTL)))
		slog.Info("✅ Connected to Redis")
	}

	// 7. Core
	userService := services.NewUserService(st.users, opts...)
	postService := services.NewPostService(st.posts, st.users, opts...)
	devService := services.NewDevService(st.users, st.posts, opts...)

	if cfg.StoreDriver == config.DriverMemory {
		if _, err := devService.EnsureDemoUser(ctx); err != nil {
			slog.Error("Failed to create demo user", "error", err)
		}
	}

	// 8. Expiry sweeper, only where the store cannot expire documents itself
	if !st.nativeTTL {
		sweeper, err := scheduler.NewSweeper(postService, cfg.ExpirySweepSchedule)
		if err != nil {
			slog.Error("Failed to schedule sweeper", "error", err)
			os.Exit(1)
		}
		sweeper.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			sweeper.Stop(stopCtx)
		}()
	}

	// 9. HTTP
	var dev ports.DevService
	if cfg.Env != "prod" {
		dev = devService
	}
	handler := rest.NewRouter(rest.NewHandler(userService, postService), rest.RouterConfig{
		Env:            cfg.Env,
		Mode:           cfg.StoreDriver,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m,
		Dev:            dev,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("📡 HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("⚠️  Signal received, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("👋 Server exited")
}

// --- HELPERS ---

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		db := client.Database(cfg.MongoDB)
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			return nil, err
		}
		return &store{
			users:     repository.NewMongoUserRepo(db),
			posts:     repository.NewMongoPostRepo(db),
			nativeTTL: true,
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					slog.Error("Mongo disconnect failed", "error", err)
				}
			},
		}, nil

	case config.DriverPostgres:
		dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
		if err != nil {
			return nil, fmt.Errorf("parse DB config: %w", err)
		}
		dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

		pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping: %w", err)
		}
		if err := repository.EnsurePostgresSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{
			users: repository.NewPostgresUserRepo(pool),
			posts: repository.NewPostgresPostRepo(pool),
			close: func(context.Context) { pool.Close() },
		}, nil

	default:
		slog.Warn("⚠️  Using the in-memory store, data is lost on restart")
		return &store{
			users: repository.NewMemoryUserRepo(),
			posts: repository.NewMemoryPostRepo(),
			close: func(context.Context) {},
		}, nil
	}
}

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg *config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(rest.Version),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
