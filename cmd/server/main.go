package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"delivery-tracking-service/internal/adapters/broker"
	"delivery-tracking-service/internal/adapters/repositories"
	"delivery-tracking-service/internal/adapters/routing"
	"delivery-tracking-service/internal/api"
	"delivery-tracking-service/internal/config"
	"delivery-tracking-service/internal/platform/db"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"
	"delivery-tracking-service/pkg/logger"
)

// main is the application composition root. It wires concrete adapters
// (Postgres or SQLite, Redis or in-process, HTTP optimizer or mock) behind
// ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	database, stores, err := openStores(cfg)
	if err != nil {
		zlog.Fatal("storage init failed", logger.Error(err))
	}
	defer database.Close()

	bus, guard, err := openBroker(cfg, zlog)
	if err != nil {
		zlog.Fatal("broker init failed", logger.Error(err))
	}

	provider := openProvider(cfg, zlog)

	planner := services.NewPlanner(stores.registry, stores.tracking, stores.plans, provider, services.PlannerConfig{
		SubscriptionPickupToleranceM: cfg.SubscriptionPickupToleranceM,
		SmartPathToleranceM:          cfg.SmartPathToleranceM,
	}, zlog)
	monitor := services.NewDeviationMonitor(stores.plans, planner, cfg.DeviationThresholdKm, zlog)
	ingestor := services.NewIngestor(stores.tracking, guard, bus, monitor, cfg.IdempotencyTTL, zlog)

	router := api.NewRouter(ingestor, planner, stores.plans, stores.tracking, bus, cfg.HeartbeatInterval, zlog)

	zlog.Info("server listening", logger.String("addr", ":"+cfg.Port))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// SSE connections stay open indefinitely, so no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	zlog.Fatal("server stopped", logger.Error(srv.ListenAndServe()))
}

type storeSet struct {
	tracking ports.TrackingStore
	plans    ports.RoutePlanStore
	registry ports.Registry
}

// openStores picks the storage dialect: Postgres when DATABASE_URL is set,
// otherwise a local SQLite file with schema and demo seed applied on boot.
func openStores(cfg *config.Config) (*sql.DB, *storeSet, error) {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		database, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return database, &storeSet{
			tracking: repositories.NewSQLTrackingStore(database),
			plans:    repositories.NewSQLPlanStore(database),
			registry: repositories.NewSQLRegistry(database),
		}, nil
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := repositories.InitSQLiteSchema(database); err != nil {
		return nil, nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	if seedPath := config.Get("SEED_PATH", ""); seedPath != "" {
		if err := repositories.SeedFromJSON(database, seedPath, "sqlite"); err != nil {
			return nil, nil, fmt.Errorf("seed sqlite: %w", err)
		}
	}

	return database, &storeSet{
		tracking: repositories.NewSqliteTrackingStore(database),
		plans:    repositories.NewSqlitePlanStore(database),
		registry: repositories.NewSqliteRegistry(database),
	}, nil
}

// openBroker connects the fan-out bus and idempotency guard to Redis, or
// falls back to single-process implementations when REDIS_ADDR is unset.
func openBroker(cfg *config.Config, zlog *logger.Logger) (ports.BroadcastBus, ports.IdempotencyGuard, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		zlog.Info("REDIS_ADDR not set, using in-process bus and guard")
		return broker.NewChannelBus(), broker.NewMemoryGuard(), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return broker.NewRedisBus(client, zlog), broker.NewRedisGuard(client, zlog), nil
}

func openProvider(cfg *config.Config, zlog *logger.Logger) ports.RouteProvider {
	if strings.TrimSpace(cfg.ProviderBaseURL) == "" {
		zlog.Warn("ROUTE_PROVIDER_URL not set, all plans will use the mock provider")
		return &routing.MockRouteProvider{}
	}

	provider, err := routing.NewHTTPRouteProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey)
	if err != nil {
		zlog.Fatal("route provider init failed", logger.Error(err))
	}
	return provider
}
