package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nimasrn/lead-crm/internal/auth"
	"github.com/nimasrn/lead-crm/internal/cache"
	"github.com/nimasrn/lead-crm/internal/config"
	"github.com/nimasrn/lead-crm/internal/events"
	"github.com/nimasrn/lead-crm/internal/handlers"
	"github.com/nimasrn/lead-crm/internal/repository"
	"github.com/nimasrn/lead-crm/internal/services"
	xhttp "github.com/nimasrn/lead-crm/pkg/http"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/nimasrn/lead-crm/pkg/pg"
	"github.com/nimasrn/lead-crm/pkg/prom"
	"github.com/nimasrn/lead-crm/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer logger.Sync()

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	logger.SetLevel(cfg.LogLevel)
	logger.Info("starting lead-crm api", "version", version, "commit", commit, "date", date)

	db, err := openDB(cfg)
	if err != nil {
		logger.Error("failed connecting to database", "driver", cfg.DBDriver, "error", err)
		return
	}
	defer db.Close()

	if cfg.AppDebugMetricsAddr != "" {
		host, _ := os.Hostname()
		if err := prom.Create(host, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed registering metrics", "error", err)
		}
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, cfg.AppDebugMetricsURI)
	}

	checks := map[string]handlers.HealthCheck{
		"database": db.Ping,
	}

	var (
		publisher   services.EventPublisher
		invalidator services.SummaryInvalidator
		summaries   services.SummaryCache
	)
	if cfg.RedisAddr != "" {
		redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{cfg.RedisAddr},
			ClientName: cfg.AppName,
			DB:         cfg.RedisDatabase,
			Username:   cfg.RedisUsername,
			Password:   cfg.RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		defer redis.Forget("default")

		statsCache := cache.NewStatsCache(redisAdap, cache.StatsCacheConfig{
			TTL:       cfg.CrmStatsCacheTTL,
			KeyPrefix: "crm:stats:",
		})
		invalidator, summaries = statsCache, statsCache

		p, err := events.NewPublisher(redisAdap, events.PublisherConfig{
			Stream: cfg.CrmEventsStream,
			MaxLen: cfg.CrmEventsMaxLen,
		})
		if err != nil {
			logger.Error("failed creating event publisher", "error", err)
			return
		}
		publisher = p

		checks["redis"] = func(ctx context.Context) error {
			return redisAdap.Client().Ping(ctx).Err()
		}
	} else {
		logger.Warn("REDIS_ADDR is empty, statistics cache and lifecycle events are disabled")
	}

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		logger.Error("failed creating token verifier", "error", err)
		return
	}

	leadRepo := repository.NewLeadRepository(db)

	// services
	leadService := services.NewLeadService(leadRepo, publisher, invalidator, services.LeadServiceConfig{
		PageSize:     cfg.CrmPageSize,
		MaxPageSize:  cfg.CrmMaxPageSize,
		HistoryLimit: cfg.CrmHistoryLimit,
	})
	statsService := services.NewStatisticsService(leadRepo, summaries)

	// transport
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CORSMiddleware(cfg.HttpCorsAllowOrigin))
	s.Use(xhttp.MetricsMiddleware(prom.ObserveRequestDuration))
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))

	// v1 handlers
	leadHandler := handlers.NewLeadHandler(leadService, statsService)
	healthHandler := handlers.NewHealthHandler(checks)

	g := s.Router.Group("/api/v1")
	handlers.RegisterLeadRoutes(g, leadHandler, auth.RequireRoles(verifier, auth.RoleAdmin, auth.RoleSales))
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		errc <- s.ListenAndServe(cfg.HttpListenAddr)
	}()

	select {
	case sig := <-c:
		logger.Info("received signal", "signal", sig.String())
		s.Shutdown()
	case err := <-errc:
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}
}

func openDB(cfg *config.Config) (*pg.DB, error) {
	if cfg.DBDriver == config.DriverSQLite {
		db, err := pg.CreateSQLite(cfg.SQLitePath, cfg.IsDev())
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&repository.LeadEntity{}, &repository.LeadStateHistoryEntity{}); err != nil {
			return nil, err
		}
		return db, nil
	}

	readConf := pg.Config{
		User:     cfg.PostgresReadUser,
		Host:     cfg.PostgresReadHost,
		Port:     cfg.PostgresReadPort,
		Password: cfg.PostgresReadPassword,
		Database: cfg.PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     cfg.PostgresWriteUser,
		Host:     cfg.PostgresWriteHost,
		Port:     cfg.PostgresWritePort,
		Password: cfg.PostgresWritePassword,
		Database: cfg.PostgresWriteDatabase,
	}
	return pg.CreateReadWrite(readConf, writeConf, cfg.IsDev())
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
