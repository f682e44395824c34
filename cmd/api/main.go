package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/webhook-intake/internal/config"
	"github.com/nimasrn/webhook-intake/internal/handlers"
	"github.com/nimasrn/webhook-intake/internal/repository"
	"github.com/nimasrn/webhook-intake/internal/services"
	xhttp "github.com/nimasrn/webhook-intake/pkg/http"
	"github.com/nimasrn/webhook-intake/pkg/logger"
	"github.com/nimasrn/webhook-intake/pkg/pg"
	"github.com/nimasrn/webhook-intake/pkg/prom"
	"github.com/nimasrn/webhook-intake/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	if err := config.Get().Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(prom.MetricsMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	if err := pg.Migrate(writeConf, config.Get().MigrationsDir); err != nil {
		logger.Error("migration: error running migrations", "error", err)
		return
	}

	// the dedup fast path is optional: without redis every replay is
	// resolved by the storage engine's primary key
	var dedup *services.DedupCache
	if config.Get().RedisAddr != "" && config.Get().DedupCacheTTL > 0 {
		redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
			Addrs:      []string{config.Get().RedisAddr},
			ClientName: "default",
			DB:         config.Get().RedisDatabase,
			Username:   config.Get().RedisUsername,
			Password:   config.Get().RedisPassword,
		})
		if err != nil {
			logger.Error("failed connecting to redis", "error", err)
			return
		}
		dedup = services.NewDedupCache(redisAdap, time.Duration(config.Get().DedupCacheTTL)*time.Second)
	}

	messageRepo := repository.NewMessageRepository(db)

	// services
	messageService := services.NewMessageService(messageRepo, dedup)
	healthService := services.NewHealthService(config.Get().WebhookSecret, messageRepo)

	// handlers
	webhookHandler := handlers.NewWebhookHandler(messageService, config.Get().WebhookSecret, config.Get().WebhookSignatureHeader)
	messageHandler := handlers.NewMessageHandler(messageService)
	healthHandler := handlers.NewHealthHandler(healthService)

	handlers.RegisterWebhookRoutes(s.Router, webhookHandler)
	handlers.RegisterMessageRoutes(s.Router, messageHandler)
	handlers.RegisterHealthRoutes(s.Router, healthHandler)

	if config.Get().AppDebugMetricsAddr != "" {
		err = prom.Create(config.Get().AppName, config.Get().AppEnv, config.Get().PromNamespace)
		if err != nil {
			logger.Error("failed creating prometheus registry", "error", err)
			return
		}
		go prom.ListenAndServer(config.Get().AppDebugMetricsAddr, config.Get().AppDebugMetricsURI)
	}

	logger.Info("starting webhook intake", "version", version, "commit", commit, "built", date)

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}
