package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/aubus-project/aubus/internal/attachments"
	"github.com/aubus-project/aubus/internal/config"
	"github.com/aubus-project/aubus/internal/coordinator"
	"github.com/aubus-project/aubus/internal/database"
	"github.com/aubus-project/aubus/internal/gateway"
	"github.com/aubus-project/aubus/internal/logging"
	"github.com/aubus-project/aubus/internal/match"
	"github.com/aubus-project/aubus/internal/presence"
	"github.com/aubus-project/aubus/internal/server"
	"github.com/aubus-project/aubus/internal/store"
	"github.com/aubus-project/aubus/internal/stream"
)

func main() {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	st := store.New(db)
	if cfg.RedisURL != "" {
		cache, err := store.NewRatingCache(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to initialize redis: %v", err)
		}
		st = st.WithRatingCache(cache)
		logger.Info("rating cache enabled", "redis", cfg.RedisURL)
	}

	blobs, err := attachments.NewStore("")
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}

	registry := presence.NewRegistry()
	coord := coordinator.New(st, match.NewEngine(db), registry, logger)

	if len(cfg.KafkaBrokers) > 0 {
		sink := stream.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer sink.Close()
		coord = coord.WithSink(sink)
		logger.Info("ride-event sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	gw := gateway.New(cfg.GatewayAddr, cfg.ListenAddr, logger)
	go func() {
		if err := gw.Run(); err != nil {
			log.Fatalf("Gateway failed: %v", err)
		}
	}()

	srv := server.New(cfg, st, coord, registry, blobs, logger)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
