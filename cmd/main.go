package main

import (
	"context"
	"crypton/backend/internal/api/handler"
	"crypton/backend/internal/chathub"
	"crypton/backend/internal/config"
	"crypton/backend/internal/events"
	"crypton/backend/internal/identity"
	"crypton/backend/internal/localization"
	"crypton/backend/internal/metrics"
	"crypton/backend/internal/password"
	"crypton/backend/internal/room"
	"crypton/backend/internal/storage"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	} else {
		log.Println("WARNING: REDIS_ADDR not set, realtime events stay within this instance")
	}

	log.Println("Database connection established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting Crypton backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, rdb := setupDependencies(ctx, cfg)
	store := storage.NewStorageService(db, rdb)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	publisher := events.New(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	loc, err := localization.NewEmbedded()
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	rooms := room.NewService(store, password.NewBcryptHasher(cfg.BcryptCost), publisher, m)
	ids := identity.NewService(store, cfg.JWTSecret)

	hub := chathub.NewManagerService(store, m)
	go hub.Run(ctx)

	r := gin.Default()
	r.Use(metrics.MetricsMiddleware(m))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	handler.NewHandler(rooms, ids, hub, loc, cfg.AllowedOrigins).RegisterRoutes(r)

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: Graceful shutdown failed: %v", err)
		}
	}()

	log.Printf("Listening on %s", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	log.Println("Server stopped.")
}
