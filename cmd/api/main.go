package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/urbandrip/storefront-api/internal/auth"
	"github.com/urbandrip/storefront-api/internal/config"
	"github.com/urbandrip/storefront-api/internal/httpx"
	kafkax "github.com/urbandrip/storefront-api/internal/kafka"
	"github.com/urbandrip/storefront-api/internal/orders"
	"github.com/urbandrip/storefront-api/internal/postgres"
	"github.com/urbandrip/storefront-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer, one for every topic
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	users := &auth.UserRepo{DB: db}
	if cfg.AdminEmail != "" {
		if err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
		log.Printf("admin account ready: %s", cfg.AdminEmail)
	}

	repo := &orders.Repo{DB: db}
	resRepo := &orders.ReservationRepo{DB: db}
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authn := &httpx.Authenticator{Issuer: issuer}

	router := httpx.NewRouter()
	(&httpx.AuthHandler{Users: users, Issuer: issuer}).Register(router)
	(&httpx.CatalogHandler{Products: repo, Redis: rdb, CacheTTL: cfg.CatalogCacheTTL}).Register(router)
	(&httpx.CustomerHandler{
		Orders:         repo,
		Reservations:   resRepo,
		Redis:          rdb,
		Producer:       prod,
		Service:        cfg.ServiceName,
		ReservationTTL: cfg.ReservationTTL,
	}).Register(router, authn)
	(&httpx.AdminHandler{
		Products:     repo,
		Reservations: resRepo,
		Redis:        rdb,
		Producer:     prod,
		Service:      cfg.ServiceName,
	}).Register(router, authn)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	prod.Close() // no more publishes; the loop flushes what is queued
	cancel()
	prod.WaitClosed()
}
