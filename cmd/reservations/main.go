package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/urbandrip/storefront-api/internal/config"
	kafkax "github.com/urbandrip/storefront-api/internal/kafka"
	"github.com/urbandrip/storefront-api/internal/orders"
	"github.com/urbandrip/storefront-api/internal/postgres"
	"github.com/urbandrip/storefront-api/internal/redisx"
	"github.com/urbandrip/storefront-api/internal/reservations"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// reservation.expired goes out through the same async producer as the api
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(context.Background())

	logger := log.New(os.Stdout, "[reservations] ", log.LstdFlags)
	svc := &reservations.Service{
		Repo:        &orders.ReservationRepo{DB: db},
		Redis:       rdb,
		Producer:    prod,
		ServiceName: cfg.ServiceName + "-reservations",
		Logger:      logger,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReservationGroup, orders.TopicOrderReserved, cfg.ReservationWorkers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("consumer started: group=%s topic=%s workers=%d",
			cfg.ReservationGroup, orders.TopicOrderReserved, cfg.ReservationWorkers)
		return cons.Start(gctx, svc.HandleOrderReserved)
	})
	g.Go(func() error {
		logger.Printf("sweeper started: every %s", cfg.SweepInterval)
		return svc.Run(gctx, cfg.SweepInterval)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("worker exit: %v", err)
	}
	logger.Println("shutting down...")
	prod.Close()
	prod.WaitClosed()
}
