package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/eventbook/event-booking-api/internal/config"
	"github.com/eventbook/event-booking-api/internal/database"
	"github.com/eventbook/event-booking-api/internal/handler"
	"github.com/eventbook/event-booking-api/internal/idempotency"
	"github.com/eventbook/event-booking-api/internal/queue"
	"github.com/eventbook/event-booking-api/internal/repository"
	"github.com/eventbook/event-booking-api/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db, cfg.BcryptCost); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting, caching and idempotency disabled")
	}

	users := repository.NewUserRepo(db)
	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)

	idem := idempotency.NewStore(rdb, 24*time.Hour)

	deps := router.Deps{
		Cfg:      cfg,
		Redis:    rdb,
		Auth:     handler.NewAuthHandler(cfg, users),
		Events:   handler.NewEventHandler(cfg, events),
		Bookings: handler.NewBookingHandler(cfg, events, bookings, idem),
		Health:   handler.NewHealthHandler(db),
	}

	// Consumer writes confirmation lines to logs/booking.log and reconnects
	// on broker failures.
	go queue.StartBookingConsumer()

	e := router.New(deps)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
