package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-reservation/internal/config"
	"github.com/iliyamo/ticket-reservation/internal/handler"
	"github.com/iliyamo/ticket-reservation/internal/queue"
	"github.com/iliyamo/ticket-reservation/internal/reservation"
	"github.com/iliyamo/ticket-reservation/internal/router"
	"github.com/iliyamo/ticket-reservation/internal/store"
)

func main() {
	// Load .env if present (ignore error in dev/local)
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()

	// Pick the order store backend.  MySQL serves production; the
	// in-memory store serves single-node development.
	var (
		orders store.OrderStore
		prices store.PriceSource
		seeder store.SeatSeeder
	)
	switch cfg.StoreBackend {
	case "mysql":
		db, err := store.OpenMySQL(context.Background(), cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		ms := store.NewMySQLStore(db)
		orders, prices, seeder = ms, ms, ms
	default:
		mem := store.NewMemStore()
		orders, prices, seeder = mem, store.NotFoundPrices{}, mem
	}

	engine := reservation.New(reservation.Config{
		Capacity:       cfg.SeatMapCapacity,
		HoldLengthSecs: cfg.HoldLengthSecs,
		TokenLen:       cfg.HoldTokenLen,
	}, orders, prices)

	// Rebuild the seat map from the store before accepting traffic.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	n, err := reservation.Rehydrate(ctx, engine, seeder)
	cancel()
	if err != nil {
		log.Fatalf("rehydrate: %v", err)
	}
	log.Printf("rehydrated %d seats from store", n)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("info: redis unavailable; hold mirror and rate limiting disabled")
	}

	res := handler.NewReservationHandler(engine)
	res.RedisClient = rdb
	res.PublishEvents = true
	admin := handler.NewAdminHandler(engine, cfg.AdminKeyHash)

	// Background consumer records confirmed orders; it reconnects on
	// broker failure and never takes the server down.
	go func() {
		if err := queue.StartOrderConsumer(); err != nil {
			log.Printf("order-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, router.Deps{
		Cfg:         cfg,
		Reservation: res,
		Admin:       admin,
		RedisClient: rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreBackend)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
