package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/otelciro/channel-sync/internal/channel"
	"github.com/otelciro/channel-sync/internal/config"
	"github.com/otelciro/channel-sync/internal/database"
	"github.com/otelciro/channel-sync/internal/handler"
	"github.com/otelciro/channel-sync/internal/queue"
	"github.com/otelciro/channel-sync/internal/repository"
	"github.com/otelciro/channel-sync/internal/router"
	"github.com/otelciro/channel-sync/internal/service"
	syncengine "github.com/otelciro/channel-sync/internal/sync"
)

func main() {
	// .env is a development convenience; in production the variables come
	// from the environment.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; sync leases and telemetry are process-local")
	}

	// Repositories.
	connections := repository.NewConnectionRepo(db)
	roomTypes := repository.NewRoomTypeRepo(db)
	ratePlans := repository.NewRatePlanRepo(db)
	mappings := repository.NewMappingRepo(db)
	allocations := repository.NewAllocationRepo(db)
	guests := repository.NewGuestRepo(db)
	reservations := repository.NewReservationRepo(db)
	inbound := repository.NewInboundRepo(db)
	inventory := repository.NewInventoryRepo(db)
	checkpoints := repository.NewCheckpointRepo(db)
	cycles := repository.NewCycleLogRepo(db)

	// Outbound queues.
	publisher := queue.NewPublisher(cfg.RabbitURL)

	// Services.
	policy := service.FailOpen
	if cfg.FailClosed() {
		policy = service.FailClosed
	}
	mapper := service.NewMapper(mappings, roomTypes, ratePlans)
	checker := service.NewAllocationChecker(allocations, reservations, policy)
	resolver := service.NewGuestResolver(guests)
	writer := service.NewReservationWriter(reservations, service.DefaultWriterLimits())
	pipeline := service.NewPipeline(connections, inbound, resolver, mapper, checker, writer, roomTypes, publisher)
	inventorySvc := service.NewInventoryService(inventory, reservations, publisher)

	// Sync engine and scheduler.
	clients := channel.NewFactory(&http.Client{Timeout: 90 * time.Second})
	opts := syncengine.DefaultOptions()
	opts.CreditThreshold = cfg.SyncCreditThreshold
	opts.CallTimeout = time.Duration(cfg.SyncCallTimeoutSec) * time.Second
	opts.InitialLookback = time.Duration(cfg.SyncLookbackDays) * 24 * time.Hour
	engine := syncengine.NewEngine(clients, checkpoints, cycles, connections, pipeline, inventorySvc, mapper, rdb, opts)
	scheduler := syncengine.NewScheduler(engine, connections)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers: outbound queue consumers and the sync cadence.
	consumer := queue.NewConsumer(cfg.RabbitURL, connections, inventorySvc, clients)
	consumer.Start(ctx)
	go scheduler.Run(ctx)

	// HTTP surface.
	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterWebhook(e, handler.NewWebhookHandler(pipeline), cfg.JWTSecret)
	router.RegisterAPI(e,
		handler.NewInventoryHandler(inventorySvc),
		handler.NewConnectionHandler(connections, checkpoints, cycles, scheduler),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
