package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/adapters/devices"
	"github.com/pawhaven/voicecore/adapters/store"
	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/domain/repositories"
	"github.com/pawhaven/voicecore/internal/alerts"
	"github.com/pawhaven/voicecore/internal/api"
	"github.com/pawhaven/voicecore/internal/auth"
	"github.com/pawhaven/voicecore/internal/dialog"
	"github.com/pawhaven/voicecore/internal/presence"
	"github.com/pawhaven/voicecore/internal/transport"
	"github.com/pawhaven/voicecore/usecase"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if path := os.Getenv("VOICECORE_CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			log.Fatalf("applying config file: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	clk := clock.New()

	kv := openStore(cfg, logger)
	defer kv.Close()

	// shared engines
	tracker := presence.NewTracker(cfg.Presence, clk, logger)
	engine := dialog.NewEngine(cfg.Dialog, logger)
	catalog := usecase.NewIntentCatalog()
	sessions := usecase.NewSessionManager(cfg.Speech, engine, catalog, tracker, clk, logger)

	hub := transport.NewHub(sessions, logger)
	go hub.Run()

	scheduler := alerts.NewScheduler(cfg.Alerts, kv, hub, tracker, clk, logger)
	tracker.OnResume(scheduler.Resume)
	scheduler.Start()
	defer scheduler.Stop()

	recurrence := alerts.NewRecurrence(scheduler, logger)
	recurrence.Start()
	defer recurrence.Stop()

	registry := devices.NewRegistry()
	seedDevice(registry, logger)
	authService := auth.NewService(cfg.Server.JWTSecret)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.NewRouter(hub, scheduler, recurrence, tracker, registry, authService, logger).Register(e)

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Voice core started",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Server.StoreBackend))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openStore selects the durable backend. A badger directory that
// cannot open degrades to the in-memory store so alert scheduling
// keeps working for the session.
func openStore(cfg config.Config, logger *zap.Logger) repositories.KeyValueStore {
	switch cfg.Server.StoreBackend {
	case "mongo":
		kv, err := store.NewMongoStore(cfg.Server.MongoURI, cfg.Server.MongoDatabase, logger)
		if err != nil {
			logger.Error("Mongo store unavailable, continuing in-memory", zap.Error(err))
			return store.NewMemoryStore()
		}
		return kv
	case "memory":
		return store.NewMemoryStore()
	default:
		kv, err := store.NewBadgerStore(cfg.Server.BadgerPath, logger)
		if err != nil {
			logger.Error("Badger store unavailable, continuing in-memory", zap.Error(err))
			return store.NewMemoryStore()
		}
		return kv
	}
}

// seedDevice registers the device credentials provisioned through the
// environment. Without one, no device can authenticate.
func seedDevice(registry *devices.Registry, logger *zap.Logger) {
	serial := os.Getenv("VOICECORE_DEVICE_SERIAL")
	secret := os.Getenv("VOICECORE_DEVICE_SECRET")
	if serial == "" || secret == "" {
		logger.Warn("No device credentials provisioned; websocket auth will reject all devices")
		return
	}

	model := os.Getenv("VOICECORE_DEVICE_MODEL")
	if model == "" {
		model = "pawhaven-home-v1"
	}

	device := &entities.Device{SerialNumber: serial, SecretKey: secret, Model: model}
	if err := registry.Register(device); err != nil {
		logger.Error("Failed to register provisioned device", zap.Error(err))
		return
	}
	logger.Info("Device registered", zap.String("deviceID", device.ID), zap.String("model", model))
}
