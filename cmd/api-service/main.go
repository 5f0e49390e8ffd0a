package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/omidshabab/link-shortener-api/internal"
	"github.com/omidshabab/link-shortener-api/internal/handler"
	applog "github.com/omidshabab/link-shortener-api/internal/logger"
	"github.com/omidshabab/link-shortener-api/internal/service"
	"github.com/omidshabab/link-shortener-api/internal/storage"
)

type Config struct {
	Port         string
	AppDomain    string
	MasterKey    string
	DBURL        string
	GormLogLevel string
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		slog.Warn(".env file not found, relying on env vars", "err", err)
	}

	applog.InitFromEnv()
	cfg := loadConfig()

	if cfg.MasterKey == "" {
		slog.Error("MASTER_API_KEY is required")
		os.Exit(1)
	}
	if cfg.DBURL == "" {
		slog.Error("DB_URL is required")
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{
		TranslateError: true,
		Logger:         applog.NewGormLogger(cfg.GormLogLevel),
	})
	if err != nil {
		slog.Error("Unable to connect to database", "err", err)
		os.Exit(1)
	}

	slog.Info("Running GORM Auto-Migration...")
	if err := db.AutoMigrate(&internal.ApiKey{}, &internal.Link{}); err != nil {
		slog.Error("Failed to auto-migrate database", "err", err)
		os.Exit(1)
	}
	slog.Info("Migration complete.")

	keyStore := storage.NewKeyStore(db)
	linkStore := storage.NewLinkStore(db)

	h := handler.New(
		service.NewLinkService(linkStore, cfg.AppDomain),
		service.NewKeyService(keyStore),
		keyStore,
		cfg.MasterKey,
	)

	app := fiber.New()
	app.Use(applog.FiberMiddleware())
	app.Use(cors.New())
	h.Register(app)

	go func() {
		slog.Info("Starting API Service", "port", cfg.Port, "domain", cfg.AppDomain)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("API Service failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		slog.Error("Shutdown failed", "err", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}

func loadConfig() *Config {
	port := getenvDefault("PORT", "3000")
	return &Config{
		Port:         port,
		AppDomain:    getenvDefault("CUSTOM_DOMAIN", "http://localhost:"+port),
		MasterKey:    os.Getenv("MASTER_API_KEY"),
		DBURL:        os.Getenv("DB_URL"),
		GormLogLevel: os.Getenv("GORM_LOG_LEVEL"),
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
