package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/crowdshop/internal/config"
	"github.com/Skotchmaster/crowdshop/internal/httpserver"
	"github.com/Skotchmaster/crowdshop/internal/models"
	"github.com/Skotchmaster/crowdshop/internal/repo"
	"github.com/Skotchmaster/crowdshop/internal/search"
	"github.com/Skotchmaster/crowdshop/internal/service"
	pkgdb "github.com/Skotchmaster/crowdshop/pkg/db"
	"github.com/Skotchmaster/crowdshop/pkg/logging"
	loggingmw "github.com/Skotchmaster/crowdshop/pkg/middleware/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_HS256_SECRET")

	logger := logging.New(os.Getenv("LOG_LEVEL")).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(
		&models.Project{},
		&models.Product{},
		&models.Batch{},
		&models.ProductOption{},
		&models.OptionValue{},
		&models.SKU{},
		&models.Item{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.Payment{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	r := repo.New(database)
	cartSvc := service.NewCartService(r)

	deps := httpserver.Deps{
		Repo:      r,
		Cart:      cartSvc,
		JWTSecret: cfg.JWTSecret,
		ESIndex:   cfg.ProjectIndex,
	}
	if cfg.ESURL != "" {
		es, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		deps.ES = es
		deps.Indexer = &search.Indexer{ES: es, Index: cfg.ProjectIndex}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.CORS())

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("bye")
}
