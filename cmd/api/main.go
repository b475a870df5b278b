package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/uimetrics/uima-go-api/internal/cache"
	"github.com/uimetrics/uima-go-api/internal/config"
	"github.com/uimetrics/uima-go-api/internal/database"
	"github.com/uimetrics/uima-go-api/internal/dispatcher"
	"github.com/uimetrics/uima-go-api/internal/evaluator"
	"github.com/uimetrics/uima-go-api/internal/handler"
	"github.com/uimetrics/uima-go-api/internal/middleware"
	"github.com/uimetrics/uima-go-api/internal/models"
	"github.com/uimetrics/uima-go-api/internal/registry"
	"github.com/uimetrics/uima-go-api/internal/repository"
	"github.com/uimetrics/uima-go-api/internal/router"
	"github.com/uimetrics/uima-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	reg, err := registry.LoadFile(cfg.RegistryPath)
	if err != nil {
		log.Fatalf("failed to load metric catalog: %v", err)
	}
	logger.Info().Int("metrics", reg.Len()).Str("path", cfg.RegistryPath).Msg("metric catalog loaded")

	var historyRepo repository.EvaluationRepository
	if cfg.HistoryEnabled && cfg.DatabaseURL != "" {
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.Evaluation{}, &models.EvaluationResult{}); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		historyRepo = repository.NewEvaluationRepository(db)
	} else {
		logger.Warn().Msg("evaluation history disabled")
	}

	var outcomes cache.OutcomeCache
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		outcomes = cache.NewRedis(redisClient, cfg.CacheTTL, logger)
	} else {
		logger.Warn().Msg("outcome cache disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		natsConn = conn
	} else {
		logger.Warn().Msg("event fan-out disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()

	disp := dispatcher.New(reg, evaluator.BuiltIn(), outcomes, dispatcher.Config{
		PoolSize:    cfg.WorkerPoolSize,
		TaskTimeout: cfg.TaskTimeout,
		Logger:      logger,
	})
	disp.Start(dispatcherCtx)

	evaluationService := service.NewEvaluationService(service.Config{
		Registry:         reg,
		Dispatcher:       disp,
		History:          historyRepo,
		NATS:             natsConn,
		Validator:        validate,
		MaxArtifactBytes: cfg.MaxArtifactBytes,
		Logger:           logger,
	})

	evaluationHandler := handler.NewEvaluationHandler(evaluationService, logger)
	catalogHandler := handler.NewCatalogHandler(evaluationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		Registry:          reg,
		Dispatcher:        disp,
		EvaluationHandler: evaluationHandler,
		CatalogHandler:    catalogHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopDispatcher, disp)
}

func waitForShutdown(app *fiber.App, stopDispatcher context.CancelFunc, disp *dispatcher.Dispatcher) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	stopDispatcher()
	disp.Wait()

	log.Println("server stopped")
}
