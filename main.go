package main

import (
	"context"
	"os/signal"
	"syscall"

	api "cfdivault-backend/cmd/api"
	acqdelivery "cfdivault-backend/internal/acquisition/delivery"
	acqdomain "cfdivault-backend/internal/acquisition/domain"
	acqrepo "cfdivault-backend/internal/acquisition/repository"
	acqusecase "cfdivault-backend/internal/acquisition/usecase"
	docdelivery "cfdivault-backend/internal/document/delivery"
	docdomain "cfdivault-backend/internal/document/domain"
	docrepo "cfdivault-backend/internal/document/repository"
	docusecase "cfdivault-backend/internal/document/usecase"
	"cfdivault-backend/pkg/config"
	"cfdivault-backend/pkg/database"
	"cfdivault-backend/pkg/logger"
	"cfdivault-backend/pkg/sat"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New()
	defer func() { _ = log.Sync() }()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&acqdomain.Taxpayer{}, &acqdomain.AcquisitionRequest{}, &docdomain.Document{}); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize repositories (dependency injection)
	taxpayerRepo := acqrepo.NewTaxpayerRepository(db)
	requestRepo := acqrepo.NewRequestRepository(db)
	documentRepo := docrepo.NewDocumentRepository(db)

	// Initialize SAT gateway client with the acquisition retry policy
	gateway := sat.NewHTTPClient(cfg.SATGatewayURL, cfg.SATConnectTimeout, cfg.SATRequestTimeout)
	satClient := sat.NewRetryingClient(gateway, cfg.SATRetries, log)

	// Initialize use cases (dependency injection)
	indexer := docusecase.NewIndexer(documentRepo, requestRepo, cfg.StorageDir, log)
	sweeper := docusecase.NewSweeper(documentRepo, gateway, log)
	planner := acqusecase.NewSyncPlanner(taxpayerRepo, requestRepo, documentRepo, sweeper, cfg.MinSyncInterval, log)
	runner := acqusecase.NewRunner(requestRepo, satClient, indexer, cfg.StorageDir, cfg.RunnerBatchSize, cfg.RunnerInterval, log)

	// Context with OS signals for graceful shutdown between ticks
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunContinuous {
		runner.Start(ctx)
		defer runner.Stop()
		planner.Start(ctx, cfg.PlannerInterval)
		defer planner.Stop()
	} else {
		log.Info("continuous mode disabled, syncs and ticks must be triggered via the API")
	}

	// Initialize HTTP handler
	acqHandler := acqdelivery.NewAcquisitionHandler(planner, runner, taxpayerRepo, requestRepo)
	docHandler := docdelivery.NewDocumentHandler(sweeper, documentRepo)
	handler := api.NewHandler(acqHandler, docHandler, cfg)

	// Start server
	log.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
