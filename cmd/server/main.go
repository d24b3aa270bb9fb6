package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rafaelreis-se/gym-nfse/internal/application/service"
	"github.com/rafaelreis-se/gym-nfse/internal/config"
	httpadapter "github.com/rafaelreis-se/gym-nfse/internal/interfaces/http"
	"github.com/rafaelreis-se/gym-nfse/internal/notification"
	"github.com/rafaelreis-se/gym-nfse/internal/repository"
	"github.com/rafaelreis-se/gym-nfse/internal/retry"
	"github.com/rafaelreis-se/gym-nfse/internal/signer"
	"github.com/rafaelreis-se/gym-nfse/internal/webservice"
	"github.com/rafaelreis-se/gym-nfse/pkg/database"
	"github.com/rafaelreis-se/gym-nfse/pkg/utils"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting NFS-e emission service",
		zap.Int("port", cfg.Server.Port),
		zap.String("webservice_url", cfg.Webservice.URL))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(repository.Migrations); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	invoiceRepo := repository.NewInvoiceRepository(db, logger)
	contactResolver := repository.NewStudentContactResolver(db, logger)

	wsClient := webservice.NewClient(webservice.Config{
		URL:     cfg.Webservice.URL,
		Timeout: cfg.Webservice.Timeout,
		Envelopes: webservice.EnvelopeConfig{
			Send:   cfg.Webservice.SendEnvelope,
			Cancel: cfg.Webservice.CancelEnvelope,
			Query:  cfg.Webservice.QueryEnvelope,
		},
	}, logger)

	mailSender := notification.NewHTTPSender(notification.SenderConfig{
		APIURL:     cfg.Notification.APIURL,
		APIToken:   cfg.Notification.APIToken,
		SenderName: cfg.Notification.SenderName,
		Timeout:    cfg.Notification.Timeout,
	}, logger)
	dispatcher := notification.NewDispatcher(mailSender, logger)

	retryEngine := retry.NewEngine(logger)
	serviceLogger := utils.NewSugarAdapter(logger)

	notificationService := service.NewNotificationService(
		invoiceRepo, contactResolver, dispatcher, retryEngine, serviceLogger)

	emissionService := service.NewEmissionService(
		invoiceRepo, wsClient, signer.NewXMLSigner(), retryEngine,
		notificationService,
		service.EmissionConfig{
			DefaultSeries:        cfg.Emission.DefaultSeries,
			DefaultProviderTaxID: cfg.Emission.ProviderTaxID,
		},
		serviceLogger)

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, emissionService, notificationService, serviceLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
