package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/gestao-publica/procurement-api/docs"
	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/config"
	"github.com/gestao-publica/procurement-api/internal/database"
	"github.com/gestao-publica/procurement-api/internal/http/handler"
	"github.com/gestao-publica/procurement-api/internal/http/middleware"
	"github.com/gestao-publica/procurement-api/internal/http/router"
	"github.com/gestao-publica/procurement-api/internal/jobs"
	"github.com/gestao-publica/procurement-api/internal/logger"
	"github.com/gestao-publica/procurement-api/internal/repository"
	"github.com/gestao-publica/procurement-api/internal/service"
)

// @title Procurement Ledger API
// @version 1.0
// @description Municipal procurement API for price-registration agreements, contracts, invoices and payments

// @contact.name API Support
// @contact.email suporte@gestao-publica.com.br

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize repositories
	supplierRepo := repository.NewSupplierRepository(db)
	ataRepo := repository.NewAtaRepository(db)
	contractRepo := repository.NewContractRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	bankAccountRepo := repository.NewBankAccountRepository(db)
	serviceOrderRepo := repository.NewServiceOrderRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Initialize services
	supplierService := service.NewSupplierService(supplierRepo, log)
	ataService := service.NewAtaService(db, ataRepo, supplierRepo, log)
	contractService := service.NewContractService(db, contractRepo, ataRepo, supplierRepo, log)
	invoiceService := service.NewInvoiceService(db, invoiceRepo, contractRepo, bankAccountRepo, log)
	bankAccountService := service.NewBankAccountService(bankAccountRepo, invoiceRepo, log)
	serviceOrderService := service.NewServiceOrderService(db, serviceOrderRepo, contractRepo, numberSequenceRepo, log)
	dashboardService := service.NewDashboardService(supplierRepo, ataRepo, contractRepo, invoiceRepo, cfg.Jobs.ContractExpiryDays, log)
	auditService := service.NewAuditService(db, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	supplierHandler := handler.NewSupplierHandler(supplierService, log)
	ataHandler := handler.NewAtaHandler(ataService, log)
	contractHandler := handler.NewContractHandler(contractService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, log)
	serviceOrderHandler := handler.NewServiceOrderHandler(serviceOrderService, log)
	bankAccountHandler := handler.NewBankAccountHandler(bankAccountService, log)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		supplierHandler,
		ataHandler,
		contractHandler,
		invoiceHandler,
		serviceOrderHandler,
		bankAccountHandler,
		dashboardHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.Enabled {
		scheduler = jobs.NewScheduler(log)

		if err := jobs.RegisterLedgerAuditJob(scheduler, auditService, log, cfg.Jobs.LedgerAuditSchedule); err != nil {
			log.Error("Failed to register ledger audit job", zap.Error(err))
		}
		if err := jobs.RegisterContractExpiryJob(scheduler, auditService, log, cfg.Jobs.ContractExpiryDays); err != nil {
			log.Error("Failed to register contract expiry job", zap.Error(err))
		}

		scheduler.Start()
		log.Info("Scheduler started",
			zap.String("ledger_audit_schedule", cfg.Jobs.LedgerAuditSchedule),
			zap.Int("contract_expiry_days", cfg.Jobs.ContractExpiryDays),
		)
	} else {
		log.Info("Background jobs disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
