package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/gestao-publica/procurement-api/internal/auth"
	"github.com/gestao-publica/procurement-api/internal/config"
	"github.com/gestao-publica/procurement-api/internal/database"
	"github.com/gestao-publica/procurement-api/internal/http/handler"
	"github.com/gestao-publica/procurement-api/internal/http/middleware"

	_ "github.com/gestao-publica/procurement-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	authMiddleware      *auth.Middleware
	rateLimiter         *middleware.RateLimiter
	supplierHandler     *handler.SupplierHandler
	ataHandler          *handler.AtaHandler
	contractHandler     *handler.ContractHandler
	invoiceHandler      *handler.InvoiceHandler
	serviceOrderHandler *handler.ServiceOrderHandler
	bankAccountHandler  *handler.BankAccountHandler
	dashboardHandler    *handler.DashboardHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	supplierHandler *handler.SupplierHandler,
	ataHandler *handler.AtaHandler,
	contractHandler *handler.ContractHandler,
	invoiceHandler *handler.InvoiceHandler,
	serviceOrderHandler *handler.ServiceOrderHandler,
	bankAccountHandler *handler.BankAccountHandler,
	dashboardHandler *handler.DashboardHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		authMiddleware:      authMiddleware,
		rateLimiter:         rateLimiter,
		supplierHandler:     supplierHandler,
		ataHandler:          ataHandler,
		contractHandler:     contractHandler,
		invoiceHandler:      invoiceHandler,
		serviceOrderHandler: serviceOrderHandler,
		bankAccountHandler:  bankAccountHandler,
		dashboardHandler:    dashboardHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with pool stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(r.Context(), rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		status := "healthy"
		code := http.StatusOK
		if !allHealthy {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)

		// Suppliers
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", rt.supplierHandler.List)
			r.Get("/{id}", rt.supplierHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireWriter)
				r.Post("/", rt.supplierHandler.Create)
				r.Put("/{id}", rt.supplierHandler.Update)
				r.Delete("/{id}", rt.supplierHandler.Delete)
			})
		})

		// Atas (framework price agreements)
		r.Route("/atas", func(r chi.Router) {
			r.Get("/", rt.ataHandler.List)
			r.Get("/{id}", rt.ataHandler.Get)
			r.Get("/{id}/budget", rt.ataHandler.GetBudget)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireWriter)
				r.Post("/", rt.ataHandler.Create)
				r.Put("/{id}", rt.ataHandler.Update)
				r.Delete("/{id}", rt.ataHandler.Delete)
				r.Post("/{id}/distributions", rt.ataHandler.AddDistribution)
				r.Delete("/{id}/distributions/{distributionId}", rt.ataHandler.RemoveDistribution)
			})
		})

		// Contracts
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", rt.contractHandler.List)
			r.Get("/{id}", rt.contractHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireWriter)
				r.Post("/", rt.contractHandler.Create)
				r.Put("/{id}", rt.contractHandler.Update)
				r.Delete("/{id}", rt.contractHandler.Delete)
			})
		})

		// Invoices
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", rt.invoiceHandler.List)
			r.Get("/{id}", rt.invoiceHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireWriter)
				r.Post("/", rt.invoiceHandler.Create)
				r.Put("/{id}", rt.invoiceHandler.Update)
				r.Delete("/{id}", rt.invoiceHandler.Delete)
				r.Post("/{id}/pay", rt.invoiceHandler.MarkPaid)
			})
		})

		// Service orders
		r.Route("/service-orders", func(r chi.Router) {
			r.Get("/", rt.serviceOrderHandler.List)
			r.Get("/{id}", rt.serviceOrderHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireWriter)
				r.Post("/", rt.serviceOrderHandler.Create)
				r.Put("/{id}/status", rt.serviceOrderHandler.UpdateStatus)
				r.Delete("/{id}", rt.serviceOrderHandler.Delete)
			})
		})

		// Bank accounts
		r.Route("/bank-accounts", func(r chi.Router) {
			r.Get("/", rt.bankAccountHandler.List)
			r.Get("/{id}", rt.bankAccountHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireWriter)
				r.Post("/", rt.bankAccountHandler.Create)
				r.Put("/{id}", rt.bankAccountHandler.Update)
				r.Delete("/{id}", rt.bankAccountHandler.Delete)
			})
		})

		// Dashboard
		r.Get("/dashboard/metrics", rt.dashboardHandler.GetMetrics)
		r.Get("/dashboard/expiring-contracts", rt.dashboardHandler.ListExpiringContracts)
	})

	return r
}
