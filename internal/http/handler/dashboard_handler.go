package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gestao-publica/procurement-api/internal/mapper"
	"github.com/gestao-publica/procurement-api/internal/service"
)

// DashboardHandler handles HTTP requests for dashboard metrics
type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler instance
func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// GetMetrics godoc
// @Summary Get dashboard metrics
// @Description Get entity counts and invoice value totals for the tenant
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.DashboardMetricsDTO "Dashboard metrics"
// @Failure 500 {object} domain.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/metrics [get]
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.dashboardService.GetMetrics(r.Context())
	if err != nil {
		h.logger.Error("failed to get dashboard metrics", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to get dashboard metrics")
		return
	}

	respondJSON(w, http.StatusOK, metrics)
}

// ListExpiringContracts godoc
// @Summary List expiring contracts
// @Description Get contracts ending within the configured expiry window
// @Tags Dashboard
// @Produce json
// @Success 200 {array} domain.ContractDTO "Expiring contracts"
// @Failure 500 {object} domain.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /dashboard/expiring-contracts [get]
func (h *DashboardHandler) ListExpiringContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.dashboardService.ListExpiringContracts(r.Context())
	if err != nil {
		h.logger.Error("failed to list expiring contracts", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list expiring contracts")
		return
	}

	dtos := make([]interface{}, 0, len(contracts))
	for i := range contracts {
		dtos = append(dtos, mapper.ToContractDTO(&contracts[i], ""))
	}

	respondJSON(w, http.StatusOK, dtos)
}
