package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/repository"
	"github.com/gestao-publica/procurement-api/internal/service"
)

// updateServiceOrderStatusRequest is the body for status transitions
type updateServiceOrderStatusRequest struct {
	Status domain.ServiceOrderStatus `json:"status" validate:"required,oneof=open completed cancelled"`
}

// ServiceOrderHandler handles HTTP requests for service orders
type ServiceOrderHandler struct {
	orderService *service.ServiceOrderService
	logger       *zap.Logger
}

// NewServiceOrderHandler creates a new ServiceOrderHandler instance
func NewServiceOrderHandler(orderService *service.ServiceOrderService, logger *zap.Logger) *ServiceOrderHandler {
	return &ServiceOrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// List godoc
// @Summary List service orders
// @Description Get service orders with pagination and filters
// @Tags ServiceOrders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search by number or description"
// @Param contractId query string false "Filter by contract"
// @Param status query string false "Filter by status"
// @Success 200 {object} domain.PaginatedResponse "Paginated list of service orders"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /service-orders [get]
func (h *ServiceOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := repository.ServiceOrderFilters{Search: r.URL.Query().Get("search")}
	if contractID := r.URL.Query().Get("contractId"); contractID != "" {
		id, err := uuid.Parse(contractID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid contract ID")
			return
		}
		filters.ContractID = &id
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.ServiceOrderStatus(status)
		if !s.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filters.Status = &s
	}

	result, err := h.orderService.List(r.Context(), filters, parseSort(r), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list service orders", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list service orders")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get service order
// @Description Get a service order with its items
// @Tags ServiceOrders
// @Produce json
// @Param id path string true "Service order ID"
// @Success 200 {object} domain.ServiceOrderDTO "Service order"
// @Failure 404 {object} domain.ErrorResponse "Service order not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /service-orders/{id} [get]
func (h *ServiceOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid service order ID")
		return
	}

	order, err := h.orderService.GetByID(r.Context(), id)
	if err != nil {
		h.handleServiceOrderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Create godoc
// @Summary Create service order
// @Description Issue a service order against a contract. Numbers are sequential per year (for example 003/2026).
// @Tags ServiceOrders
// @Accept json
// @Produce json
// @Param request body domain.CreateServiceOrderRequest true "Service order data"
// @Success 201 {object} domain.ServiceOrderDTO "Created service order"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 404 {object} domain.ErrorResponse "Contract not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /service-orders [post]
func (h *ServiceOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateServiceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	order, err := h.orderService.Create(r.Context(), &req)
	if err != nil {
		h.handleServiceOrderError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// UpdateStatus godoc
// @Summary Update service order status
// @Description Transition a service order. Open orders can be completed or cancelled.
// @Tags ServiceOrders
// @Accept json
// @Produce json
// @Param id path string true "Service order ID"
// @Param request body handler.updateServiceOrderStatusRequest true "New status"
// @Success 200 {object} domain.ServiceOrderDTO "Updated service order"
// @Failure 404 {object} domain.ErrorResponse "Service order not found"
// @Failure 409 {object} domain.ErrorResponse "Invalid transition"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /service-orders/{id}/status [put]
func (h *ServiceOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid service order ID")
		return
	}

	var req updateServiceOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleServiceOrderError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// Delete godoc
// @Summary Delete service order
// @Description Remove a cancelled service order
// @Tags ServiceOrders
// @Param id path string true "Service order ID"
// @Success 204 "Deleted"
// @Failure 404 {object} domain.ErrorResponse "Service order not found"
// @Failure 409 {object} domain.ErrorResponse "Order is not cancelled"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /service-orders/{id} [delete]
func (h *ServiceOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid service order ID")
		return
	}

	if err := h.orderService.Delete(r.Context(), id); err != nil {
		h.handleServiceOrderError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (h *ServiceOrderHandler) handleServiceOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrServiceOrderNotFound),
		errors.Is(err, service.ErrContractNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidStatusTransition):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		if handleLedgerError(w, err) {
			return
		}
		h.logger.Error("service order operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
