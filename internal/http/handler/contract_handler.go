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

// ContractHandler handles HTTP requests for contract operations
type ContractHandler struct {
	contractService *service.ContractService
	logger          *zap.Logger
}

// NewContractHandler creates a new ContractHandler instance
func NewContractHandler(contractService *service.ContractService, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
		logger:          logger,
	}
}

// List godoc
// @Summary List contracts
// @Description Get contracts with pagination and filters
// @Tags Contracts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search by contract number"
// @Param supplierId query string false "Filter by supplier"
// @Param ataId query string false "Filter by ata"
// @Param secretariat query string false "Filter by secretariat"
// @Param origin query string false "Filter by origin (direct or ata)"
// @Success 200 {object} domain.PaginatedResponse "Paginated list of contracts"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts [get]
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := repository.ContractFilters{
		Search:      r.URL.Query().Get("search"),
		Secretariat: r.URL.Query().Get("secretariat"),
	}
	if supplierID := r.URL.Query().Get("supplierId"); supplierID != "" {
		id, err := uuid.Parse(supplierID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid supplier ID")
			return
		}
		filters.SupplierID = &id
	}
	if ataID := r.URL.Query().Get("ataId"); ataID != "" {
		id, err := uuid.Parse(ataID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
			return
		}
		filters.AtaID = &id
	}
	if origin := r.URL.Query().Get("origin"); origin != "" {
		o := domain.ContractOrigin(origin)
		if o != domain.ContractOriginDirect && o != domain.ContractOriginAta {
			respondWithError(w, http.StatusBadRequest, "Invalid origin filter")
			return
		}
		filters.Origin = &o
	}

	result, err := h.contractService.List(r.Context(), filters, parseSort(r), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list contracts", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list contracts")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get contract
// @Description Get a contract with its items and balances
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} domain.ContractDTO "Contract"
// @Failure 404 {object} domain.ErrorResponse "Contract not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts/{id} [get]
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID")
		return
	}

	contract, err := h.contractService.GetByID(r.Context(), id)
	if err != nil {
		h.handleContractError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// Create godoc
// @Summary Create contract
// @Description Register a contract. Ata-backed contracts are checked against the secretariat's remaining allocation.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param request body domain.CreateContractRequest true "Contract data"
// @Success 201 {object} domain.ContractDTO "Created contract"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 422 {object} domain.ErrorResponse "Budget exceeded"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	contract, err := h.contractService.Create(r.Context(), &req)
	if err != nil {
		h.handleContractError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, contract)
}

// Update godoc
// @Summary Update contract
// @Description Update a contract. Item quantity changes shift balances by the delta; the new value re-passes the budget guard.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param id path string true "Contract ID"
// @Param request body domain.UpdateContractRequest true "Contract data"
// @Success 200 {object} domain.ContractDTO "Updated contract"
// @Failure 404 {object} domain.ErrorResponse "Contract not found"
// @Failure 422 {object} domain.ErrorResponse "Budget exceeded or insufficient balance"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts/{id} [put]
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID")
		return
	}

	var req domain.UpdateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	contract, err := h.contractService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleContractError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, contract)
}

// Delete godoc
// @Summary Delete contract
// @Description Remove a contract. Contracts with invoices or service orders cannot be removed.
// @Tags Contracts
// @Param id path string true "Contract ID"
// @Success 204 "Deleted"
// @Failure 404 {object} domain.ErrorResponse "Contract not found"
// @Failure 409 {object} domain.ErrorResponse "Contract is referenced"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /contracts/{id} [delete]
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid contract ID")
		return
	}

	if err := h.contractService.Delete(r.Context(), id); err != nil {
		h.handleContractError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (h *ContractHandler) handleContractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrContractNotFound),
		errors.Is(err, service.ErrAtaNotFound),
		errors.Is(err, service.ErrSupplierNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSecretariatRequired),
		errors.Is(err, service.ErrSupplierRequired):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		if handleLedgerError(w, err) {
			return
		}
		h.logger.Error("contract operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
