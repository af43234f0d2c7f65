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

// AtaHandler handles HTTP requests for price-registration agreements
type AtaHandler struct {
	ataService *service.AtaService
	logger     *zap.Logger
}

// NewAtaHandler creates a new AtaHandler instance
func NewAtaHandler(ataService *service.AtaService, logger *zap.Logger) *AtaHandler {
	return &AtaHandler{
		ataService: ataService,
		logger:     logger,
	}
}

// List godoc
// @Summary List atas
// @Description Get price-registration agreements with pagination and filters
// @Tags Atas
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search by process number or object"
// @Param year query string false "Filter by year"
// @Param supplierId query string false "Filter by supplier"
// @Success 200 {object} domain.PaginatedResponse "Paginated list of atas"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas [get]
func (h *AtaHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := repository.AtaFilters{
		Search: r.URL.Query().Get("search"),
		Year:   r.URL.Query().Get("year"),
	}
	if supplierID := r.URL.Query().Get("supplierId"); supplierID != "" {
		id, err := uuid.Parse(supplierID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid supplier ID")
			return
		}
		filters.SupplierID = &id
	}

	result, err := h.ataService.List(r.Context(), filters, parseSort(r), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list atas", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list atas")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get ata
// @Description Get an ata with its items and secretariat distributions
// @Tags Atas
// @Produce json
// @Param id path string true "Ata ID"
// @Success 200 {object} domain.AtaDTO "Ata"
// @Failure 404 {object} domain.ErrorResponse "Ata not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas/{id} [get]
func (h *AtaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
		return
	}

	ata, err := h.ataService.GetByID(r.Context(), id)
	if err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ata)
}

// Create godoc
// @Summary Create ata
// @Description Register a price agreement. The total value is derived from the items.
// @Tags Atas
// @Accept json
// @Produce json
// @Param request body domain.CreateAtaRequest true "Ata data"
// @Success 201 {object} domain.AtaDTO "Created ata"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas [post]
func (h *AtaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAtaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	ata, err := h.ataService.Create(r.Context(), &req)
	if err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ata)
}

// Update godoc
// @Summary Update ata
// @Description Update an ata's header and items. Distribution values are recomputed against the new total.
// @Tags Atas
// @Accept json
// @Produce json
// @Param id path string true "Ata ID"
// @Param request body domain.UpdateAtaRequest true "Ata data"
// @Success 200 {object} domain.AtaDTO "Updated ata"
// @Failure 404 {object} domain.ErrorResponse "Ata not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas/{id} [put]
func (h *AtaHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
		return
	}

	var req domain.UpdateAtaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	ata, err := h.ataService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ata)
}

// Delete godoc
// @Summary Delete ata
// @Description Remove an ata. Atas with contracts drawing on them cannot be removed.
// @Tags Atas
// @Param id path string true "Ata ID"
// @Success 204 "Deleted"
// @Failure 404 {object} domain.ErrorResponse "Ata not found"
// @Failure 409 {object} domain.ErrorResponse "Ata has contracts"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas/{id} [delete]
func (h *AtaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
		return
	}

	if err := h.ataService.Delete(r.Context(), id); err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// AddDistribution godoc
// @Summary Add secretariat distribution
// @Description Allocate a percentage share of the ata to a secretariat. The sum of distributions can never exceed 100%.
// @Tags Atas
// @Accept json
// @Produce json
// @Param id path string true "Ata ID"
// @Param request body domain.AddDistributionRequest true "Distribution data"
// @Success 201 {object} domain.AtaDTO "Ata with the new distribution"
// @Failure 404 {object} domain.ErrorResponse "Ata not found"
// @Failure 422 {object} domain.ErrorResponse "Over-allocation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas/{id}/distributions [post]
func (h *AtaHandler) AddDistribution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
		return
	}

	var req domain.AddDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	ata, err := h.ataService.AddDistribution(r.Context(), id, &req)
	if err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ata)
}

// RemoveDistribution godoc
// @Summary Remove secretariat distribution
// @Description Return a secretariat's share to the reserve. Distributions with contracts cannot be removed.
// @Tags Atas
// @Produce json
// @Param id path string true "Ata ID"
// @Param distributionId path string true "Distribution ID"
// @Success 200 {object} domain.AtaDTO "Ata without the distribution"
// @Failure 404 {object} domain.ErrorResponse "Distribution not found"
// @Failure 409 {object} domain.ErrorResponse "Distribution has contracts"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas/{id}/distributions/{distributionId} [delete]
func (h *AtaHandler) RemoveDistribution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
		return
	}
	distributionID, err := uuid.Parse(chi.URLParam(r, "distributionId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid distribution ID")
		return
	}

	ata, err := h.ataService.RemoveDistribution(r.Context(), id, distributionID)
	if err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ata)
}

// GetBudget godoc
// @Summary Get secretariat budget
// @Description Report the allocated, used and available budget of one secretariat on the ata
// @Tags Atas
// @Produce json
// @Param id path string true "Ata ID"
// @Param secretariat query string true "Secretariat name"
// @Success 200 {object} domain.AtaBudgetDTO "Budget standing"
// @Failure 404 {object} domain.ErrorResponse "Ata or distribution not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /atas/{id}/budget [get]
func (h *AtaHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid ata ID")
		return
	}

	secretariat := r.URL.Query().Get("secretariat")
	if secretariat == "" {
		respondWithError(w, http.StatusBadRequest, "Missing secretariat query parameter")
		return
	}

	budget, err := h.ataService.GetBudget(r.Context(), id, secretariat)
	if err != nil {
		h.handleAtaError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, budget)
}

func (h *AtaHandler) handleAtaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAtaNotFound),
		errors.Is(err, service.ErrDistributionNotFound),
		errors.Is(err, service.ErrSupplierNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidPercentage):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		if handleLedgerError(w, err) {
			return
		}
		h.logger.Error("ata operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
