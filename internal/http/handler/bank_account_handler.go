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

// BankAccountHandler handles HTTP requests for bank account operations
type BankAccountHandler struct {
	bankAccountService *service.BankAccountService
	logger             *zap.Logger
}

// NewBankAccountHandler creates a new BankAccountHandler instance
func NewBankAccountHandler(bankAccountService *service.BankAccountService, logger *zap.Logger) *BankAccountHandler {
	return &BankAccountHandler{
		bankAccountService: bankAccountService,
		logger:             logger,
	}
}

// List godoc
// @Summary List bank accounts
// @Description Get bank accounts with pagination and filters
// @Tags BankAccounts
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search by bank or account number"
// @Param secretariat query string false "Filter by secretariat"
// @Success 200 {object} domain.PaginatedResponse "Paginated list of bank accounts"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bank-accounts [get]
func (h *BankAccountHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	filters := repository.BankAccountFilters{
		Search:      r.URL.Query().Get("search"),
		Secretariat: r.URL.Query().Get("secretariat"),
	}

	result, err := h.bankAccountService.List(r.Context(), filters, parseSort(r), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list bank accounts", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list bank accounts")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get bank account
// @Description Get a bank account by ID
// @Tags BankAccounts
// @Produce json
// @Param id path string true "Bank account ID"
// @Success 200 {object} domain.BankAccountDTO "Bank account"
// @Failure 404 {object} domain.ErrorResponse "Bank account not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bank-accounts/{id} [get]
func (h *BankAccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid bank account ID")
		return
	}

	account, err := h.bankAccountService.GetByID(r.Context(), id)
	if err != nil {
		h.handleBankAccountError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// Create godoc
// @Summary Create bank account
// @Description Register a municipal bank account
// @Tags BankAccounts
// @Accept json
// @Produce json
// @Param request body domain.CreateBankAccountRequest true "Bank account data"
// @Success 201 {object} domain.BankAccountDTO "Created bank account"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bank-accounts [post]
func (h *BankAccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	account, err := h.bankAccountService.Create(r.Context(), &req)
	if err != nil {
		h.handleBankAccountError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, account)
}

// Update godoc
// @Summary Update bank account
// @Description Update an existing bank account
// @Tags BankAccounts
// @Accept json
// @Produce json
// @Param id path string true "Bank account ID"
// @Param request body domain.CreateBankAccountRequest true "Bank account data"
// @Success 200 {object} domain.BankAccountDTO "Updated bank account"
// @Failure 404 {object} domain.ErrorResponse "Bank account not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bank-accounts/{id} [put]
func (h *BankAccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid bank account ID")
		return
	}

	var req domain.CreateBankAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	account, err := h.bankAccountService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleBankAccountError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// Delete godoc
// @Summary Delete bank account
// @Description Remove a bank account. Accounts with recorded payments cannot be removed.
// @Tags BankAccounts
// @Param id path string true "Bank account ID"
// @Success 204 "Deleted"
// @Failure 404 {object} domain.ErrorResponse "Bank account not found"
// @Failure 409 {object} domain.ErrorResponse "Bank account has payments"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /bank-accounts/{id} [delete]
func (h *BankAccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid bank account ID")
		return
	}

	if err := h.bankAccountService.Delete(r.Context(), id); err != nil {
		h.handleBankAccountError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

func (h *BankAccountHandler) handleBankAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrBankAccountNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		if handleLedgerError(w, err) {
			return
		}
		h.logger.Error("bank account operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
