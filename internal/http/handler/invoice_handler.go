package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gestao-publica/procurement-api/internal/domain"
	"github.com/gestao-publica/procurement-api/internal/repository"
	"github.com/gestao-publica/procurement-api/internal/service"
)

// InvoiceHandler handles HTTP requests for invoice settlement
type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler instance
func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// List godoc
// @Summary List invoices
// @Description Get invoices with pagination and filters
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param search query string false "Search by invoice number"
// @Param contractId query string false "Filter by contract"
// @Param isPaid query bool false "Filter by payment status"
// @Success 200 {object} domain.PaginatedResponse "Paginated list of invoices"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	filters := repository.InvoiceFilters{Search: r.URL.Query().Get("search")}
	if contractID := r.URL.Query().Get("contractId"); contractID != "" {
		id, err := uuid.Parse(contractID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid contract ID")
			return
		}
		filters.ContractID = &id
	}
	if isPaid := r.URL.Query().Get("isPaid"); isPaid != "" {
		paid, err := strconv.ParseBool(isPaid)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid isPaid filter")
			return
		}
		filters.IsPaid = &paid
	}

	result, err := h.invoiceService.List(r.Context(), filters, parseSort(r), page, pageSize)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get invoice
// @Description Get an invoice with its items and payment
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO "Invoice"
// @Failure 404 {object} domain.ErrorResponse "Invoice not found"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		h.handleInvoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// Create godoc
// @Summary Create invoice
// @Description Record an invoice and draw its quantities from the contract item balances
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO "Created invoice"
// @Failure 400 {object} domain.ErrorResponse "Invalid request"
// @Failure 422 {object} domain.ErrorResponse "Insufficient balance"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.Create(r.Context(), &req)
	if err != nil {
		h.handleInvoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, invoice)
}

// Update godoc
// @Summary Update invoice
// @Description Edit an open invoice. Old quantities are returned to the balances before the new ones are drawn.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body domain.UpdateInvoiceRequest true "Invoice data"
// @Success 200 {object} domain.InvoiceDTO "Updated invoice"
// @Failure 404 {object} domain.ErrorResponse "Invoice not found"
// @Failure 409 {object} domain.ErrorResponse "Invoice is paid"
// @Failure 422 {object} domain.ErrorResponse "Insufficient balance"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [put]
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req domain.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.Update(r.Context(), id, &req)
	if err != nil {
		h.handleInvoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// Delete godoc
// @Summary Delete invoice
// @Description Remove an open invoice and restore its quantities. Paid invoices cannot be deleted.
// @Tags Invoices
// @Param id path string true "Invoice ID"
// @Success 204 "Deleted"
// @Failure 404 {object} domain.ErrorResponse "Invoice not found"
// @Failure 409 {object} domain.ErrorResponse "Invoice is paid"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [delete]
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	if err := h.invoiceService.Delete(r.Context(), id); err != nil {
		h.handleInvoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// MarkPaid godoc
// @Summary Mark invoice paid
// @Description Settle an invoice against a bank account. Once paid the invoice is locked.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body domain.MarkInvoicePaidRequest true "Payment data"
// @Success 200 {object} domain.InvoiceDTO "Paid invoice"
// @Failure 404 {object} domain.ErrorResponse "Invoice or bank account not found"
// @Failure 409 {object} domain.ErrorResponse "Invoice already paid"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/pay [post]
func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID")
		return
	}

	var req domain.MarkInvoicePaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.MarkPaid(r.Context(), id, &req)
	if err != nil {
		h.handleInvoiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

func (h *InvoiceHandler) handleInvoiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvoiceNotFound),
		errors.Is(err, service.ErrContractNotFound),
		errors.Is(err, service.ErrBankAccountNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvoiceAlreadyPaid):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		if handleLedgerError(w, err) {
			return
		}
		h.logger.Error("invoice operation failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
