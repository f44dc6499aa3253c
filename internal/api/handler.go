package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"

	"github.com/invoicesnap/invoicesnap/internal/entity"
)

// @title InvoiceSnap API
// @version 1.0
// @description Invoicing API: create, list and manage invoices with line items, tax and status lifecycle
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=../mocks/api.go -package=mocks

type Service interface {
	CreateInvoice(ctx context.Context, inv entity.Invoice) (entity.Invoice, error)
	Invoice(ctx context.Context, id uuid.UUID) (entity.Invoice, error)
	Invoices(ctx context.Context, filter entity.InvoiceFilter) ([]entity.Invoice, int, error)
	UpdateInvoice(ctx context.Context, id uuid.UUID, inv entity.Invoice) (entity.Invoice, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, target entity.InvoiceStatus) (entity.Invoice, error)
	DeleteInvoice(ctx context.Context, id uuid.UUID) error
	InvoiceStats(ctx context.Context) (entity.InvoiceStats, error)
}

type Handler struct {
	s Service
}

func NewHandler(s Service) *Handler {
	return &Handler{
		s: s,
	}
}

type InvoiceItemPayload struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
}

type InvoiceRequest struct {
	InvoiceNumber string               `json:"invoiceNumber"`
	ClientName    string               `json:"clientName"`
	ClientEmail   string               `json:"clientEmail"`
	ClientAddress string               `json:"clientAddress"`
	IssueDate     time.Time            `json:"issueDate"`
	DueDate       time.Time            `json:"dueDate"`
	Items         []InvoiceItemPayload `json:"items"`
	TaxRate       decimal.Decimal      `json:"taxRate"`
	Notes         string               `json:"notes"`
	LogoURL       string               `json:"logoUrl"`
	LogoPosition  string               `json:"logoPosition"`
}

func (r InvoiceRequest) toEntity() entity.Invoice {
	items := make([]entity.InvoiceItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, entity.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
		})
	}

	return entity.Invoice{
		InvoiceNumber: r.InvoiceNumber,
		ClientName:    r.ClientName,
		ClientEmail:   r.ClientEmail,
		ClientAddress: r.ClientAddress,
		IssueDate:     r.IssueDate,
		DueDate:       r.DueDate,
		Items:         items,
		TaxRate:       r.TaxRate,
		Notes:         r.Notes,
		LogoURL:       r.LogoURL,
		LogoPosition:  entity.LogoPosition(r.LogoPosition),
	}
}

type InvoiceItemEntity struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	Rate        string `json:"rate"`
	Amount      string `json:"amount"`
}

type InvoiceEntity struct {
	ID            string              `json:"id"`
	InvoiceNumber string              `json:"invoiceNumber"`
	ClientName    string              `json:"clientName"`
	ClientEmail   string              `json:"clientEmail,omitempty"`
	ClientAddress string              `json:"clientAddress,omitempty"`
	IssueDate     time.Time           `json:"issueDate"`
	DueDate       time.Time           `json:"dueDate"`
	Items         []InvoiceItemEntity `json:"items"`
	Subtotal      string              `json:"subtotal"`
	TaxRate       string              `json:"taxRate"`
	TaxAmount     string              `json:"taxAmount"`
	Total         string              `json:"total"`
	Notes         string              `json:"notes,omitempty"`
	LogoURL       string              `json:"logoUrl,omitempty"`
	LogoPosition  string              `json:"logoPosition"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func invoiceToAPI(inv entity.Invoice) InvoiceEntity {
	items := make([]InvoiceItemEntity, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemEntity{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			Rate:        item.Rate.String(),
			Amount:      item.Amount.String(),
		})
	}

	return InvoiceEntity{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		ClientAddress: inv.ClientAddress,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		Items:         items,
		Subtotal:      inv.Subtotal.StringFixed(2),
		TaxRate:       inv.TaxRate.String(),
		TaxAmount:     inv.TaxAmount.StringFixed(2),
		Total:         inv.Total.StringFixed(2),
		Notes:         inv.Notes,
		LogoURL:       inv.LogoURL,
		LogoPosition:  inv.LogoPosition.String(),
		Status:        inv.Status.String(),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// CreateInvoice creates a draft invoice for the authenticated user
// @Summary Create invoice
// @Description Validates the candidate invoice, computes totals and stores it in draft status
// @Tags invoices
// @Accept json
// @Produce json
// @Param InvoiceRequest body InvoiceRequest true "Invoice creation request"
// @Success 201 {object} InvoiceEntity
// @Failure 400 {object} ErrorResponse "Invalid JSON"
// @Failure 409 {object} ErrorResponse "Invoice number already in use"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Failure 500 {object} ErrorResponse "Failed to create invoice"
// @Router /invoices [post]
// @Security BearerAuth
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req InvoiceRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "invalid JSON")
		return
	}

	inv, err := h.s.CreateInvoice(ctx, req.toEntity())
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidField):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "validation failed")
		case errors.Is(err, entity.ErrDuplicateInvoiceNumber):
			SendJSONErr(ctx, w, http.StatusConflict, err, "invoice number already in use")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to create invoice")
		}

		return
	}

	SendJSON(ctx, w, http.StatusCreated, invoiceToAPI(inv))
}

type InvoicesResponse struct {
	Invoices   []InvoiceEntity `json:"invoices"`
	TotalCount int             `json:"totalCount"`
}

// Invoices lists the authenticated user's invoices
// @Summary List invoices
// @Description Lists invoices with optional status filter, sorting and pagination
// @Tags invoices
// @Produce json
// @Param status query string false "Filter by status (draft, sent, paid, overdue, cancelled)"
// @Param sortBy query string false "Sort column (invoice_number, due_date, total, created_at)"
// @Param orderBy query string false "Sort order (asc, desc)"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} InvoicesResponse
// @Failure 422 {object} ErrorResponse "Unknown status value"
// @Failure 500 {object} ErrorResponse "Failed to list invoices"
// @Router /invoices [get]
// @Security BearerAuth
func (h *Handler) Invoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseInvoiceFilter(r.URL.Query())
	if err != nil {
		SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "invalid filter")
		return
	}

	invoices, totalCount, err := h.s.Invoices(ctx, filter)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to list invoices")
		return
	}

	res := make([]InvoiceEntity, 0, len(invoices))
	for _, inv := range invoices {
		res = append(res, invoiceToAPI(inv))
	}

	SendJSON(ctx, w, http.StatusOK, InvoicesResponse{Invoices: res, TotalCount: totalCount})
}

func parseInvoiceFilter(url url.Values) (entity.InvoiceFilter, error) {
	const (
		defaultLimit uint64 = 20
		maxLimit     uint64 = 100
		defaultPage  uint64 = 1
	)

	qStatus := url.Get("status")
	qLimit := url.Get("limit")
	qPage := url.Get("page")
	sortBy := entity.InvoiceSortCol(url.Get("sortBy"))
	orderBy := entity.OrderByCol(url.Get("orderBy"))

	limit, err := strconv.ParseUint(qLimit, 10, 64)
	if err != nil {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	page, err := strconv.ParseUint(qPage, 10, 64)
	if err != nil {
		page = defaultPage
	}

	if !sortBy.IsValid() {
		sortBy = entity.SortByCreatedAt
	}

	if !orderBy.IsValid() {
		orderBy = entity.DESC
	}

	filter := entity.InvoiceFilter{
		Page:    page,
		Limit:   limit,
		SortBy:  sortBy,
		OrderBy: orderBy,
	}

	if qStatus != "" {
		status := entity.InvoiceStatus(qStatus)
		if !status.IsValid() {
			return entity.InvoiceFilter{}, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidField, qStatus)
		}

		filter.Status = &status
	}

	return filter, nil
}

// Invoice returns one invoice by id
// @Summary Get invoice
// @Tags invoices
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Success 200 {object} InvoiceEntity
// @Failure 400 {object} ErrorResponse "'id' must be a UUID"
// @Failure 404 {object} ErrorResponse "Invoice not found"
// @Failure 500 {object} ErrorResponse "Failed to get invoice"
// @Router /invoices/{id} [get]
// @Security BearerAuth
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'id' must be a UUID")
		return
	}

	inv, err := h.s.Invoice(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "invoice not found")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to get invoice")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, invoiceToAPI(inv))
}

// UpdateInvoice replaces a draft invoice's fields
// @Summary Update invoice
// @Description Whole-record update of a draft invoice; totals are recomputed
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Param InvoiceRequest body InvoiceRequest true "Invoice update request"
// @Success 200 {object} InvoiceEntity
// @Failure 400 {object} ErrorResponse "Invalid JSON or id"
// @Failure 404 {object} ErrorResponse "Invoice not found"
// @Failure 409 {object} ErrorResponse "Not a draft, or invoice number already in use"
// @Failure 422 {object} ErrorResponse "Validation failed"
// @Failure 500 {object} ErrorResponse "Failed to update invoice"
// @Router /invoices/{id} [put]
// @Security BearerAuth
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'id' must be a UUID")
		return
	}

	var req InvoiceRequest

	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "invalid JSON")
		return
	}

	inv, err := h.s.UpdateInvoice(ctx, id, req.toEntity())
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "invoice not found")
		case errors.Is(err, entity.ErrInvalidField):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "validation failed")
		case errors.Is(err, entity.ErrInvalidTransition):
			SendJSONErr(ctx, w, http.StatusConflict, err, "only draft invoices can be edited")
		case errors.Is(err, entity.ErrDuplicateInvoiceNumber):
			SendJSONErr(ctx, w, http.StatusConflict, err, "invoice number already in use")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to update invoice")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, invoiceToAPI(inv))
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// ChangeStatus performs a manual status transition
// @Summary Change invoice status
// @Description Moves the invoice along its lifecycle; paid and cancelled are terminal
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID (UUID)"
// @Param ChangeStatusRequest body ChangeStatusRequest true "Target status"
// @Success 200 {object} InvoiceEntity
// @Failure 400 {object} ErrorResponse "Invalid JSON or id"
// @Failure 404 {object} ErrorResponse "Invoice not found"
// @Failure 409 {object} ErrorResponse "Transition not allowed"
// @Failure 422 {object} ErrorResponse "Unknown status value"
// @Failure 500 {object} ErrorResponse "Failed to change status"
// @Router /invoices/{id}/status [post]
// @Security BearerAuth
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'id' must be a UUID")
		return
	}

	var req ChangeStatusRequest

	err = json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "invalid JSON")
		return
	}

	inv, err := h.s.ChangeStatus(ctx, id, entity.InvoiceStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrNotFound):
			SendJSONErr(ctx, w, http.StatusNotFound, err, "invoice not found")
		case errors.Is(err, entity.ErrInvalidField):
			SendJSONErr(ctx, w, http.StatusUnprocessableEntity, err, "unknown status value")
		case errors.Is(err, entity.ErrInvalidTransition):
			SendJSONErr(ctx, w, http.StatusConflict, err, "transition not allowed")
		default:
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to change status")
		}

		return
	}

	SendJSON(ctx, w, http.StatusOK, invoiceToAPI(inv))
}

// DeleteInvoice removes an invoice
// @Summary Delete invoice
// @Description Deletes the invoice unconditionally, whatever its status
// @Tags invoices
// @Param id path string true "Invoice ID (UUID)"
// @Success 204 "Deleted"
// @Failure 400 {object} ErrorResponse "'id' must be a UUID"
// @Failure 404 {object} ErrorResponse "Invoice not found"
// @Failure 500 {object} ErrorResponse "Failed to delete invoice"
// @Router /invoices/{id} [delete]
// @Security BearerAuth
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusBadRequest, err, "'id' must be a UUID")
		return
	}

	err = h.s.DeleteInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			SendJSONErr(ctx, w, http.StatusNotFound, err, "invoice not found")
		} else {
			SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to delete invoice")
		}

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type InvoiceStatsResponse struct {
	TotalInvoices   int64  `json:"totalInvoices"`
	PaidInvoices    int64  `json:"paidInvoices"`
	DraftInvoices   int64  `json:"draftInvoices"`
	SentInvoices    int64  `json:"sentInvoices"`
	OverdueInvoices int64  `json:"overdueInvoices"`
	PendingInvoices int64  `json:"pendingInvoices"`
	TotalRevenue    string `json:"totalRevenue"`
	PendingAmount   string `json:"pendingAmount"`
}

// InvoiceStats returns the dashboard aggregates for the authenticated user
// @Summary Invoice statistics
// @Tags invoices
// @Produce json
// @Success 200 {object} InvoiceStatsResponse
// @Failure 500 {object} ErrorResponse "Failed to get stats"
// @Router /invoices/stats [get]
// @Security BearerAuth
func (h *Handler) InvoiceStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.s.InvoiceStats(ctx)
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "failed to get stats")
		return
	}

	SendJSON(ctx, w, http.StatusOK, InvoiceStatsResponse{
		TotalInvoices:   stats.TotalCount,
		PaidInvoices:    stats.PaidCount,
		DraftInvoices:   stats.DraftCount,
		SentInvoices:    stats.SentCount,
		OverdueInvoices: stats.OverdueCount,
		PendingInvoices: stats.PendingCount,
		TotalRevenue:    stats.PaidTotal.StringFixed(2),
		PendingAmount:   stats.PendingAmount.StringFixed(2),
	})
}

// HealthHandler returns service health status.
// @Summary Health check
// @Tags health
// @Produce text/plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	_, err := w.Write([]byte("OK\n"))
	if err != nil {
		SendJSONErr(ctx, w, http.StatusInternalServerError, err, "not healthy")
		return
	}
}
