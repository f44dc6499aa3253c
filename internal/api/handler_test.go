package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/invoicesnap/invoicesnap/internal/api"
	"github.com/invoicesnap/invoicesnap/internal/entity"
	"github.com/invoicesnap/invoicesnap/internal/mocks"
)

const testJWTSecret = "dev"

type Tester struct {
	t           *testing.T
	server      *httptest.Server
	serviceMock *mocks.MockService
	userID      uuid.UUID
	token       string
}

func NewTester(t *testing.T) *Tester {
	t.Helper()

	ctrl := gomock.NewController(t)
	serviceMock := mocks.NewMockService(ctrl)

	handler := api.NewHandler(serviceMock)
	mw := api.NewMiddleware(testJWTSecret)

	server := httptest.NewServer(api.NewRouter(handler, mw))
	t.Cleanup(server.Close)

	userID := uuid.Must(uuid.NewV4())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID.String(),
		"email": "user@example.com",
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	return &Tester{
		t:           t,
		server:      server,
		serviceMock: serviceMock,
		userID:      userID,
		token:       token,
	}
}

func (c *Tester) do(method, path string, body any) *http.Response {
	c.t.Helper()

	var reqBody io.Reader

	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)

		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reqBody)
	require.NoError(c.t, err)

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))

	return v
}

func testInvoiceRequest() api.InvoiceRequest {
	return api.InvoiceRequest{
		InvoiceNumber: "INV-001",
		ClientName:    "Acme Corp",
		ClientEmail:   "billing@acme.example.com",
		IssueDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Items: []api.InvoiceItemPayload{
			{Description: "Design work", Quantity: decimal.RequireFromString("2"), Rate: decimal.RequireFromString("50")},
			{Description: "Hosting", Quantity: decimal.RequireFromString("1"), Rate: decimal.RequireFromString("25")},
		},
		TaxRate: decimal.RequireFromString("10"),
	}
}

func TestHandler_CreateInvoice(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	now := time.Now().Truncate(time.Second).UTC()

	want := entity.Invoice{
		ID:            uuid.Must(uuid.NewV4()),
		UserID:        c.userID,
		InvoiceNumber: "INV-001",
		ClientName:    "Acme Corp",
		ClientEmail:   "billing@acme.example.com",
		IssueDate:     time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Items: []entity.InvoiceItem{
			{
				Description: "Design work",
				Quantity:    decimal.RequireFromString("2"),
				Rate:        decimal.RequireFromString("50"),
				Amount:      decimal.RequireFromString("100"),
			},
			{
				Description: "Hosting",
				Quantity:    decimal.RequireFromString("1"),
				Rate:        decimal.RequireFromString("25"),
				Amount:      decimal.RequireFromString("25"),
			},
		},
		Subtotal:     decimal.RequireFromString("125"),
		TaxRate:      decimal.RequireFromString("10"),
		TaxAmount:    decimal.RequireFromString("12.50"),
		Total:        decimal.RequireFromString("137.50"),
		LogoPosition: entity.LogoPositionRight,
		Status:       entity.InvoiceStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	c.serviceMock.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(want, nil)

	resp := c.do(http.MethodPost, "/api/invoices", testInvoiceRequest())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := decodeBody[api.InvoiceEntity](t, resp)
	require.Equal(t, want.ID.String(), got.ID)
	require.Equal(t, "INV-001", got.InvoiceNumber)
	require.Equal(t, "draft", got.Status)
	require.Equal(t, "125.00", got.Subtotal)
	require.Equal(t, "12.50", got.TaxAmount)
	require.Equal(t, "137.50", got.Total)
	require.Len(t, got.Items, 2)
	require.Equal(t, "100", got.Items[0].Amount)
}

func TestHandler_CreateInvoice_Validation(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	c.serviceMock.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).
		Return(entity.Invoice{}, fmt.Errorf("%w: at least one line item is required", entity.ErrInvalidField))

	req := testInvoiceRequest()
	req.Items = nil

	resp := c.do(http.MethodPost, "/api/invoices", req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandler_CreateInvoice_DuplicateNumber(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	c.serviceMock.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).
		Return(entity.Invoice{}, fmt.Errorf("%w: INV-001", entity.ErrDuplicateInvoiceNumber))

	resp := c.do(http.MethodPost, "/api/invoices", testInvoiceRequest())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_CreateInvoice_BadJSON(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/api/invoices", bytes.NewBufferString("{not json"))
	require.NoError(t, err)

	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_CreateInvoice_NoToken(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	req, err := http.NewRequest(http.MethodPost, c.server.URL+"/api/invoices", nil)
	require.NoError(t, err)

	resp, err := c.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_Invoices(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	sent := entity.InvoiceStatusSent

	wantFilter := entity.InvoiceFilter{
		Status:  &sent,
		Page:    2,
		Limit:   10,
		SortBy:  entity.SortByDueDate,
		OrderBy: entity.ASC,
	}

	invoices := []entity.Invoice{
		{ID: uuid.Must(uuid.NewV4()), InvoiceNumber: "INV-001", Status: sent},
		{ID: uuid.Must(uuid.NewV4()), InvoiceNumber: "INV-002", Status: sent},
	}

	c.serviceMock.EXPECT().Invoices(gomock.Any(), wantFilter).Return(invoices, 12, nil)

	resp := c.do(http.MethodGet, "/api/invoices?status=sent&page=2&limit=10&sortBy=due_date&orderBy=asc", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[api.InvoicesResponse](t, resp)
	require.Equal(t, 12, got.TotalCount)
	require.Len(t, got.Invoices, 2)
	require.Equal(t, "INV-001", got.Invoices[0].InvoiceNumber)
}

func TestHandler_Invoices_Defaults(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	wantFilter := entity.InvoiceFilter{
		Page:    1,
		Limit:   20,
		SortBy:  entity.SortByCreatedAt,
		OrderBy: entity.DESC,
	}

	c.serviceMock.EXPECT().Invoices(gomock.Any(), wantFilter).Return([]entity.Invoice{}, 0, nil)

	resp := c.do(http.MethodGet, "/api/invoices", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_Invoices_UnknownStatus(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	resp := c.do(http.MethodGet, "/api/invoices?status=archived", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandler_Invoice_NotFound(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	id := uuid.Must(uuid.NewV4())

	c.serviceMock.EXPECT().Invoice(gomock.Any(), id).
		Return(entity.Invoice{}, fmt.Errorf("get invoice %s: %w", id, entity.ErrNotFound))

	resp := c.do(http.MethodGet, "/api/invoices/"+id.String(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Invoice_BadID(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	resp := c.do(http.MethodGet, "/api/invoices/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_UpdateInvoice_NotDraft(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	id := uuid.Must(uuid.NewV4())

	c.serviceMock.EXPECT().UpdateInvoice(gomock.Any(), id, gomock.Any()).
		Return(entity.Invoice{}, fmt.Errorf("%w: invoice %s is %q, only drafts can be edited",
			entity.ErrInvalidTransition, id, entity.InvoiceStatusSent))

	resp := c.do(http.MethodPut, "/api/invoices/"+id.String(), testInvoiceRequest())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_ChangeStatus(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	id := uuid.Must(uuid.NewV4())

	want := entity.Invoice{
		ID:            id,
		InvoiceNumber: "INV-001",
		Status:        entity.InvoiceStatusSent,
		LogoPosition:  entity.LogoPositionRight,
	}

	c.serviceMock.EXPECT().ChangeStatus(gomock.Any(), id, entity.InvoiceStatusSent).Return(want, nil)

	resp := c.do(http.MethodPost, "/api/invoices/"+id.String()+"/status", api.ChangeStatusRequest{Status: "sent"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[api.InvoiceEntity](t, resp)
	require.Equal(t, "sent", got.Status)
}

func TestHandler_ChangeStatus_NotAllowed(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	id := uuid.Must(uuid.NewV4())

	c.serviceMock.EXPECT().ChangeStatus(gomock.Any(), id, entity.InvoiceStatusSent).
		Return(entity.Invoice{}, fmt.Errorf("%w: %s -> %s",
			entity.ErrInvalidTransition, entity.InvoiceStatusPaid, entity.InvoiceStatusSent))

	resp := c.do(http.MethodPost, "/api/invoices/"+id.String()+"/status", api.ChangeStatusRequest{Status: "sent"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandler_DeleteInvoice(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	id := uuid.Must(uuid.NewV4())

	c.serviceMock.EXPECT().DeleteInvoice(gomock.Any(), id).Return(nil)

	resp := c.do(http.MethodDelete, "/api/invoices/"+id.String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestHandler_InvoiceStats(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	stats := entity.InvoiceStats{
		TotalCount:    5,
		PaidCount:     2,
		DraftCount:    1,
		SentCount:     1,
		OverdueCount:  1,
		PendingCount:  3,
		PaidTotal:     decimal.RequireFromString("275.00"),
		PendingAmount: decimal.RequireFromString("412.50"),
	}

	c.serviceMock.EXPECT().InvoiceStats(gomock.Any()).Return(stats, nil)

	resp := c.do(http.MethodGet, "/api/invoices/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decodeBody[api.InvoiceStatsResponse](t, resp)
	require.Equal(t, int64(5), got.TotalInvoices)
	require.Equal(t, int64(3), got.PendingInvoices)
	require.Equal(t, "275.00", got.TotalRevenue)
	require.Equal(t, "412.50", got.PendingAmount)
}

func TestHandler_HealthHandler(t *testing.T) {
	t.Parallel()

	c := NewTester(t)

	resp, err := c.server.Client().Get(c.server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}
