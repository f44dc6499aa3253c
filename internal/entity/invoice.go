package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}

	return false
}

// transitions holds the allowed status moves. Paid and cancelled are terminal.
var transitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:    {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// CanTransitionTo reports whether a manual status change from s to target is
// allowed. Transitions are never derived from dueDate on read paths; an external
// actor must request them.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, allowed := range transitions[s] {
		if target == allowed {
			return true
		}
	}

	return false
}

type LogoPosition string

const (
	LogoPositionLeft   LogoPosition = "left"
	LogoPositionCenter LogoPosition = "center"
	LogoPositionRight  LogoPosition = "right"
)

func (p LogoPosition) String() string {
	return string(p)
}

func (p LogoPosition) IsValid() bool {
	switch p {
	case LogoPositionLeft, LogoPositionCenter, LogoPositionRight:
		return true
	}

	return false
}

// InvoiceItem is one billable entry. Amount is always derived from Quantity and
// Rate; it is recomputed on every write and never taken from the caller.
type InvoiceItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

type Invoice struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	InvoiceNumber string
	ClientName    string
	ClientEmail   string
	ClientAddress string
	IssueDate     time.Time
	DueDate       time.Time
	Items         []InvoiceItem
	Subtotal      decimal.Decimal
	TaxRate       decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
	Notes         string
	LogoURL       string
	LogoPosition  LogoPosition
	Status        InvoiceStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var oneHundred = decimal.New(100, 0)

// ItemAmount returns quantity * rate rounded to 2 decimal places.
func ItemAmount(quantity, rate decimal.Decimal) decimal.Decimal {
	return quantity.Mul(rate).Round(2)
}

// CalculateTotals derives per-item amounts and the invoice totals from the items
// and tax rate. Stored totals are replaced, never read, so recomputing is
// idempotent. Sign validation is the caller's job.
func (i *Invoice) CalculateTotals() {
	subtotal := decimal.Zero

	for idx := range i.Items {
		i.Items[idx].Amount = ItemAmount(i.Items[idx].Quantity, i.Items[idx].Rate)
		subtotal = subtotal.Add(i.Items[idx].Amount)
	}

	i.Subtotal = subtotal
	i.TaxAmount = subtotal.Mul(i.TaxRate).Div(oneHundred).Round(2)
	i.Total = i.Subtotal.Add(i.TaxAmount)
}

// InvoiceStats is the owner-scoped dashboard aggregate. Pending covers the
// non-terminal statuses (draft, sent, overdue).
type InvoiceStats struct {
	TotalCount    int64
	PaidCount     int64
	DraftCount    int64
	SentCount     int64
	OverdueCount  int64
	PendingCount  int64
	PaidTotal     decimal.Decimal
	PendingAmount decimal.Decimal
}
