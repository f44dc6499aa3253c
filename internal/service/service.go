package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/uuid/v5"

	"github.com/invoicesnap/invoicesnap/internal/entity"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=service.go -destination=../mocks/service.go -package=mocks

type Repository interface {
	CreateInvoice(ctx context.Context, inv entity.Invoice) (entity.Invoice, error)
	Invoice(ctx context.Context, userID, id uuid.UUID) (entity.Invoice, error)
	InvoiceByNumber(ctx context.Context, userID uuid.UUID, number string) (entity.Invoice, error)
	Invoices(ctx context.Context, userID uuid.UUID, filter entity.InvoiceFilter) ([]entity.Invoice, int, error)
	UpdateInvoice(ctx context.Context, inv entity.Invoice) (entity.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, userID, id uuid.UUID, status entity.InvoiceStatus) error
	DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error
	InvoiceStats(ctx context.Context, userID uuid.UUID) (entity.InvoiceStats, error)
	SentInvoicesPastDue(ctx context.Context, limit int) ([]entity.Invoice, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// CreateInvoice validates the candidate invoice, derives its totals and persists
// it in draft status. The owner is always the authenticated caller; a UserID set
// on the candidate is ignored.
func (s *Service) CreateInvoice(ctx context.Context, inv entity.Invoice) (entity.Invoice, error) {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return entity.Invoice{}, err
	}

	inv.UserID = user.ID
	inv.Status = entity.InvoiceStatusDraft

	if inv.LogoPosition == "" {
		inv.LogoPosition = entity.LogoPositionRight
	}

	err = validateInvoice(inv)
	if err != nil {
		return entity.Invoice{}, err
	}

	// Friendly pre-check. The unique index on (user_id, invoice_number) is the
	// authoritative guard; CreateInvoice maps its violation to the same error.
	_, err = s.repo.InvoiceByNumber(ctx, user.ID, inv.InvoiceNumber)
	if err == nil {
		return entity.Invoice{}, fmt.Errorf("%w: %s", entity.ErrDuplicateInvoiceNumber, inv.InvoiceNumber)
	}

	if !errors.Is(err, entity.ErrNotFound) {
		return entity.Invoice{}, fmt.Errorf("check invoice number %q: %w", inv.InvoiceNumber, err)
	}

	inv.CalculateTotals()

	inv, err = s.repo.CreateInvoice(ctx, inv)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	slog.InfoContext(ctx, "invoice created", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)

	return inv, nil
}

func (s *Service) Invoice(ctx context.Context, id uuid.UUID) (entity.Invoice, error) {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return entity.Invoice{}, err
	}

	inv, err := s.repo.Invoice(ctx, user.ID, id)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("get invoice %s: %w", id, err)
	}

	return inv, nil
}

func (s *Service) Invoices(ctx context.Context, filter entity.InvoiceFilter) ([]entity.Invoice, int, error) {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return nil, 0, err
	}

	invoices, totalCount, err := s.repo.Invoices(ctx, user.ID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	return invoices, totalCount, nil
}

// UpdateInvoice replaces the mutable fields of a draft invoice and recomputes
// its totals. Invoices past draft only change through status transitions.
func (s *Service) UpdateInvoice(ctx context.Context, id uuid.UUID, inv entity.Invoice) (entity.Invoice, error) {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return entity.Invoice{}, err
	}

	current, err := s.repo.Invoice(ctx, user.ID, id)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("get invoice %s: %w", id, err)
	}

	if current.Status != entity.InvoiceStatusDraft {
		return entity.Invoice{}, fmt.Errorf("%w: invoice %s is %q, only drafts can be edited",
			entity.ErrInvalidTransition, id, current.Status)
	}

	inv.ID = id
	inv.UserID = user.ID
	inv.Status = current.Status

	if inv.LogoPosition == "" {
		inv.LogoPosition = entity.LogoPositionRight
	}

	err = validateInvoice(inv)
	if err != nil {
		return entity.Invoice{}, err
	}

	if inv.InvoiceNumber != current.InvoiceNumber {
		_, err = s.repo.InvoiceByNumber(ctx, user.ID, inv.InvoiceNumber)
		if err == nil {
			return entity.Invoice{}, fmt.Errorf("%w: %s", entity.ErrDuplicateInvoiceNumber, inv.InvoiceNumber)
		}

		if !errors.Is(err, entity.ErrNotFound) {
			return entity.Invoice{}, fmt.Errorf("check invoice number %q: %w", inv.InvoiceNumber, err)
		}
	}

	inv.CalculateTotals()

	inv, err = s.repo.UpdateInvoice(ctx, inv)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("update invoice %s: %w", id, err)
	}

	return inv, nil
}

// ChangeStatus performs a manual status transition. Totals are never recomputed
// here; the only effect is the status overwrite and the updated_at refresh.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, target entity.InvoiceStatus) (entity.Invoice, error) {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return entity.Invoice{}, err
	}

	if !target.IsValid() {
		return entity.Invoice{}, fmt.Errorf("%w: unknown status %q", entity.ErrInvalidField, target)
	}

	inv, err := s.repo.Invoice(ctx, user.ID, id)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("get invoice %s: %w", id, err)
	}

	if !inv.Status.CanTransitionTo(target) {
		return entity.Invoice{}, fmt.Errorf("%w: %s -> %s", entity.ErrInvalidTransition, inv.Status, target)
	}

	err = s.repo.UpdateInvoiceStatus(ctx, user.ID, id, target)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("update invoice %s status to %q: %w", id, target, err)
	}

	slog.InfoContext(ctx, "invoice status changed",
		"invoice_id", id, "from", inv.Status.String(), "to", target.String())

	inv.Status = target

	return inv, nil
}

// DeleteInvoice removes an invoice unconditionally, whatever its status.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return err
	}

	err = s.repo.DeleteInvoice(ctx, user.ID, id)
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}

	slog.InfoContext(ctx, "invoice deleted", "invoice_id", id)

	return nil
}

func (s *Service) InvoiceStats(ctx context.Context) (entity.InvoiceStats, error) {
	user, err := entity.UserFromCtx(ctx)
	if err != nil {
		return entity.InvoiceStats{}, err
	}

	stats, err := s.repo.InvoiceStats(ctx, user.ID)
	if err != nil {
		return entity.InvoiceStats{}, fmt.Errorf("get invoice stats: %w", err)
	}

	return stats, nil
}

// MarkOverdueInvoices moves sent invoices whose due date has passed to overdue.
// It runs as a scheduled job, never on read paths, and requests each move
// through the ordinary transition rules.
func (s *Service) MarkOverdueInvoices(ctx context.Context) error {
	const batchSize = 100

	invoices, err := s.repo.SentInvoicesPastDue(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("get sent invoices past due: %w", err)
	}

	var errs []error

	for _, inv := range invoices {
		if !inv.Status.CanTransitionTo(entity.InvoiceStatusOverdue) {
			continue
		}

		err = s.repo.UpdateInvoiceStatus(ctx, inv.UserID, inv.ID, entity.InvoiceStatusOverdue)
		if err != nil {
			errs = append(errs, fmt.Errorf("update invoice %s status to %q: %w",
				inv.ID, entity.InvoiceStatusOverdue, err))
			continue
		}

		slog.InfoContext(ctx, "invoice marked overdue", "invoice_id", inv.ID, "due_date", inv.DueDate)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
