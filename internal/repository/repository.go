package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype/zeronull"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoicesnap/invoicesnap/internal/entity"
)

type Repository struct {
	db *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{
		db: pool,
	}
}

// CreateInvoice persists a new invoice. The store assigns id, created_at and
// updated_at. A unique violation on (user_id, invoice_number) maps to
// entity.ErrDuplicateInvoiceNumber; the index is the authoritative guard against
// the check-then-insert race in the service layer.
func (r *Repository) CreateInvoice(ctx context.Context, inv entity.Invoice) (entity.Invoice, error) {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("marshal items: %w", err)
	}

	const q = `
	INSERT INTO invoices (
		user_id,
		invoice_number,
		client_name,
		client_email,
		client_address,
		issue_date,
		due_date,
		items,
		subtotal,
		tax_rate,
		tax_amount,
		total,
		notes,
		logo_url,
		logo_position,
		status
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRow(
		ctx,
		q,
		inv.UserID,
		inv.InvoiceNumber,
		inv.ClientName,
		zeronull.Text(inv.ClientEmail),
		zeronull.Text(inv.ClientAddress),
		inv.IssueDate,
		inv.DueDate,
		items,
		inv.Subtotal,
		inv.TaxRate,
		inv.TaxAmount,
		inv.Total,
		zeronull.Text(inv.Notes),
		zeronull.Text(inv.LogoURL),
		inv.LogoPosition,
		inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.Invoice{}, fmt.Errorf("%w: %s", entity.ErrDuplicateInvoiceNumber, inv.InvoiceNumber)
		}

		return entity.Invoice{}, err
	}

	return inv, nil
}

// Invoice returns the invoice with the given id if it belongs to userID. A
// missing row and a row owned by another user are both entity.ErrNotFound, so
// callers cannot probe for foreign invoices.
func (r *Repository) Invoice(ctx context.Context, userID, id uuid.UUID) (entity.Invoice, error) {
	q := selectInvoice + " WHERE id = $1 AND user_id = $2"
	return scanInvoice(r.db.QueryRow(ctx, q, id, userID))
}

func (r *Repository) InvoiceByNumber(ctx context.Context, userID uuid.UUID, number string) (entity.Invoice, error) {
	q := selectInvoice + " WHERE user_id = $1 AND invoice_number = $2"
	return scanInvoice(r.db.QueryRow(ctx, q, userID, number))
}

func (r *Repository) Invoices(
	ctx context.Context,
	userID uuid.UUID,
	f entity.InvoiceFilter,
) ([]entity.Invoice, int, error) {
	stmt := sq.Select(append(invoiceCols, "COUNT(*) OVER() AS total_count")...).
		From("invoices").
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar)

	if f.Status != nil {
		stmt = stmt.Where(sq.Eq{"status": *f.Status})
	}

	stmt = stmt.
		Limit(f.Limit).
		Offset(f.Page*f.Limit - f.Limit).
		OrderBy(fmt.Sprintf("%s %s", f.SortBy, f.OrderBy))

	sql, args, err := stmt.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	invoices := make([]entity.Invoice, 0, f.Limit)

	var totalCount int

	for rows.Next() {
		var (
			inv   entity.Invoice
			items []byte
			count int
		)

		err = rows.Scan(append(invoiceDests(&inv, &items), &count)...)
		if err != nil {
			return nil, 0, err
		}

		if err := json.Unmarshal(items, &inv.Items); err != nil {
			return nil, 0, fmt.Errorf("unmarshal items: %w", err)
		}

		totalCount = count

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return invoices, totalCount, nil
}

// UpdateInvoice overwrites the mutable fields of an invoice and refreshes
// updated_at. Status is deliberately not touched here; status moves go through
// UpdateInvoiceStatus only.
func (r *Repository) UpdateInvoice(ctx context.Context, inv entity.Invoice) (entity.Invoice, error) {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return entity.Invoice{}, fmt.Errorf("marshal items: %w", err)
	}

	const q = `
	UPDATE invoices SET
		invoice_number = $1,
		client_name = $2,
		client_email = $3,
		client_address = $4,
		issue_date = $5,
		due_date = $6,
		items = $7,
		subtotal = $8,
		tax_rate = $9,
		tax_amount = $10,
		total = $11,
		notes = $12,
		logo_url = $13,
		logo_position = $14,
		updated_at = now()
	WHERE id = $15 AND user_id = $16
	RETURNING created_at, updated_at
	`

	err = r.db.QueryRow(
		ctx,
		q,
		inv.InvoiceNumber,
		inv.ClientName,
		zeronull.Text(inv.ClientEmail),
		zeronull.Text(inv.ClientAddress),
		inv.IssueDate,
		inv.DueDate,
		items,
		inv.Subtotal,
		inv.TaxRate,
		inv.TaxAmount,
		inv.Total,
		zeronull.Text(inv.Notes),
		zeronull.Text(inv.LogoURL),
		inv.LogoPosition,
		inv.ID,
		inv.UserID,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Invoice{}, entity.ErrNotFound
		}

		if isUniqueViolation(err) {
			return entity.Invoice{}, fmt.Errorf("%w: %s", entity.ErrDuplicateInvoiceNumber, inv.InvoiceNumber)
		}

		return entity.Invoice{}, err
	}

	return inv, nil
}

func (r *Repository) UpdateInvoiceStatus(ctx context.Context, userID, id uuid.UUID, status entity.InvoiceStatus) error {
	const q = `UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2 AND user_id = $3`

	result, err := r.db.Exec(ctx, q, status, id, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

// DeleteInvoice removes an invoice in any status.
func (r *Repository) DeleteInvoice(ctx context.Context, userID, id uuid.UUID) error {
	const q = `DELETE FROM invoices WHERE id = $1 AND user_id = $2`

	result, err := r.db.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func (r *Repository) InvoiceStats(ctx context.Context, userID uuid.UUID) (entity.InvoiceStats, error) {
	const q = `
	SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE status = 'paid'),
		COUNT(*) FILTER (WHERE status = 'draft'),
		COUNT(*) FILTER (WHERE status = 'sent'),
		COUNT(*) FILTER (WHERE status = 'overdue'),
		COUNT(*) FILTER (WHERE status IN ('draft', 'sent', 'overdue')),
		COALESCE(SUM(total) FILTER (WHERE status = 'paid'), 0),
		COALESCE(SUM(total) FILTER (WHERE status IN ('draft', 'sent', 'overdue')), 0)
	FROM invoices
	WHERE user_id = $1
	`

	var stats entity.InvoiceStats

	err := r.db.QueryRow(ctx, q, userID).Scan(
		&stats.TotalCount,
		&stats.PaidCount,
		&stats.DraftCount,
		&stats.SentCount,
		&stats.OverdueCount,
		&stats.PendingCount,
		&stats.PaidTotal,
		&stats.PendingAmount,
	)
	if err != nil {
		return entity.InvoiceStats{}, err
	}

	return stats, nil
}

// SentInvoicesPastDue feeds the overdue job: sent invoices whose due date has
// passed, oldest first.
func (r *Repository) SentInvoicesPastDue(ctx context.Context, limit int) (invoices []entity.Invoice, err error) {
	q := selectInvoice + " WHERE status = $1 AND due_date < now() ORDER BY due_date LIMIT $2"

	rows, err := r.db.Query(ctx, q, entity.InvoiceStatusSent, limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		inv, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, err
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invoices, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
