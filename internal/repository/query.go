package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype/zeronull"

	"github.com/invoicesnap/invoicesnap/internal/entity"
)

var invoiceCols = []string{
	"id",
	"user_id",
	"invoice_number",
	"client_name",
	"client_email",
	"client_address",
	"issue_date",
	"due_date",
	"items",
	"subtotal",
	"tax_rate",
	"tax_amount",
	"total",
	"notes",
	"logo_url",
	"logo_position",
	"status",
	"created_at",
	"updated_at",
}

const selectInvoice = `SELECT
		id,
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
		status,
		created_at,
		updated_at
	FROM invoices`

func invoiceDests(inv *entity.Invoice, items *[]byte) []any {
	return []any{
		&inv.ID,
		&inv.UserID,
		&inv.InvoiceNumber,
		&inv.ClientName,
		(*zeronull.Text)(&inv.ClientEmail),
		(*zeronull.Text)(&inv.ClientAddress),
		&inv.IssueDate,
		&inv.DueDate,
		items,
		&inv.Subtotal,
		&inv.TaxRate,
		&inv.TaxAmount,
		&inv.Total,
		(*zeronull.Text)(&inv.Notes),
		(*zeronull.Text)(&inv.LogoURL),
		&inv.LogoPosition,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	}
}

func scanInvoiceRow(row pgx.Row) (inv entity.Invoice, err error) {
	var items []byte

	err = row.Scan(invoiceDests(&inv, &items)...)
	if err != nil {
		return entity.Invoice{}, err
	}

	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return entity.Invoice{}, fmt.Errorf("unmarshal items: %w", err)
	}

	return inv, nil
}

func scanInvoice(row pgx.Row) (entity.Invoice, error) {
	inv, err := scanInvoiceRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Invoice{}, entity.ErrNotFound
		}

		return entity.Invoice{}, err
	}

	return inv, nil
}
