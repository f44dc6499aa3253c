package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/invoicesnap/invoicesnap/internal/entity"
)

var oneHundred = decimal.New(100, 0)

// validateInvoice checks the candidate fields before persistence. The
// calculator itself accepts any numbers; sign and range rules live here.
func validateInvoice(inv entity.Invoice) error {
	if inv.InvoiceNumber == "" {
		return fmt.Errorf("%w: invoice number is required", entity.ErrInvalidField)
	}

	if inv.ClientName == "" {
		return fmt.Errorf("%w: client name is required", entity.ErrInvalidField)
	}

	if len(inv.Items) == 0 {
		return fmt.Errorf("%w: at least one line item is required", entity.ErrInvalidField)
	}

	for i, item := range inv.Items {
		if item.Quantity.IsNegative() {
			return fmt.Errorf("%w: item %d quantity %s is negative", entity.ErrInvalidField, i, item.Quantity)
		}

		if item.Rate.IsNegative() {
			return fmt.Errorf("%w: item %d rate %s is negative", entity.ErrInvalidField, i, item.Rate)
		}
	}

	if inv.TaxRate.IsNegative() || inv.TaxRate.GreaterThan(oneHundred) {
		return fmt.Errorf("%w: tax rate %s is out of range [0, 100]", entity.ErrInvalidField, inv.TaxRate)
	}

	if !inv.LogoPosition.IsValid() {
		return fmt.Errorf("%w: unknown logo position %q", entity.ErrInvalidField, inv.LogoPosition)
	}

	return nil
}
