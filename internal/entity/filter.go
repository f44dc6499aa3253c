package entity

type InvoiceFilter struct {
	Status  *InvoiceStatus
	Page    uint64
	Limit   uint64
	SortBy  InvoiceSortCol
	OrderBy OrderByCol
}

type InvoiceSortCol string

func (c InvoiceSortCol) String() string {
	return string(c)
}

const (
	SortByNumber    InvoiceSortCol = "invoice_number"
	SortByDueDate   InvoiceSortCol = "due_date"
	SortByTotal     InvoiceSortCol = "total"
	SortByCreatedAt InvoiceSortCol = "created_at"
)

func (c InvoiceSortCol) IsValid() bool {
	switch c {
	case SortByNumber, SortByDueDate, SortByTotal, SortByCreatedAt:
		return true
	}

	return false
}

type OrderByCol string

func (o OrderByCol) String() string {
	return string(o)
}

const (
	DESC OrderByCol = "desc"
	ASC  OrderByCol = "asc"
)

func (o OrderByCol) IsValid() bool {
	switch o {
	case DESC, ASC:
		return true
	}

	return false
}
