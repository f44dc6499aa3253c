package entity

import (
	"errors"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidField           = errors.New("invalid field")
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrUnauthenticated        = errors.New("unauthenticated")
)
