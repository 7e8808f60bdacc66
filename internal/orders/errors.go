package orders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrProductInactive    = errors.New("product is inactive")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrReservationExpired = errors.New("reservation expired")
)

// validationError marks bad input so handlers can answer 400 instead of 500.
type validationError struct {
	message string
}

func (e validationError) Error() string { return e.message }

func newValidationError(format string, args ...any) error {
	return validationError{message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v validationError
	return errors.As(err, &v)
}

type StockShortage struct {
	ProductID string `json:"producto_id"`
	Required  int    `json:"requerido"`
	Available int    `json:"disponible"`
}

// StockError is returned by checkout when at least one line cannot be served.
// Nothing is reserved in that case.
type StockError struct {
	Details []StockShortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, fmt.Sprintf("%s (required %d, available %d)", d.ProductID, d.Required, d.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}
