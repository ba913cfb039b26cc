package submission

import (
	"errors"
	"fmt"

	"github.com/hanbeyoglu/snelstart-order-app-sub001/internal/pricing"
)

var (
	ErrEmptyCart  = errors.New("cart is empty, nothing to submit")
	ErrNoCustomer = errors.New("no customer selected for this order")
)

// PriceViolationError blocks submission locally when any line is priced below
// its floor. It carries the floors so the caller can report exact values.
type PriceViolationError struct {
	Violations []pricing.LineViolation
}

func (e *PriceViolationError) Error() string {
	if len(e.Violations) == 1 {
		v := e.Violations[0]
		return fmt.Sprintf("price %.2f for product %s is below the floor %.2f", v.EffectivePrice, v.ProductID, v.Floor)
	}
	return fmt.Sprintf("%d line items are priced below their floor", len(e.Violations))
}
