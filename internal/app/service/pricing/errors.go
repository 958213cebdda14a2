package pricing

import "errors"

var (
	// ErrValidation marks bad input: unknown or inactive products, stock not
	// available, quantity out of bounds, or an empty selection.
	ErrValidation = errors.New("invalid selection")

	// ErrPaymentMethodRange marks a payable amount outside the payment
	// method's configured range.
	ErrPaymentMethodRange = errors.New("amount outside payment method range")
)
