package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by the cart and order engines either
// wraps one of these or is treated as internal.
var (
	ErrUnauthenticated = errors.New("not authorized")
	ErrForbidden       = errors.New("admin only")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidState    = errors.New("invalid state")
)

var (
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrCartNotFound    = fmt.Errorf("cart %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("item %w in cart", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)

	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be at least 1", ErrInvalidArgument)
	ErrQuantityTooLarge     = fmt.Errorf("%w: line quantity may not exceed %d", ErrInvalidArgument, MaxLineQuantity)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: unknown payment method", ErrInvalidArgument)
	ErrInvalidOrderStatus   = fmt.Errorf("%w: unknown order status", ErrInvalidArgument)
	ErrInvalidPaymentStatus = fmt.Errorf("%w: unknown payment status", ErrInvalidArgument)

	ErrEmptyCart          = fmt.Errorf("%w: cart is empty", ErrInvalidState)
	ErrProductUnavailable = fmt.Errorf("%w: product is no longer available", ErrInvalidState)
	ErrIllegalTransition  = fmt.Errorf("%w: illegal status transition", ErrInvalidState)
)

// FieldError reports a missing or malformed request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidArgument
}
