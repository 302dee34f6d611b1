package domain

import "errors"

// Expected, recoverable business conditions. Services wrap these with %w so
// the presentation layer can pick status codes with errors.Is without
// re-deriving business logic. Anything else bubbling out of a service is an
// infrastructure failure.
var (
	ErrNotFound                 = errors.New("not found")
	ErrProductDisabled          = errors.New("product is disabled")
	ErrInvalidQuantity          = errors.New("quantity must be greater than zero")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrInsufficientStock        = errors.New("insufficient stock")
	ErrEmptyCart                = errors.New("cart is empty")
	ErrItemNotFound             = errors.New("item not in cart")
	ErrInvalidDiscount          = errors.New("discount must be between 0 and 100")
	ErrCustomerNotFound         = errors.New("customer not found")
	ErrCustomerInactive         = errors.New("customer is inactive")
	ErrInvalidPayment           = errors.New("unknown payment method")
	ErrInvalidPrice             = errors.New("sale price must cover cost price and both must be positive")
)
