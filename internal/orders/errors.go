package orders

import "errors"

var (
	// ErrOrderNotFound is returned when the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyCompleted guards completion idempotence: re-completing an
	// order errors instead of double-applying stock and points.
	ErrAlreadyCompleted = errors.New("order already completed")
	// ErrTerminalState rejects transitions out of concluido or cancelado.
	ErrTerminalState = errors.New("order is in a terminal state")
	// ErrInvalidStatus rejects unknown status values.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrCompletionViaTransition directs callers to Complete, which owns
	// the stock and loyalty side effects.
	ErrCompletionViaTransition = errors.New("completion must go through Complete")
	// ErrEmptyOrder rejects submissions with no lines.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrInvalidQuantity rejects lines with non-positive quantities.
	ErrInvalidQuantity = errors.New("line quantity must be positive")
	// ErrInvalidCoupon rejects submissions carrying a coupon code that
	// fails validation.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrInvalidDeliveryFee rejects negative delivery fees.
	ErrInvalidDeliveryFee = errors.New("delivery fee must be non-negative")
	// ErrInvalidTotal rejects order totals that are not positive.
	ErrInvalidTotal = errors.New("order total must be positive")
)
