package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error below wraps exactly one of these so the HTTP
// layer can classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
)

var (
	ErrOrderNotFound     = fmt.Errorf("order %w", ErrNotFound)
	ErrOrderItemNotFound = fmt.Errorf("order item %w", ErrNotFound)
	ErrMenuItemNotFound  = fmt.Errorf("menu item %w", ErrNotFound)
	ErrPaymentNotFound   = fmt.Errorf("payment %w", ErrNotFound)

	ErrOrderNotConfirmed    = fmt.Errorf("%w: order must be confirmed to start preparation", ErrInvalidState)
	ErrOrderNotPreparing    = fmt.Errorf("%w: order must be preparing to complete preparation", ErrInvalidState)
	ErrPaymentNotRefundable = fmt.Errorf("%w: only completed payments can be refunded", ErrInvalidState)

	ErrEmptyItems          = fmt.Errorf("%w: items are required", ErrValidation)
	ErrInvalidOrderType    = fmt.Errorf("%w: invalid order_type", ErrValidation)
	ErrInvalidOrderStatus  = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidQuantity     = fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be > 0", ErrValidation)
	ErrInvalidTip          = fmt.Errorf("%w: tip_amount must be >= 0", ErrValidation)
	ErrInvalidPrecision    = fmt.Errorf("%w: money amounts allow at most 2 decimal places", ErrValidation)
	ErrInvalidMethod       = fmt.Errorf("%w: invalid payment_method", ErrValidation)
	ErrEmptySplit          = fmt.Errorf("%w: at least one payment is required", ErrValidation)
	ErrRefundExceedsAmount = fmt.Errorf("%w: refund amount exceeds payment amount", ErrValidation)
	ErrInvalidRefund       = fmt.Errorf("%w: refund amount must be > 0", ErrValidation)
	ErrInvalidDateRange    = fmt.Errorf("%w: date_to must be after date_from", ErrValidation)
	ErrInvalidMetadata     = fmt.Errorf("%w: order_metadata must be a JSON object", ErrValidation)
)
