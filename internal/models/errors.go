package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUsageExhausted    = errors.New("usage limit reached")
	ErrOrderNotCancelled = errors.New("only cancelled orders can be deleted")
	ErrOrderLocked       = errors.New("order is being updated, try again")
)

// Rule error codes surfaced to the customer or admin
const (
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeProductNotFound    = "PRODUCT_NOT_FOUND"
	CodeCouponNotFound     = "COUPON_NOT_FOUND"
	CodeCouponRejected     = "COUPON_REJECTED"
	CodeFlashSaleExhausted = "FLASH_SALE_EXHAUSTED"
	CodeOrderNotCancelled  = "ORDER_NOT_CANCELLED"
	CodeDuplicateCode      = "DUPLICATE_CODE"
	CodeOrderLocked        = "ORDER_LOCKED"
)

// RuleError is a business-rule rejection: expected, user-visible, never a system failure.
type RuleError struct {
	Code    string
	Message string
	Err     error
}

func (e *RuleError) Error() string {
	return e.Message
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// NewRuleError builds a RuleError
func NewRuleError(code, message string, err error) *RuleError {
	return &RuleError{Code: code, Message: message, Err: err}
}

// TransitionError is returned when an order status change is not allowed
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("order is already %s", e.To)
	}
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

// IsRuleRejection reports whether err is expected business behavior rather than a failure
func IsRuleRejection(err error) bool {
	var ruleErr *RuleError
	var transErr *TransitionError
	return errors.As(err, &ruleErr) || errors.As(err, &transErr)
}
