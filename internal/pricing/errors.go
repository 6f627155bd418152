package pricing

import (
	"errors"
	"fmt"

	"github.com/Simplici0/tierprice/internal/money"
)

// Code identifies a pricing failure or warning.
type Code string

const (
	CodeInvalidRange           Code = "InvalidRange"
	CodeOverlappingTiers       Code = "OverlappingTiers"
	CodeMultipleUnboundedTiers Code = "MultipleUnboundedTiers"
	CodeUnboundedTierNotLast   Code = "UnboundedTierNotLast"
	CodeInvalidDiscount        Code = "InvalidDiscount"
	CodeInvalidQuantity        Code = "InvalidQuantity"
	CodeTierOverlapDetected    Code = "TierOverlapDetected"
	CodeCurrencyMismatch       Code = "CurrencyMismatch"
	CodeMissingReason          Code = "MissingReason"
	CodeNonPositivePrice       Code = "NonPositivePrice"
	CodeNegativeCost           Code = "NegativeCost"
)

// Error is a typed engine failure. Two errors match under errors.Is when
// their codes are equal.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error { return e.cause }

var (
	ErrInvalidQuantity  = &Error{Code: CodeInvalidQuantity, Message: "quantity must be at least 1"}
	ErrMissingReason    = &Error{Code: CodeMissingReason, Message: "reason is required"}
	ErrNonPositivePrice = &Error{Code: CodeNonPositivePrice, Message: "price must be greater than zero"}
	ErrCurrencyMismatch = &Error{Code: CodeCurrencyMismatch, Message: "currencies differ"}
	ErrInvalidDiscount  = &Error{Code: CodeInvalidDiscount, Message: "discount must be in [0, 100)"}
	ErrNegativeCost     = &Error{Code: CodeNegativeCost, Message: "cost must not be negative"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func currencyError(err error) *Error {
	return &Error{Code: CodeCurrencyMismatch, Message: err.Error(), cause: err}
}

// CodeOf extracts the engine code carried by err, if any.
func CodeOf(err error) (Code, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code, true
	}
	if errors.Is(err, money.ErrCurrencyMismatch) {
		return CodeCurrencyMismatch, true
	}
	return "", false
}

// ValidationError describes one broken tier rule. OtherIndex is set for
// rules that involve a pair of tiers.
type ValidationError struct {
	Code       Code   `json:"code"`
	Index      int    `json:"index"`
	OtherIndex *int   `json:"otherIndex,omitempty"`
	Message    string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.OtherIndex != nil {
		return fmt.Sprintf("%s: tiers %d and %d: %s", e.Code, e.Index, *e.OtherIndex, e.Message)
	}
	return fmt.Sprintf("%s: tier %d: %s", e.Code, e.Index, e.Message)
}

// ValidationErrors lets a rejected tier set travel as a single error.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return errs[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", errs[0].Error(), len(errs)-1)
}

// Warning is a non-fatal condition surfaced alongside a successful result.
type Warning struct {
	Code        Code   `json:"code"`
	TierIndices []int  `json:"tierIndices,omitempty"`
	Message     string `json:"message"`
}
