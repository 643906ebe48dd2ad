package models

import (
	"errors"
	"fmt"
)

// ErrOrderNotFound is returned when an order lookup misses
var ErrOrderNotFound = errors.New("order not found")

// ErrReturnNotFound is returned when a return request lookup misses
var ErrReturnNotFound = errors.New("return request not found")

// ErrWalletNotFound is returned when a wallet lookup misses
var ErrWalletNotFound = errors.New("wallet not found")

// InvalidTransitionError indicates a requested status is not reachable
// from the current status
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

// NotCancellableError carries the user-facing reason why an order can no
// longer be cancelled
type NotCancellableError struct {
	Status OrderStatus
	Reason string
}

func (e *NotCancellableError) Error() string {
	return e.Reason
}

// ReturnWindowExpiredError is returned when a return is requested after the
// post-delivery window has closed
type ReturnWindowExpiredError struct {
	WindowDays int
}

func (e *ReturnWindowExpiredError) Error() string {
	return fmt.Sprintf("return window has expired (%d days after delivery)", e.WindowDays)
}

// ConcurrentModificationError indicates the record changed between load and
// commit. The caller should reload and may retry.
type ConcurrentModificationError struct {
	Entity   string
	Expected string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s was modified concurrently (expected status %s); reload and retry", e.Entity, e.Expected)
}

// UnauthorizedError indicates the actor's role or ownership check failed
type UnauthorizedError struct {
	Role   ActorRole
	Action string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("role %s is not allowed to %s", e.Role, e.Action)
}

// RefundAlreadyIssuedError indicates the idempotence guard tripped. This is
// benign: the refund was already credited for the linked entity.
type RefundAlreadyIssuedError struct {
	LinkedEntityID string
}

func (e *RefundAlreadyIssuedError) Error() string {
	return fmt.Sprintf("refund already issued for %s", e.LinkedEntityID)
}

// ValidationError indicates a missing or malformed required field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsConcurrentModification reports whether err is a ConcurrentModificationError
func IsConcurrentModification(err error) bool {
	var target *ConcurrentModificationError
	return errors.As(err, &target)
}

// IsRefundAlreadyIssued reports whether err is a RefundAlreadyIssuedError
func IsRefundAlreadyIssued(err error) bool {
	var target *RefundAlreadyIssuedError
	return errors.As(err, &target)
}
