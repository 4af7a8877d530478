package service

import (
	"errors"
)

// Sentinel errors, grouped by how callers must treat them. Single-payment
// handlers let validation, not-found and state-conflict classes propagate as
// typed failures; batch jobs convert those same classes into skip-and-
// continue. Data-inconsistency errors are fatal everywhere: they indicate a
// bug or manual tampering, never a retryable condition.
var (
	// Validation: bad or missing input, always recoverable.
	ErrAmountInvalid          = errors.New("amount must be positive")
	ErrMethodAccountMismatch  = errors.New("payment method does not belong to account")
	ErrMethodNotChargeable    = errors.New("payment method is not chargeable")
	ErrCancelNotAllowed       = errors.New("cancel is not supported for this gateway")
	ErrRefundWindowExceeded   = errors.New("refund window exceeded")
	ErrRefundAmountInvalid    = errors.New("refund amount invalid")
	ErrPrimaryMethodDelete    = errors.New("primary payment method cannot be deleted")
	ErrPaymentAccountMismatch = errors.New("payment does not belong to account")

	// Resource not found: an id does not resolve.
	ErrAccountNotFound       = errors.New("account not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrGatewayNotFound       = errors.New("payment gateway not found")

	// State conflict: the row exists but the operation is illegal from its
	// current status.
	ErrPaymentStateConflict  = errors.New("operation not allowed from current payment status")
	ErrTerminateNotSuspended = errors.New("only suspended payments can be terminated")
	ErrPaymentAlreadySettled = errors.New("payment already settled at the gateway")
	ErrAuthorizationExpired  = errors.New("authorization expired, payment cancelled")

	// Gateway failures. A processor decline is not an error (it becomes
	// status declined); these cover the call itself going wrong.
	ErrGatewayCommunication = errors.New("gateway communication failure")
	ErrCancellationFailed   = errors.New("payment cancellation failed")

	// Data inconsistency: fatal, alerts operators.
	ErrTransactionNotFound      = errors.New("expected prior transaction not found")
	ErrTerminatedPaymentLinked  = errors.New("invoice set linked to a terminated payment")
	ErrInvoiceBalanceMismatch   = errors.New("invoice balances do not match ledger balance")
	ErrPaymentFetchFailed       = errors.New("payment fetch failed")
)

// IsDataInconsistency reports whether err belongs to the fatal class that
// must reach operators instead of being skipped.
func IsDataInconsistency(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrTerminatedPaymentLinked) ||
		errors.Is(err, ErrInvoiceBalanceMismatch)
}
