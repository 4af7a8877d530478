package handlers

import (
	"errors"

	"github.com/paycore/internal/http/response"
	"github.com/paycore/internal/service"
)

// mapServiceError translates service sentinels into response errors.
func mapServiceError(err error) *response.AppError {
	switch {
	case err == nil:
		return nil

	// Validation.
	case errors.Is(err, service.ErrAmountInvalid),
		errors.Is(err, service.ErrMethodAccountMismatch),
		errors.Is(err, service.ErrMethodNotChargeable),
		errors.Is(err, service.ErrCancelNotAllowed),
		errors.Is(err, service.ErrRefundWindowExceeded),
		errors.Is(err, service.ErrRefundAmountInvalid),
		errors.Is(err, service.ErrPrimaryMethodDelete),
		errors.Is(err, service.ErrPaymentAccountMismatch):
		return response.BadRequest(err.Error())

	// Lookup misses.
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrPaymentMethodNotFound),
		errors.Is(err, service.ErrGatewayNotFound):
		return response.NotFound(err.Error())

	// State conflicts.
	case errors.Is(err, service.ErrPaymentStateConflict),
		errors.Is(err, service.ErrTerminateNotSuspended),
		errors.Is(err, service.ErrPaymentAlreadySettled),
		errors.Is(err, service.ErrAuthorizationExpired):
		return response.Conflict(err.Error())

	// Gateway failures.
	case errors.Is(err, service.ErrGatewayCommunication),
		errors.Is(err, service.ErrCancellationFailed):
		return response.GatewayFailure(err.Error())

	default:
		return response.Internal(err.Error())
	}
}
