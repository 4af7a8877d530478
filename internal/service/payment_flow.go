package service

import (
	"github.com/paycore/internal/constants"
)

// FlowOp names one lifecycle operation against a payment.
type FlowOp string

const (
	FlowAuthorize FlowOp = "authorize"
	FlowSale      FlowOp = "sale" // authorize+capture in one gateway call
	FlowCapture   FlowOp = "capture"
	FlowCancel    FlowOp = "cancel"
	FlowSettle    FlowOp = "settle"
	FlowTerminate FlowOp = "terminate"
)

// flowTransition describes where one (status, operation) pair may go.
// Pending is the intermediate status held while the gateway call is in
// flight inside the transaction; empty means the operation keeps the
// current status until the outcome lands.
type flowTransition struct {
	Pending   string
	OnSuccess string
	OnFailure string
}

// flowTable is the canonical transition table. Every status change in the
// system funnels through this table; handlers never hand-roll status
// checks. A (status, op) pair absent from the table is a state conflict.
var flowTable = map[FlowOp]map[string]flowTransition{
	FlowAuthorize: {
		constants.PaymentStatusAuthorizing: {
			OnSuccess: constants.PaymentStatusAuthorized,
			OnFailure: constants.PaymentStatusDeclined,
		},
	},
	FlowSale: {
		constants.PaymentStatusAuthCapturing: {
			OnSuccess: constants.PaymentStatusCaptured,
			OnFailure: constants.PaymentStatusDeclined,
		},
		// A suspended payment re-released for charging behaves like a
		// fresh auth+capture.
		constants.PaymentStatusSuspended: {
			Pending:   constants.PaymentStatusAuthCapturing,
			OnSuccess: constants.PaymentStatusCaptured,
			OnFailure: constants.PaymentStatusDeclined,
		},
	},
	FlowCapture: {
		constants.PaymentStatusAuthorized: {
			OnSuccess: constants.PaymentStatusCaptured,
			OnFailure: constants.PaymentStatusDeclined,
		},
	},
	FlowCancel: {
		constants.PaymentStatusAuthorized: {
			Pending:   constants.PaymentStatusCancelling,
			OnSuccess: constants.PaymentStatusCancelled,
			OnFailure: constants.PaymentStatusDeclined,
		},
		constants.PaymentStatusCaptured: {
			Pending:   constants.PaymentStatusCancelling,
			OnSuccess: constants.PaymentStatusCancelled,
			OnFailure: constants.PaymentStatusDeclined,
		},
		constants.PaymentStatusCancelling: {
			OnSuccess: constants.PaymentStatusCancelled,
			OnFailure: constants.PaymentStatusDeclined,
		},
	},
	FlowSettle: {
		constants.PaymentStatusCaptured: {
			OnSuccess: constants.PaymentStatusSettled,
			OnFailure: constants.PaymentStatusCaptured,
		},
	},
	FlowTerminate: {
		constants.PaymentStatusSuspended: {
			OnSuccess: constants.PaymentStatusTerminated,
			OnFailure: constants.PaymentStatusSuspended,
		},
	},
}

// flowLookup returns the transition for (op, status), or a state-conflict
// error when the pair is illegal.
func flowLookup(op FlowOp, status string) (flowTransition, error) {
	byStatus, ok := flowTable[op]
	if !ok {
		return flowTransition{}, ErrPaymentStateConflict
	}
	transition, ok := byStatus[status]
	if !ok {
		if op == FlowTerminate {
			return flowTransition{}, ErrTerminateNotSuspended
		}
		return flowTransition{}, ErrPaymentStateConflict
	}
	return transition, nil
}

// FlowNext resolves the status a payment moves to after the operation's
// outcome is known.
func FlowNext(op FlowOp, current string, success bool) (string, error) {
	transition, err := flowLookup(op, current)
	if err != nil {
		return "", err
	}
	if success {
		return transition.OnSuccess, nil
	}
	return transition.OnFailure, nil
}

// FlowPending resolves the intermediate status held while the gateway call
// is in flight; falls back to the current status when the operation has no
// intermediate state.
func FlowPending(op FlowOp, current string) (string, error) {
	transition, err := flowLookup(op, current)
	if err != nil {
		return "", err
	}
	if transition.Pending != "" {
		return transition.Pending, nil
	}
	return current, nil
}

// FlowAllowed reports whether the operation is legal from the status.
func FlowAllowed(op FlowOp, current string) bool {
	_, err := flowLookup(op, current)
	return err == nil
}

// IsTerminalStatus reports whether a status is write-once.
func IsTerminalStatus(status string) bool {
	switch status {
	case constants.PaymentStatusDeclined,
		constants.PaymentStatusCancelled,
		constants.PaymentStatusTerminated,
		constants.PaymentStatusCredited,
		constants.PaymentStatusSettled,
		constants.PaymentStatusReturned:
		return true
	}
	return false
}
