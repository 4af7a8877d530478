// Package event defines the outbound domain-event contract. The core emits
// these after the owning database transaction commits; notification and
// reporting collaborators consume them off the queue. The payload schema per
// kind is fixed here so the core's contract does not depend on listener
// behavior.
package event

import (
	"github.com/paycore/internal/constants"
)

// Event kinds, re-exported for consumers.
const (
	KindAttempted  = constants.EventPaymentAttempted
	KindSkipped    = constants.EventPaymentSkipped
	KindSuspended  = constants.EventPaymentSuspended
	KindTerminated = constants.EventPaymentTerminated
	KindReturned   = constants.EventPaymentReturned
	KindSettled    = constants.EventPaymentSettled
	KindScheduled  = constants.EventPaymentScheduled
)

// AttemptedPayload reports one finished gateway attempt, success or decline.
type AttemptedPayload struct {
	PaymentID uint   `json:"payment_id"`
	AccountID uint   `json:"account_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Operation string `json:"operation"` // transaction type of the attempt
	Initiator string `json:"initiator"` // api / batch
	Amount    int64  `json:"amount"`    // minor units
	Message   string `json:"message,omitempty"`
}

// SkippedPayload reports one batch unit that failed an eligibility gate.
// A skip is not an error; the unit simply was not charged this run.
type SkippedPayload struct {
	AccountID uint   `json:"account_id"`
	AreaID    int    `json:"area_id"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

// SuspendedPayload reports a payment parked for manual review instead of
// being charged.
type SuspendedPayload struct {
	PaymentID         uint   `json:"payment_id"`
	OriginalPaymentID uint   `json:"original_payment_id"`
	AccountID         uint   `json:"account_id"`
	Reason            string `json:"reason"`
}

// TerminatedPayload reports a suspended payment permanently cancelled.
type TerminatedPayload struct {
	PaymentID    uint   `json:"payment_id"`
	AccountID    uint   `json:"account_id"`
	TerminatedBy string `json:"terminated_by"`
}

// ReturnedPayload reports an ACH return: a new row superseding the settled
// original.
type ReturnedPayload struct {
	OriginalPaymentID uint `json:"original_payment_id"`
	ReturnedPaymentID uint `json:"returned_payment_id"`
	AccountID         uint `json:"account_id"`
}

// SettledPayload reports ACH funds confirmed cleared.
type SettledPayload struct {
	PaymentID uint `json:"payment_id"`
	AccountID uint `json:"account_id"`
}

// ScheduledPayload reports one discovery run and how many units it
// dispatched.
type ScheduledPayload struct {
	JobKind         string `json:"job_kind"`
	AreaID          int    `json:"area_id"`
	UnitsDispatched int    `json:"units_dispatched"`
}
