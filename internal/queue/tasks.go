package queue

import (
	"encoding/json"
	"time"

	"github.com/paycore/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskProcessAccountPayment charges one account's unpaid invoices.
	TaskProcessAccountPayment = constants.TaskProcessAccountPayment
	// TaskProcessRefund pushes one CRM-imported refund through the gateway.
	TaskProcessRefund = constants.TaskProcessRefund
	// TaskCheckAchStatus polls one captured ACH payment for settlement.
	TaskCheckAchStatus = constants.TaskCheckAchStatus
	// TaskEventDispatch hands one domain event to the notification side.
	TaskEventDispatch = constants.TaskEventDispatch
)

// ProcessAccountPaymentPayload is one unit of batch billing work: a single
// account together with the invoice set discovered for it. Peers never share
// a task, so one unit's failure cannot block another.
type ProcessAccountPaymentPayload struct {
	AccountID  uint   `json:"account_id"`
	AreaID     int    `json:"area_id"`
	InvoiceIDs []uint `json:"invoice_ids"`
}

// ProcessRefundPayload identifies one refund payment missing a transaction.
type ProcessRefundPayload struct {
	PaymentID uint `json:"payment_id"`
}

// CheckAchStatusPayload identifies one not-fully-settled ACH payment.
type CheckAchStatusPayload struct {
	PaymentID uint `json:"payment_id"`
}

// EventDispatchPayload carries one serialized domain event.
type EventDispatchPayload struct {
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// NewProcessAccountPaymentTask builds the per-account billing task.
func NewProcessAccountPaymentTask(payload ProcessAccountPaymentPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessAccountPayment, body), nil
}

// NewProcessRefundTask builds the per-refund task.
func NewProcessRefundTask(payload ProcessRefundPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessRefund, body), nil
}

// NewCheckAchStatusTask builds the per-payment ACH settlement poll task.
func NewCheckAchStatusTask(payload CheckAchStatusPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckAchStatus, body), nil
}

// NewEventDispatchTask builds the event hand-off task.
func NewEventDispatchTask(payload EventDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventDispatch, body), nil
}
