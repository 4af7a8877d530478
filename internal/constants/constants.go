package constants

// Payment lifecycle statuses. Terminal statuses are write-once: a row that
// reaches one of them is never edited again, corrections are new rows linked
// through original_payment_id.
const (
	PaymentStatusAuthorizing   = "authorizing"
	PaymentStatusAuthorized    = "authorized"
	PaymentStatusAuthCapturing = "auth_capturing"
	PaymentStatusCaptured      = "captured"
	PaymentStatusCancelling    = "cancelling"
	PaymentStatusCancelled     = "cancelled"
	PaymentStatusDeclined      = "declined"
	PaymentStatusCredited      = "credited"
	PaymentStatusSettled       = "settled"
	PaymentStatusReturned      = "returned"
	PaymentStatusSuspended     = "suspended"
	PaymentStatusTerminated    = "terminated"
)

// Payment instrument types.
const (
	PaymentTypeCC    = "cc"
	PaymentTypeACH   = "ach"
	PaymentTypeCheck = "check"
)

// Gateway names. GatewayManual marks offline instruments (checks, cash)
// that never produce a processor call.
const (
	GatewaySandbox = "sandbox"
	GatewayManual  = "manual"
)

// Transaction types, one row per gateway call outcome.
const (
	TransactionTypeAuthorize   = "authorize"
	TransactionTypeCapture     = "capture"
	TransactionTypeCancel      = "cancel"
	TransactionTypeSale        = "sale"
	TransactionTypeRefund      = "refund"
	TransactionTypeStatusCheck = "status_check"
)

// Gateway-reported ACH settlement states.
const (
	AchStatusSettled  = "settled"
	AchStatusReturned = "returned"
	AchStatusPending  = "pending"
)

// External lifecycle flags on a payment method, mirrored from the CRM.
// Anything other than active disallows charging.
const (
	MethodExternalStatusActive      = "active"
	MethodExternalStatusSoftDeleted = "soft_deleted"
	MethodExternalStatusEmpty       = ""
)

// Initiators recorded on domain events and audit columns.
const (
	InitiatorAPI   = "api"
	InitiatorBatch = "batch"
)

// Suspend reasons.
const (
	SuspendReasonDuplicate = "duplicate"
)

// Queue and task names.
const (
	QueueDefault = "default"
	QueueBatch   = "batch"

	TaskProcessAccountPayment = "payment:process_account"
	TaskProcessRefund         = "payment:process_refund"
	TaskCheckAchStatus        = "payment:check_ach_status"
	TaskEventDispatch         = "payment:event_dispatch"

	TaskDispatchBilling  = "billing:dispatch_accounts"
	TaskDispatchRefunds  = "billing:dispatch_refunds"
	TaskDispatchAchPolls = "billing:dispatch_ach_polls"
)

// Domain event kinds. The payload schema per kind lives in internal/event.
const (
	EventPaymentAttempted  = "payment.attempted"
	EventPaymentSkipped    = "payment.skipped"
	EventPaymentSuspended  = "payment.suspended"
	EventPaymentTerminated = "payment.terminated"
	EventPaymentReturned   = "payment.returned"
	EventPaymentSettled    = "payment.settled"
	EventPaymentScheduled  = "payment.scheduled"
)

// Batch skip reasons carried on payment.skipped events.
const (
	SkipReasonNoBalance             = "no_unpaid_balance"
	SkipReasonNoPaymentMethods      = "no_payment_methods"
	SkipReasonNoAutopayMethod       = "no_autopay_method"
	SkipReasonMethodInactive        = "autopay_method_inactive"
	SkipReasonTotalAttemptsExceeded = "total_attempts_exceeded"
	SkipReasonDailyAttemptsExceeded = "daily_attempts_exceeded"
	SkipReasonPaymentHold           = "payment_hold"
	SkipReasonBillingDayNotReached  = "billing_day_not_reached"
)

// DefaultCurrencyCode applies to accounts that predate multi-currency support.
const DefaultCurrencyCode = "USD"
