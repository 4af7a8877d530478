package gateway

import (
	"fmt"
	"sort"
	"strings"
)

// Field is a typed key in the operation data bag.
type Field string

const (
	FieldAmount        Field = "amount"   // major-unit decimal string, e.g. "12.34"
	FieldCurrency      Field = "currency" // ISO 4217 code
	FieldReferenceID   Field = "reference_id"
	FieldToken         Field = "token"
	FieldAchRoutingNo  Field = "ach_routing_no"
	FieldAchAccountNo  Field = "ach_account_no"
	FieldBillingName   Field = "billing_name"
	FieldBillingStreet Field = "billing_street"
	FieldBillingCity   Field = "billing_city"
	FieldBillingState  Field = "billing_state"
	FieldBillingZip    Field = "billing_zip"
	FieldDescription   Field = "description"
	FieldGatewayTxnID  Field = "gateway_transaction_id" // prior authorize id, capture/cancel/status
)

// OperationData carries everything a gateway call needs. Populate merges
// with last-write-wins per key, so callers can layer defaults and overrides.
type OperationData map[Field]string

// NewOperationData creates an empty bag.
func NewOperationData() OperationData {
	return make(OperationData)
}

// Populate merges fields into the bag, last write wins per key.
func (d OperationData) Populate(fields map[Field]string) {
	for key, value := range fields {
		d[key] = value
	}
}

// Get returns a field value, empty string on absence.
func (d OperationData) Get(field Field) string {
	return d[field]
}

// Missing returns the required fields that are absent or blank, sorted for
// stable error messages.
func (d OperationData) Missing(required []Field) []Field {
	var missing []Field
	for _, field := range required {
		if strings.TrimSpace(d[field]) == "" {
			missing = append(missing, field)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func missingFieldsError(op Operation, missing []Field) error {
	names := make([]string, 0, len(missing))
	for _, f := range missing {
		names = append(names, string(f))
	}
	return fmt.Errorf("%w: %s requires %s", ErrMissingFields, op, strings.Join(names, ", "))
}
