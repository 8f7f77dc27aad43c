package enums

// PaymentCheck is a verification source's verdict on one payment reference.
type PaymentCheck string

const (
	PaymentCheckConfirmed      PaymentCheck = "confirmed"
	PaymentCheckNotFound       PaymentCheck = "not_found"
	PaymentCheckAmountMismatch PaymentCheck = "amount_mismatch"
	PaymentCheckPending        PaymentCheck = "pending"
)

// String implements fmt.Stringer.
func (p PaymentCheck) String() string {
	return string(p)
}

// IsDecisive reports whether the verdict ends polling.
func (p PaymentCheck) IsDecisive() bool {
	switch p {
	case PaymentCheckConfirmed, PaymentCheckNotFound, PaymentCheckAmountMismatch:
		return true
	default:
		return false
	}
}
