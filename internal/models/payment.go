package models

import "strings"

// PaymentStatus is the gateway-reported state of a payment
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
	PaymentError    PaymentStatus = "error"
)

// ParsePaymentStatus normalizes the gateway's estado field.
// Unknown values are treated as pending so only the gateway can end a payment.
func ParsePaymentStatus(s string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "aprobado", "approved":
		return PaymentApproved
	case "rechazado", "rejected", "cancelled", "cancelado":
		return PaymentRejected
	case "error":
		return PaymentError
	default:
		return PaymentPending
	}
}

// Terminal reports whether no further status change is expected
func (s PaymentStatus) Terminal() bool {
	return s == PaymentApproved || s == PaymentRejected || s == PaymentError
}

// ReturnURLs are the absolute outcome page URLs handed to the gateway
type ReturnURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PaymentSession tracks one payment attempt for a reservation
type PaymentSession struct {
	PaymentID    string        `json:"payment_id"`
	PreferenceID string        `json:"preference_id,omitempty"`
	Link         string        `json:"payment_link,omitempty"`
	BaseAmount   int64         `json:"base_amount"`
	Discount     int64         `json:"discount"`
	Total        int64         `json:"total"`
	CouponCode   string        `json:"coupon_code,omitempty"`
	Status       PaymentStatus `json:"status"`
}

// PaymentStatusResult is a single status check answer
type PaymentStatusResult struct {
	PaymentID string        `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
	RawStatus string        `json:"raw_status,omitempty"`
	Link      string        `json:"init_point,omitempty"`
}

// CouponKind is how a coupon discount is computed
type CouponKind string

const (
	CouponPercentage CouponKind = "porcentaje"
	CouponFixed      CouponKind = "fijo"
)

// CouponResult is the outcome of applying a coupon to a base amount
type CouponResult struct {
	Code     string     `json:"code"`
	Valid    bool       `json:"valid"`
	Kind     CouponKind `json:"kind,omitempty"`
	Value    int64      `json:"value,omitempty"`
	Discount int64      `json:"discount"`
	Total    int64      `json:"total"`
	Message  string     `json:"message"`
}
