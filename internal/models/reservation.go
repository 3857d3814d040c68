package models

import (
	"strconv"
	"time"
)

// Fallback values used to keep the funnel moving when the backend fails
const (
	DefaultQuotePrice int64 = 290000
	SentinelInvoiceID int64 = 999999
)

// Customer is the person booking the service
type Customer struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	Holder Holder `json:"holder"`
}

// Quote is a price for a (vehicle or service, location, slot) combination
type Quote struct {
	Price    int64     `json:"price"`
	Location string    `json:"location"`
	Slot     string    `json:"slot"`
	Day      Day       `json:"day"`
	QuotedAt time.Time `json:"quoted_at"`
}

// Reservation holds the identifiers returned when a slot is committed
type Reservation struct {
	InvoiceID   *int64 `json:"invoice_id,omitempty"`
	BookingCode string `json:"booking_code"`
	Sentinel    bool   `json:"sentinel"`
}

// Registrable reports whether the reservation has a real invoice that can be paid against
func (r Reservation) Registrable() bool {
	return r.InvoiceID != nil && !r.Sentinel && *r.InvoiceID != SentinelInvoiceID
}

// InvoiceString renders the invoice id or "" when absent
func (r Reservation) InvoiceString() string {
	if r.InvoiceID == nil {
		return ""
	}
	return strconv.FormatInt(*r.InvoiceID, 10)
}
