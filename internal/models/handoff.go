package models

import (
	"time"

	"github.com/google/uuid"
)

// HandoffRecordName names one of the records carried across the gateway redirect
type HandoffRecordName string

const (
	// RecordReservationSummary holds what the outcome pages display
	RecordReservationSummary HandoffRecordName = "ultima_reserva"

	// RecordDeferredPaperwork holds the reservation payload committed only after payment
	RecordDeferredPaperwork HandoffRecordName = "tramite_pendiente"
)

// HandoffEnvelope is one versioned record in the handoff store.
// Every write overwrites the payload, bumps Version and clears Consumed.
type HandoffEnvelope struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	SessionID  string            `json:"session_id" db:"session_id"`
	Name       HandoffRecordName `json:"name" db:"name"`
	Version    int               `json:"version" db:"version"`
	Payload    []byte            `json:"-" db:"payload"`
	Encrypted  bool              `json:"encrypted" db:"encrypted"`
	Consumed   bool              `json:"consumed" db:"consumed"`
	ConsumedAt *time.Time        `json:"consumed_at,omitempty" db:"consumed_at"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

// ReservationSummary is written right before the browser leaves for the gateway
type ReservationSummary struct {
	Vertical     Vertical `json:"tipo"`
	Location     string   `json:"sede"`
	City         string   `json:"ciudad"`
	Schedule     string   `json:"fecha"` // "<date> - <slot>"
	Amount       int64    `json:"monto"`
	Plate        string   `json:"placa"`
	CustomerName string   `json:"nombre"`
	Phone        string   `json:"celular,omitempty"`
	BookingCode  string   `json:"codeBooking"`
	InvoiceID    *int64   `json:"invoiceId,omitempty"`
	Sentinel     bool     `json:"sentinel,omitempty"`
	ServiceName  string   `json:"nombreServicio"`
	PaymentID    string   `json:"pagoId,omitempty"`
}

// Registrable reports whether the summary carries a real invoice id
func (s ReservationSummary) Registrable() bool {
	return s.InvoiceID != nil && !s.Sentinel && *s.InvoiceID != SentinelInvoiceID
}

// DeferredPaperwork is the reservation to commit once a paperwork payment succeeds
type DeferredPaperwork struct {
	Booking BookingRequest `json:"booking"`
	Amount  int64          `json:"amount"`
}
