package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventInitiated         PaymentEventType = "payment_initiated"
	PaymentEventLinkReady         PaymentEventType = "payment_link_ready"
	PaymentEventStatusCheck       PaymentEventType = "status_check"
	PaymentEventPollExhausted     PaymentEventType = "poll_exhausted"
	PaymentEventApproved          PaymentEventType = "payment_approved"
	PaymentEventRejected          PaymentEventType = "payment_rejected"
	PaymentEventFinalizeSucceeded PaymentEventType = "finalize_succeeded"
	PaymentEventFinalizeFailed    PaymentEventType = "finalize_failed"
	PaymentEventError             PaymentEventType = "error"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend PaymentEventSource = "backend"
	PaymentSourceGateway PaymentEventSource = "gateway_api"
	PaymentSourceReturn  PaymentEventSource = "return_page"
	PaymentSourceSystem  PaymentEventSource = "system"
)

// PaymentEvent is an immutable audit log entry for a payment interaction
type PaymentEvent struct {
	ID          uuid.UUID          `json:"id" db:"id"`
	PaymentID   *string            `json:"payment_id,omitempty" db:"payment_id"`
	BookingCode *string            `json:"booking_code,omitempty" db:"booking_code"`
	SessionID   *string            `json:"session_id,omitempty" db:"session_id"`
	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	Amount        *int64  `json:"amount,omitempty" db:"amount"`
	PaymentStatus *string `json:"payment_status,omitempty" db:"payment_status"`
	Attempt       *int    `json:"attempt,omitempty" db:"attempt"`

	RequestPayload  JSONB `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload JSONB `json:"response_payload,omitempty" db:"response_payload"`

	HTTPStatusCode *int    `json:"http_status_code,omitempty" db:"http_status_code"`
	EndpointURL    *string `json:"endpoint_url,omitempty" db:"endpoint_url"`
	ErrorMessage   *string `json:"error_message,omitempty" db:"error_message"`

	IPAddress  *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string `json:"user_agent,omitempty" db:"user_agent"`
	DeviceInfo JSONB   `json:"device_info,omitempty" db:"device_info"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentEvent creates a new payment event with required fields
func NewPaymentEvent(eventType PaymentEventType, source PaymentEventSource) *PaymentEvent {
	return &PaymentEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetPaymentID sets the gateway payment id
func (e *PaymentEvent) SetPaymentID(id string) *PaymentEvent {
	if id != "" {
		e.PaymentID = &id
	}
	return e
}

// SetBookingCode sets the reservation booking code
func (e *PaymentEvent) SetBookingCode(code string) *PaymentEvent {
	if code != "" {
		e.BookingCode = &code
	}
	return e
}

// SetSession sets the browser session id
func (e *PaymentEvent) SetSession(sessionID string) *PaymentEvent {
	if sessionID != "" {
		e.SessionID = &sessionID
	}
	return e
}

// SetAmount sets the amount involved
func (e *PaymentEvent) SetAmount(amount int64) *PaymentEvent {
	e.Amount = &amount
	return e
}

// SetStatus sets the reported payment status
func (e *PaymentEvent) SetStatus(status PaymentStatus) *PaymentEvent {
	s := string(status)
	e.PaymentStatus = &s
	return e
}

// SetAttempt sets the poll attempt number
func (e *PaymentEvent) SetAttempt(attempt int) *PaymentEvent {
	e.Attempt = &attempt
	return e
}

// SetRequest sets the request payload
func (e *PaymentEvent) SetRequest(payload JSONB) *PaymentEvent {
	e.RequestPayload = payload
	return e
}

// SetResponse sets the response payload
func (e *PaymentEvent) SetResponse(payload JSONB) *PaymentEvent {
	e.ResponsePayload = payload
	return e
}

// SetHTTP sets HTTP details of the upstream call
func (e *PaymentEvent) SetHTTP(statusCode int, endpoint string) *PaymentEvent {
	if statusCode > 0 {
		e.HTTPStatusCode = &statusCode
	}
	if endpoint != "" {
		e.EndpointURL = &endpoint
	}
	return e
}

// SetError sets error details
func (e *PaymentEvent) SetError(err error) *PaymentEvent {
	if err != nil {
		msg := err.Error()
		e.ErrorMessage = &msg
	}
	return e
}

// SetClient sets request metadata
func (e *PaymentEvent) SetClient(ip, userAgent string, device JSONB) *PaymentEvent {
	if ip != "" {
		e.IPAddress = &ip
	}
	if userAgent != "" {
		e.UserAgent = &userAgent
	}
	e.DeviceInfo = device
	return e
}
