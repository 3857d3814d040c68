package database

import (
	"context"
	"fmt"
	"time"

	"github.com/automas/booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// PaymentEventRepository stores the payment audit trail
type PaymentEventRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentEventRepository creates a new payment event repository
func NewPaymentEventRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentEventRepository {
	return &PaymentEventRepository{
		db:     db,
		logger: logger,
	}
}

// Record inserts a payment event
func (r *PaymentEventRepository) Record(ctx context.Context, event *models.PaymentEvent) error {
	if event == nil {
		return fmt.Errorf("payment event cannot be nil")
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_events (
			id, payment_id, booking_code, session_id,
			event_type, event_source,
			amount, payment_status, attempt,
			request_payload, response_payload,
			http_status_code, endpoint_url, error_message,
			ip_address, user_agent, device_info,
			created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16, $17,
			$18
		)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.PaymentID, event.BookingCode, event.SessionID,
		event.EventType, event.EventSource,
		event.Amount, event.PaymentStatus, event.Attempt,
		event.RequestPayload, event.ResponsePayload,
		event.HTTPStatusCode, event.EndpointURL, event.ErrorMessage,
		event.IPAddress, event.UserAgent, event.DeviceInfo,
		event.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.EventType,
			"payment_id": event.PaymentID,
		}).Error("Failed to record payment event")
		return fmt.Errorf("failed to record payment event: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.EventType,
	}).Debug("Payment event recorded")

	return nil
}

// ListByPaymentID returns every event of a payment, oldest first
func (r *PaymentEventRepository) ListByPaymentID(ctx context.Context, paymentID string) ([]*models.PaymentEvent, error) {
	events := []*models.PaymentEvent{}
	query := `
		SELECT * FROM payment_events
		WHERE payment_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &events, query, paymentID); err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	return events, nil
}
