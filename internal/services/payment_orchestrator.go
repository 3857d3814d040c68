package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// LinkGateway generates payment links and reports their status
type LinkGateway interface {
	StatusChecker
	ResolveProject(ctx context.Context) PaymentProject
	GenerateLink(ctx context.Context, req LinkRequest) (*LinkResponse, error)
}

// HandoffWriter stores records for the outcome pages
type HandoffWriter interface {
	Write(ctx context.Context, sessionID string, name models.HandoffRecordName, v interface{}) (*models.HandoffEnvelope, error)
}

// PaymentOrchestrator turns a quoted (and for most verticals reserved) booking into a payment link
type PaymentOrchestrator struct {
	gateway      LinkGateway
	handoff      HandoffWriter
	events       PaymentEventRecorder
	returnURLs   models.ReturnURLs
	pollAttempts int
	pollInterval time.Duration
	logger       *logrus.Logger
}

// NewPaymentOrchestrator creates a new payment orchestrator. publicBaseURL is the
// origin the outcome pages are served from.
func NewPaymentOrchestrator(
	gateway LinkGateway,
	handoff HandoffWriter,
	events PaymentEventRecorder,
	publicBaseURL string,
	pollAttempts int,
	pollInterval time.Duration,
	logger *logrus.Logger,
) *PaymentOrchestrator {
	base := strings.TrimRight(publicBaseURL, "/")
	return &PaymentOrchestrator{
		gateway: gateway,
		handoff: handoff,
		events:  events,
		returnURLs: models.ReturnURLs{
			Success: base + "/pago-exitoso",
			Failure: base + "/pago-fallido",
			Pending: base + "/pago-pendiente",
		},
		pollAttempts: pollAttempts,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// InitiateRequest is a booking ready to be paid
type InitiateRequest struct {
	SessionID     string
	AcceptedTerms bool
	PaymentMethod string // overrides the project's method when set

	Booking     models.BookingRequest
	Reservation *models.Reservation // nil when the reservation is deferred until payment
	BaseAmount  int64
	CouponCode  string

	Client ClientInfo
}

// BuildServiceLabel renders the description shown on the gateway checkout:
// plate, description, "Modelo <year> (Reserva número <code>)" and location,
// joined by ", " with empty segments left out.
func BuildServiceLabel(plate, description, modelYear, bookingCode, location string) string {
	var segments []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}

	add(plate)
	add(description)

	var model, reservation string
	if modelYear = strings.TrimSpace(modelYear); modelYear != "" {
		model = "Modelo " + modelYear
	}
	if bookingCode = strings.TrimSpace(bookingCode); bookingCode != "" {
		reservation = "(Reserva número " + bookingCode + ")"
	}
	add(model + " " + reservation)

	add(location)
	return strings.Join(segments, ", ")
}

// Initiate generates the payment link. The outcome records are written before
// the link is returned so the return pages can always find them.
func (o *PaymentOrchestrator) Initiate(ctx context.Context, req InitiateRequest) (*models.PaymentSession, error) {
	if !req.AcceptedTerms {
		return nil, fmt.Errorf("%w: terms and conditions must be accepted", apperr.ErrValidation)
	}
	if req.BaseAmount < 0 {
		return nil, fmt.Errorf("%w: amount cannot be negative", apperr.ErrValidation)
	}

	session := &models.PaymentSession{
		BaseAmount: req.BaseAmount,
		Total:      req.BaseAmount,
		Status:     models.PaymentPending,
	}
	if req.CouponCode != "" {
		coupon := ValidateCoupon(req.CouponCode, req.BaseAmount)
		if coupon.Valid {
			session.CouponCode = coupon.Code
			session.Discount = coupon.Discount
			session.Total = coupon.Total
		}
	}

	booking := req.Booking
	var bookingCode string
	if req.Reservation != nil {
		bookingCode = req.Reservation.BookingCode
	}

	var modelYear, vehicleKind string
	if booking.Vehicle != nil {
		modelYear = booking.Vehicle.ModelYear
		vehicleKind = booking.Vehicle.Category()
	}

	project := o.gateway.ResolveProject(ctx)
	if req.PaymentMethod != "" {
		project.Method = req.PaymentMethod
	}

	link, err := o.gateway.GenerateLink(ctx, LinkRequest{
		Project:      project,
		ServiceLabel: BuildServiceLabel(booking.Plate, booking.ServiceName, modelYear, bookingCode, booking.Location),
		Amount:       session.Total,
		Plate:        booking.Plate,
		Location:     booking.Location,
		VehicleType:  models.GatewayVehicleType(vehicleKind),
		URLs:         o.returnURLs,
		SessionID:    req.SessionID,
		BookingCode:  bookingCode,
		Client:       req.Client,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrPaymentGateway, err)
	}

	session.PaymentID = link.PaymentID
	session.PreferenceID = link.PreferenceID
	session.Link = link.PaymentLink

	if session.Link == "" && session.PaymentID == "" {
		o.logger.WithField("session_id", req.SessionID).Error("Payment gateway returned neither link nor payment id")
		return nil, fmt.Errorf("%w: gateway returned neither link nor payment id", apperr.ErrPaymentGateway)
	}

	if err := o.writeHandoff(ctx, req, session, bookingCode); err != nil {
		return nil, err
	}

	if session.Link != "" {
		return session, nil
	}

	poller := NewLinkPoller(o.gateway, o.pollAttempts, o.pollInterval, o.logger)
	outcome, err := poller.Run(ctx, session.PaymentID)
	if err != nil {
		var unavailable *PaymentUnavailableError
		if errors.As(err, &unavailable) {
			o.record(ctx, models.NewPaymentEvent(models.PaymentEventPollExhausted, models.PaymentSourceBackend).
				SetPaymentID(session.PaymentID).
				SetSession(req.SessionID).
				SetAttempt(unavailable.Attempts).
				SetStatus(unavailable.Status).
				SetError(err))
		}
		return nil, err
	}

	session.Link = outcome.Link
	o.record(ctx, models.NewPaymentEvent(models.PaymentEventLinkReady, models.PaymentSourceBackend).
		SetPaymentID(session.PaymentID).
		SetSession(req.SessionID).
		SetAttempt(outcome.Attempts))

	return session, nil
}

// CheckStatus reports the gateway state of a payment
func (o *PaymentOrchestrator) CheckStatus(ctx context.Context, paymentID string) (models.PaymentStatusResult, error) {
	if strings.TrimSpace(paymentID) == "" {
		return models.PaymentStatusResult{}, fmt.Errorf("%w: payment id is required", apperr.ErrValidation)
	}
	return o.gateway.CheckStatus(ctx, paymentID, 0)
}

func (o *PaymentOrchestrator) writeHandoff(ctx context.Context, req InitiateRequest, session *models.PaymentSession, bookingCode string) error {
	booking := req.Booking

	summary := models.ReservationSummary{
		Vertical:     booking.Vertical,
		Location:     booking.Location,
		City:         booking.City,
		Schedule:     booking.Day.String() + " - " + firstNonEmpty(booking.Slot, models.SlotToBeConfirmed),
		Amount:       session.Total,
		Plate:        booking.Plate,
		CustomerName: booking.Customer.Name,
		Phone:        booking.Customer.Phone,
		BookingCode:  bookingCode,
		ServiceName:  booking.ServiceName,
		PaymentID:    session.PaymentID,
	}
	if r := req.Reservation; r != nil {
		summary.InvoiceID = r.InvoiceID
		summary.Sentinel = r.Sentinel
	}

	if _, err := o.handoff.Write(ctx, req.SessionID, models.RecordReservationSummary, summary); err != nil {
		return fmt.Errorf("failed to save reservation summary: %w", err)
	}

	if booking.Vertical.DefersReservation() {
		deferred := models.DeferredPaperwork{Booking: booking, Amount: session.Total}
		if _, err := o.handoff.Write(ctx, req.SessionID, models.RecordDeferredPaperwork, deferred); err != nil {
			return fmt.Errorf("failed to save deferred reservation: %w", err)
		}
	}
	return nil
}

func (o *PaymentOrchestrator) record(ctx context.Context, event *models.PaymentEvent) {
	if o.events == nil {
		return
	}
	if err := o.events.Record(context.WithoutCancel(ctx), event); err != nil {
		o.logger.WithFields(logrus.Fields{
			"event_type": event.EventType,
			"error":      err.Error(),
		}).Warn("Failed to record payment event")
	}
}
