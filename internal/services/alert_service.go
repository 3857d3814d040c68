package services

import (
	"context"
	"fmt"

	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/pkg/sms"
	"github.com/sirupsen/logrus"
)

// FinalizeFailure describes a paid booking whose post-payment step failed
type FinalizeFailure struct {
	PaymentID   string
	BookingCode string
	Vertical    models.Vertical
	Plate       string
	Phone       string
	Cause       error
}

// AlertService notifies the support line and customers by SMS. Sending is
// best effort: failures are logged and never reach the payment flow.
type AlertService struct {
	gateway      sms.Gateway
	supportPhone string
	logger       *logrus.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(gateway sms.Gateway, supportPhone string, logger *logrus.Logger) *AlertService {
	return &AlertService{
		gateway:      gateway,
		supportPhone: supportPhone,
		logger:       logger,
	}
}

// FinalizeFailed tells support that a payment went through but the booking was not completed
func (a *AlertService) FinalizeFailed(ctx context.Context, f FinalizeFailure) {
	a.logger.WithFields(logrus.Fields{
		"payment_id":   f.PaymentID,
		"booking_code": f.BookingCode,
		"vertical":     f.Vertical,
		"error":        errString(f.Cause),
	}).Error("Post-payment finalize failed")

	if a.supportPhone == "" {
		return
	}
	msg := fmt.Sprintf("AUTOMAS: pago %s (%s, placa %s, reserva %s) aprobado sin completar la reserva. Cliente: %s",
		f.PaymentID, f.Vertical, f.Plate, f.BookingCode, f.Phone)
	a.send(ctx, a.supportPhone, msg, "support")
}

// PaymentConfirmed sends the customer a confirmation of a successful booking
func (a *AlertService) PaymentConfirmed(ctx context.Context, summary models.ReservationSummary, reference string) {
	if summary.Phone == "" {
		return
	}
	msg := fmt.Sprintf("AUTOMAS: tu pago fue aprobado. Reserva %s en %s, %s. Referencia %s.",
		summary.BookingCode, summary.Location, summary.Schedule, reference)
	a.send(ctx, summary.Phone, msg, "customer")
}

func (a *AlertService) send(ctx context.Context, phone, message, audience string) {
	if _, err := a.gateway.Send(context.WithoutCancel(ctx), phone, message); err != nil {
		a.logger.WithFields(logrus.Fields{
			"audience": audience,
			"gateway":  a.gateway.Name(),
			"error":    err.Error(),
		}).Warn("Failed to send SMS")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
