package services

import (
	"context"
	"fmt"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// Link poller defaults
const (
	DefaultPollAttempts = 10
	DefaultPollInterval = time.Second
)

// PollState is a state of the link poller
type PollState string

const (
	PollPolling       PollState = "polling"
	PollLinkReady     PollState = "link_ready"
	PollGatewayFailed PollState = "gateway_failed"
	PollExhausted     PollState = "exhausted"
	PollCancelled     PollState = "cancelled"
)

// StatusChecker reports the gateway state of a payment
type StatusChecker interface {
	CheckStatus(ctx context.Context, paymentID string, attempt int) (models.PaymentStatusResult, error)
}

// PaymentUnavailableError is the terminal error of a payment that never produced a usable link
type PaymentUnavailableError struct {
	PaymentID string
	Attempts  int
	Status    models.PaymentStatus
}

func (e *PaymentUnavailableError) Error() string {
	return fmt.Sprintf("payment %s unavailable after %d status checks (last status %s)", e.PaymentID, e.Attempts, e.Status)
}

// Unwrap lets callers match the error with apperr.ErrPaymentGateway
func (e *PaymentUnavailableError) Unwrap() error {
	return apperr.ErrPaymentGateway
}

// PollOutcome is where the poller stopped
type PollOutcome struct {
	State    PollState
	Link     string
	Attempts int
	Status   models.PaymentStatus
}

// LinkPoller waits for the gateway to expose the checkout link of a payment.
// The first check runs immediately; at most MaxAttempts checks are made.
type LinkPoller struct {
	checker     StatusChecker
	MaxAttempts int
	Interval    time.Duration
	logger      *logrus.Logger
}

// NewLinkPoller creates a poller. Non-positive settings use the defaults.
func NewLinkPoller(checker StatusChecker, maxAttempts int, interval time.Duration, logger *logrus.Logger) *LinkPoller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &LinkPoller{
		checker:     checker,
		MaxAttempts: maxAttempts,
		Interval:    interval,
		logger:      logger,
	}
}

// Run polls until the link appears, the gateway fails the payment, attempts run out or ctx is done
func (p *LinkPoller) Run(ctx context.Context, paymentID string) (PollOutcome, error) {
	out := PollOutcome{State: PollPolling, Status: models.PaymentPending}

	for out.State == PollPolling {
		out.Attempts++
		res, err := p.checker.CheckStatus(ctx, paymentID, out.Attempts)

		switch {
		case ctx.Err() != nil:
			out.State = PollCancelled
		case err != nil:
			// transport failures are retried within the attempt budget
			p.logger.WithFields(logrus.Fields{
				"payment_id": paymentID,
				"attempt":    out.Attempts,
				"error":      err.Error(),
			}).Warn("Payment status check failed")
		case res.Link != "":
			out.State = PollLinkReady
			out.Link = res.Link
			out.Status = res.Status
		case res.Status == models.PaymentRejected || res.Status == models.PaymentError:
			out.State = PollGatewayFailed
			out.Status = res.Status
		default:
			out.Status = res.Status
		}

		if out.State == PollPolling && out.Attempts >= p.MaxAttempts {
			out.State = PollExhausted
		}
		if out.State == PollPolling {
			if err := SleepOrDone(ctx, p.Interval); err != nil {
				out.State = PollCancelled
			}
		}
	}

	log := p.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"attempts":   out.Attempts,
		"state":      out.State,
	})

	switch out.State {
	case PollLinkReady:
		log.Info("Payment link ready")
		return out, nil
	case PollCancelled:
		log.Info("Payment link polling cancelled")
		return out, ctx.Err()
	default:
		log.Warn("Payment link unavailable")
		return out, &PaymentUnavailableError{
			PaymentID: paymentID,
			Attempts:  out.Attempts,
			Status:    out.Status,
		}
	}
}
