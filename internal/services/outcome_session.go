package services

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// OutcomeEventType is the kind of message streamed to a return page
type OutcomeEventType string

const (
	EventProgress  OutcomeEventType = "progress"
	EventCountdown OutcomeEventType = "countdown"
	EventExhausted OutcomeEventType = "exhausted"
	EventRedirect  OutcomeEventType = "redirect"
)

// Pending page messages
const (
	MessageConnecting = "Conectando con la pasarela de pago..."
	MessageVerifying  = "Verificando transacción con el banco..."
	MessageWaiting    = "Esperando confirmación final..."
	MessageConfirmed  = "¡Pago confirmado!"
	MessageCheckLater = "Aún no tenemos confirmación de tu pago. Revisa tu correo más tarde."

	progressStart = 10
	progressStep  = 5
	progressCap   = 90
)

// OutcomeEvent is one message of the return page stream
type OutcomeEvent struct {
	Type      OutcomeEventType     `json:"type"`
	Progress  int                  `json:"progress,omitempty"`
	Message   string               `json:"message,omitempty"`
	Status    models.PaymentStatus `json:"status,omitempty"`
	Remaining int                  `json:"remaining,omitempty"`
	Location  string               `json:"location,omitempty"`
}

var errRedirected = errors.New("outcome page redirected")

// OutcomeSession drives a return page: a status watcher (pending page only) and
// the countdown run together and the first redirect stops both.
type OutcomeSession struct {
	checker   StatusChecker
	paymentID string
	attempts  int
	interval  time.Duration
	countdown int
	tick      time.Duration
	logger    *logrus.Logger
}

// NewOutcomeSession creates a session. A nil checker or an empty payment id runs the countdown alone.
func NewOutcomeSession(checker StatusChecker, paymentID string, attempts int, interval time.Duration, countdownSeconds int, logger *logrus.Logger) *OutcomeSession {
	return &OutcomeSession{
		checker:   checker,
		paymentID: paymentID,
		attempts:  attempts,
		interval:  interval,
		countdown: countdownSeconds,
		tick:      time.Second,
		logger:    logger,
	}
}

// Run streams events to out until a redirect is emitted or ctx is done.
// It returns nil after a redirect and ctx.Err() when the client went away.
func (s *OutcomeSession) Run(ctx context.Context, out chan<- OutcomeEvent) error {
	g, gctx := errgroup.WithContext(ctx)

	if s.checker != nil && s.paymentID != "" {
		g.Go(func() error {
			return s.watch(gctx, out)
		})
	}
	g.Go(func() error {
		return s.runCountdown(gctx, out)
	})

	err := g.Wait()
	if errors.Is(err, errRedirected) {
		return nil
	}
	return err
}

// watch polls the payment until it is approved or rejected or attempts run out
func (s *OutcomeSession) watch(ctx context.Context, out chan<- OutcomeEvent) error {
	progress := progressStart
	if err := emit(ctx, out, OutcomeEvent{Type: EventProgress, Progress: progress, Message: MessageConnecting}); err != nil {
		return err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		res, err := s.checker.CheckStatus(ctx, s.paymentID, attempt)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"payment_id": s.paymentID,
				"attempt":    attempt,
				"error":      err.Error(),
			}).Warn("Pending payment status check failed")
		}

		switch res.Status {
		case models.PaymentApproved:
			if err := emit(ctx, out, OutcomeEvent{Type: EventProgress, Progress: 100, Message: MessageConfirmed, Status: res.Status}); err != nil {
				return err
			}
			return s.redirect(ctx, out, SuccessPath+"?pago_id="+url.QueryEscape(s.paymentID))
		case models.PaymentRejected:
			return s.redirect(ctx, out, FailurePath+"?pago_id="+url.QueryEscape(s.paymentID))
		}

		progress = min(progress+progressStep, progressCap)
		if err := emit(ctx, out, OutcomeEvent{Type: EventProgress, Progress: progress, Message: progressMessage(progress), Status: res.Status}); err != nil {
			return err
		}

		if attempt < s.attempts {
			if err := SleepOrDone(ctx, s.interval); err != nil {
				return err
			}
		}
	}

	return emit(ctx, out, OutcomeEvent{Type: EventExhausted, Progress: progress, Message: MessageCheckLater})
}

// runCountdown ticks once per second and redirects home when it reaches zero
func (s *OutcomeSession) runCountdown(ctx context.Context, out chan<- OutcomeEvent) error {
	for remaining := s.countdown; remaining > 0; remaining-- {
		if err := emit(ctx, out, OutcomeEvent{Type: EventCountdown, Remaining: remaining}); err != nil {
			return err
		}
		if err := SleepOrDone(ctx, s.tick); err != nil {
			return err
		}
	}
	return s.redirect(ctx, out, RetryPath)
}

func (s *OutcomeSession) redirect(ctx context.Context, out chan<- OutcomeEvent, location string) error {
	if err := emit(ctx, out, OutcomeEvent{Type: EventRedirect, Location: location}); err != nil {
		return err
	}
	return errRedirected
}

func progressMessage(progress int) string {
	switch {
	case progress < 30:
		return MessageConnecting
	case progress < 60:
		return MessageVerifying
	default:
		return MessageWaiting
	}
}

func emit(ctx context.Context, out chan<- OutcomeEvent, ev OutcomeEvent) error {
	select {
	case out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
