package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// OutcomeKind identifies one of the gateway return pages
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
	OutcomePending OutcomeKind = "pending"
)

// Return page constants
const (
	TaxRatePercent   = 19
	InvoiceDueDays   = 30
	RetryPath        = "/"
	SuccessPath      = "/pago-exitoso"
	FailurePath      = "/pago-fallido"
	supportMessage   = "Hola, tuve un problema con mi pago.\nReferencia: %s\nMonto: %s"
	whatsAppEndpoint = "https://wa.me/"
)

var paymentIDAliases = map[OutcomeKind][]string{
	OutcomeSuccess: {"payment_id", "pago_id", "external_reference", "collection_id"},
	OutcomePending: {"payment_id", "pago_id", "external_reference", "preference_id"},
	OutcomeFailure: {"payment_id", "pago_id", "external_reference", "preference_id", "merchant_order_id"},
}

// PaymentIDFrom reads the payment id of a return page from its query string
func PaymentIDFrom(kind OutcomeKind, query url.Values) string {
	for _, key := range paymentIDAliases[kind] {
		v := strings.TrimSpace(query.Get(key))
		if v != "" && v != "null" {
			return v
		}
	}
	return ""
}

// HandoffReader reads and consumes the records written before the gateway redirect
type HandoffReader interface {
	ReadSummary(ctx context.Context, sessionID string) (*models.ReservationSummary, *models.HandoffEnvelope, error)
	ReadFinalizedSummary(ctx context.Context, sessionID string) (*models.ReservationSummary, error)
	ReadDeferred(ctx context.Context, sessionID string) (*models.DeferredPaperwork, *models.HandoffEnvelope, error)
	Consume(ctx context.Context, env *models.HandoffEnvelope) error
}

// Reserver commits reservations and registers their payment
type Reserver interface {
	Reserve(ctx context.Context, req models.BookingRequest) Result[models.Reservation]
	RegisterPayment(ctx context.Context, invoiceID int64) error
}

// Alerter reports finalize failures and confirms successful payments
type Alerter interface {
	FinalizeFailed(ctx context.Context, f FinalizeFailure)
	PaymentConfirmed(ctx context.Context, summary models.ReservationSummary, reference string)
}

// FinalizeResult is what happened after a successful payment
type FinalizeResult struct {
	Ran         bool   `json:"ran"`
	Registered  bool   `json:"registered"`
	InvoiceID   *int64 `json:"invoice_id,omitempty"`
	BookingCode string `json:"booking_code,omitempty"`
	Failed      bool   `json:"failed"`
}

// OutcomeView is everything a return page renders
type OutcomeView struct {
	Kind             OutcomeKind                `json:"kind"`
	PaymentID        string                     `json:"payment_id,omitempty"`
	Reference        string                     `json:"reference"`
	BookingCode      string                     `json:"booking_code,omitempty"`
	Summary          *models.ReservationSummary `json:"summary,omitempty"`
	Amount           int64                      `json:"amount"`
	Tax              int64                      `json:"tax,omitempty"`
	IssueDate        time.Time                  `json:"issue_date"`
	DueDate          *time.Time                 `json:"due_date,omitempty"`
	RetryPath        string                     `json:"retry_path,omitempty"`
	SupportLink      string                     `json:"support_link,omitempty"`
	CountdownSeconds int                        `json:"countdown_seconds"`
	Finalize         *FinalizeResult            `json:"finalize,omitempty"`
	PaymentStatus    models.PaymentStatus       `json:"payment_status,omitempty"`
	Confirmed        bool                       `json:"confirmed"`
}

// OutcomeService resolves the success, failure and pending return pages
type OutcomeService struct {
	handoff      HandoffReader
	checker      StatusChecker
	reservations Reserver
	alerts       Alerter
	events       PaymentEventRecorder
	config       *config.OutcomeConfig
	logger       *logrus.Logger
	now          func() time.Time
}

// NewOutcomeService creates a new outcome service
func NewOutcomeService(handoff HandoffReader, checker StatusChecker, reservations Reserver, alerts Alerter, events PaymentEventRecorder, cfg *config.OutcomeConfig, logger *logrus.Logger) *OutcomeService {
	return &OutcomeService{
		handoff:      handoff,
		checker:      checker,
		reservations: reservations,
		alerts:       alerts,
		events:       events,
		config:       cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// Reference renders a payment reference: prefix, dash and the first eight characters
// of the payment id in upper case. Without an id the current time stands in.
func (s *OutcomeService) Reference(prefix, paymentID string) string {
	if paymentID == "" {
		return prefix + "-" + strconv.FormatInt(s.now().Unix(), 10)
	}
	return prefix + "-" + strings.ToUpper(truncate(paymentID, 8))
}

// TaxOf returns the VAT included in amount
func TaxOf(amount int64) int64 {
	return int64(math.Round(float64(amount) * TaxRatePercent / 100))
}

// ResolveSuccess renders the success page and, the first time, finalizes the booking.
// Finalize runs only once the gateway confirms the payment named in the URL as approved.
// The summary is claimed by consuming it before finalize runs so a reload or a
// concurrent visit never finalizes twice.
func (s *OutcomeService) ResolveSuccess(ctx context.Context, sessionID string, query url.Values) (*OutcomeView, error) {
	paymentID := PaymentIDFrom(OutcomeSuccess, query)
	now := s.now()
	due := now.AddDate(0, 0, InvoiceDueDays)

	view := &OutcomeView{
		Kind:             OutcomeSuccess,
		PaymentID:        paymentID,
		Reference:        s.Reference("F", paymentID),
		BookingCode:      strings.ToUpper(truncate(paymentID, 10)),
		IssueDate:        now,
		DueDate:          &due,
		CountdownSeconds: s.config.CountdownSeconds,
	}

	summary, env, err := s.handoff.ReadSummary(ctx, sessionID)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to read reservation summary")
	}
	if summary == nil {
		// Already finalized on an earlier visit
		s.fillFinalized(ctx, sessionID, view)
		return view, nil
	}
	s.fillSummary(view, summary)

	if !s.confirmApproved(ctx, sessionID, query, summary, view) {
		return view, nil
	}

	if err := s.handoff.Consume(ctx, env); err != nil {
		if errors.Is(err, ErrEnvelopeSuperseded) {
			return view, nil
		}
		return nil, fmt.Errorf("failed to claim reservation summary: %w", err)
	}

	view.Finalize = s.finalize(ctx, sessionID, view.PaymentID, summary)
	if view.Finalize.BookingCode != "" {
		view.BookingCode = view.Finalize.BookingCode
	}
	if !view.Finalize.Failed {
		s.alerts.PaymentConfirmed(ctx, *summary, view.Reference)
	}
	return view, nil
}

// confirmApproved reconciles the URL with the stored payment id and asks the gateway
// for its state. The summary stays unclaimed unless the payment is approved.
func (s *OutcomeService) confirmApproved(ctx context.Context, sessionID string, query url.Values, summary *models.ReservationSummary, view *OutcomeView) bool {
	log := s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"payment_id": view.PaymentID,
	})

	if view.PaymentID == "" {
		log.Warn("Success page reached without a payment id, not finalizing")
		return false
	}

	checkID := view.PaymentID
	if summary.PaymentID != "" {
		if !queryMentions(query, summary.PaymentID) {
			log.WithField("stored_payment_id", summary.PaymentID).Warn("Success page payment id does not match the stored reservation")
			return false
		}
		checkID = summary.PaymentID
		view.PaymentID = checkID
		view.Reference = s.Reference("F", checkID)
	}

	status, err := s.checker.CheckStatus(ctx, checkID, 0)
	if err != nil {
		log.WithError(err).Warn("Failed to confirm payment status, not finalizing")
		view.PaymentStatus = models.PaymentError
		return false
	}
	view.PaymentStatus = status.Status
	if status.Status != models.PaymentApproved {
		log.WithField("status", status.Status).Info("Payment not approved, not finalizing")
		return false
	}

	view.Confirmed = true
	return true
}

// queryMentions reports whether any payment id alias of the success page carries id
func queryMentions(query url.Values, id string) bool {
	for _, key := range paymentIDAliases[OutcomeSuccess] {
		for _, v := range query[key] {
			if strings.EqualFold(strings.TrimSpace(v), id) {
				return true
			}
		}
	}
	return false
}

// ReceiptView renders the success page data for the receipt without finalizing anything
func (s *OutcomeService) ReceiptView(ctx context.Context, sessionID string, query url.Values) (*OutcomeView, error) {
	paymentID := PaymentIDFrom(OutcomeSuccess, query)
	now := s.now()
	due := now.AddDate(0, 0, InvoiceDueDays)

	view := &OutcomeView{
		Kind:        OutcomeSuccess,
		PaymentID:   paymentID,
		Reference:   s.Reference("F", paymentID),
		BookingCode: strings.ToUpper(truncate(paymentID, 10)),
		IssueDate:   now,
		DueDate:     &due,
	}
	if !s.fillFinalized(ctx, sessionID, view) {
		return nil, fmt.Errorf("%w: no booking to print for this session", apperr.ErrNotFound)
	}
	return view, nil
}

func (s *OutcomeService) fillSummary(view *OutcomeView, summary *models.ReservationSummary) {
	view.Summary = summary
	view.Amount = summary.Amount
	view.Tax = TaxOf(summary.Amount)
	if summary.BookingCode != "" {
		view.BookingCode = summary.BookingCode
	}
}

func (s *OutcomeService) fillFinalized(ctx context.Context, sessionID string, view *OutcomeView) bool {
	summary, err := s.handoff.ReadFinalizedSummary(ctx, sessionID)
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to read finalized summary")
		return false
	}
	if summary == nil {
		return false
	}
	s.fillSummary(view, summary)
	return true
}

func (s *OutcomeService) finalize(ctx context.Context, sessionID, paymentID string, summary *models.ReservationSummary) *FinalizeResult {
	result := &FinalizeResult{Ran: true, InvoiceID: summary.InvoiceID, BookingCode: summary.BookingCode}

	log := s.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"vertical":   summary.Vertical,
		"session_id": sessionID,
	})

	var err error
	if summary.Vertical.DefersReservation() {
		err = s.finalizeDeferred(ctx, sessionID, result)
	} else if summary.Registrable() {
		if err = s.reservations.RegisterPayment(ctx, *summary.InvoiceID); err == nil {
			result.Registered = true
		}
	} else {
		log.Info("Reservation has no registrable invoice, skipping payment registration")
	}

	event := models.NewPaymentEvent(models.PaymentEventFinalizeSucceeded, models.PaymentSourceReturn).
		SetPaymentID(paymentID).
		SetSession(sessionID).
		SetBookingCode(result.BookingCode).
		SetAmount(summary.Amount).
		SetStatus(models.PaymentApproved)

	if err != nil {
		result.Failed = true
		event.EventType = models.PaymentEventFinalizeFailed
		event.SetError(err)
		s.alerts.FinalizeFailed(ctx, FinalizeFailure{
			PaymentID:   paymentID,
			BookingCode: result.BookingCode,
			Vertical:    summary.Vertical,
			Plate:       summary.Plate,
			Phone:       summary.Phone,
			Cause:       err,
		})
	} else {
		log.WithField("registered", result.Registered).Info("Payment finalized")
	}
	s.record(ctx, event)

	return result
}

// finalizeDeferred commits the paperwork reservation that waited for the payment
func (s *OutcomeService) finalizeDeferred(ctx context.Context, sessionID string, result *FinalizeResult) error {
	deferred, env, err := s.handoff.ReadDeferred(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to read deferred reservation: %w", err)
	}
	if deferred == nil {
		return errors.New("deferred reservation not found")
	}

	defer func() {
		if err := s.handoff.Consume(ctx, env); err != nil {
			s.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to consume deferred reservation")
		}
	}()

	res := s.reservations.Reserve(ctx, deferred.Booking)
	result.InvoiceID = res.Value.InvoiceID
	result.BookingCode = res.Value.BookingCode
	if res.Degraded() {
		return fmt.Errorf("deferred reservation failed: %w", res.Cause)
	}
	if !res.Value.Registrable() {
		return nil
	}

	if err := s.reservations.RegisterPayment(ctx, *res.Value.InvoiceID); err != nil {
		return err
	}
	result.Registered = true
	return nil
}

// ResolveFailure renders the failure page. Nothing is finalized.
func (s *OutcomeService) ResolveFailure(ctx context.Context, sessionID string, query url.Values) *OutcomeView {
	paymentID := PaymentIDFrom(OutcomeFailure, query)
	view := &OutcomeView{
		Kind:             OutcomeFailure,
		PaymentID:        paymentID,
		Reference:        s.Reference("F", paymentID),
		IssueDate:        s.now(),
		RetryPath:        RetryPath,
		CountdownSeconds: s.config.CountdownSeconds,
	}

	if summary, _, err := s.handoff.ReadSummary(ctx, sessionID); err == nil && summary != nil {
		view.Summary = summary
		view.Amount = summary.Amount
		view.BookingCode = summary.BookingCode
	}

	view.SupportLink = SupportLink(s.config.SupportWhatsApp, view.Reference, view.Amount)
	return view
}

// ResolvePending renders the pending page; the status watcher runs separately
func (s *OutcomeService) ResolvePending(ctx context.Context, sessionID string, query url.Values) *OutcomeView {
	paymentID := PaymentIDFrom(OutcomePending, query)
	view := &OutcomeView{
		Kind:             OutcomePending,
		PaymentID:        paymentID,
		Reference:        s.Reference("P", paymentID),
		IssueDate:        s.now(),
		CountdownSeconds: s.config.CountdownSeconds,
	}

	if summary, _, err := s.handoff.ReadSummary(ctx, sessionID); err == nil && summary != nil {
		view.Summary = summary
		view.Amount = summary.Amount
		view.BookingCode = summary.BookingCode
	}
	return view
}

// SupportLink builds the WhatsApp link the failure page offers
func SupportLink(phone, reference string, amount int64) string {
	text := fmt.Sprintf(supportMessage, reference, FormatCOP(amount))
	return whatsAppEndpoint + phone + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// FormatCOP renders an amount in pesos with dot thousands separators: $290.000
func FormatCOP(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return sign + "$" + b.String()
}

func (s *OutcomeService) record(ctx context.Context, event *models.PaymentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(context.WithoutCancel(ctx), event); err != nil {
		s.logger.WithFields(logrus.Fields{
			"event_type": event.EventType,
			"error":      err.Error(),
		}).Warn("Failed to record payment event")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
