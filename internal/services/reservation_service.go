package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	errMissingPrice   = errors.New("quote response has no price")
	errMissingInvoice = errors.New("reservation response has no invoice id")
)

// ReservationService quotes, reserves and registers payments against the scheduling backend.
// Nothing is cached: every call goes upstream.
type ReservationService struct {
	actions ActionExecutor
	client  string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewReservationService creates a new reservation service
func NewReservationService(actions ActionExecutor, client string, logger *logrus.Logger) *ReservationService {
	return &ReservationService{
		actions: actions,
		client:  client,
		logger:  logger,
		now:     time.Now,
	}
}

type bookingPayload struct {
	Client   string     `json:"cliente"`
	Plate    string     `json:"placa"`
	Date     agendaDate `json:"fecha_agenda"`
	Slot     string     `json:"franja"`
	City     string     `json:"ciudad"`
	Location string     `json:"sede"`
	Service  string     `json:"servicio,omitempty"`
	IDType   string     `json:"tipo_identificacion,omitempty"`
	HolderID string     `json:"identificacion,omitempty"`
	Phone    string     `json:"celular"`
	Email    string     `json:"correo"`
	Name     string     `json:"nombres"`
	Flow     string     `json:"from_flow"`

	// Sent when the registry could not describe the vehicle
	Class       string `json:"clase_vehiculo,omitempty"`
	ServiceType string `json:"tipo_servicio,omitempty"`
	FuelType    string `json:"tipo_combustible,omitempty"`
	Model       string `json:"modelo,omitempty"`
	RTMExpiry   string `json:"fecha_vencimiento_rtm,omitempty"`
}

type quoteData struct {
	Price flexInt64 `json:"price"`
}

type quoteResponse struct {
	Data *quoteData `json:"data"`
	quoteData
}

type reserveData struct {
	InvoiceID   flexInt64  `json:"invoice_id"`
	BookingCode flexString `json:"codeBooking"`
}

type reserveResponse struct {
	Data *reserveData `json:"data"`
	reserveData
}

type registerPaymentRequest struct {
	InvoiceID int64 `json:"invoice_id"`
}

func (s *ReservationService) payload(req models.BookingRequest) bookingPayload {
	p := bookingPayload{
		Client:   s.client,
		Plate:    req.Plate,
		Date:     agendaDateOf(req.Day),
		Slot:     req.Slot,
		City:     req.City,
		Location: req.Location,
		Service:  req.ServiceName,
		IDType:   req.Customer.Holder.RegistryLabel(),
		HolderID: req.Customer.Holder.ID,
		Phone:    req.Customer.Phone,
		Email:    req.Customer.Email,
		Name:     req.Customer.Name,
		Flow:     req.Vertical.Flow(),
	}
	if p.Slot == "" {
		p.Slot = models.SlotToBeConfirmed
	}
	if v := req.Vehicle; v != nil && v.Estimated() {
		p.Class = v.Class
		p.ServiceType = v.ServiceType
		p.FuelType = v.FuelType
		p.Model = v.ModelYear
		if v.RTMExpiry != nil {
			p.RTMExpiry = v.RTMExpiry.Format("2006-01-02")
		}
	}
	return p
}

// Quote prices a booking. Failures degrade to the default price.
func (s *ReservationService) Quote(ctx context.Context, req models.BookingRequest) Result[models.Quote] {
	quote := models.Quote{
		Price:    models.DefaultQuotePrice,
		Location: req.Location,
		Slot:     req.Slot,
		Day:      req.Day,
		QuotedAt: s.now(),
	}

	log := s.logger.WithFields(logrus.Fields{
		"plate":    req.Plate,
		"location": req.Location,
		"slot":     req.Slot,
		"vertical": req.Vertical,
	})

	var resp quoteResponse
	if err := s.actions.Execute(ctx, gateway.ActionQuote, nil, s.payload(req), &resp); err != nil {
		log.WithError(err).Warn("Quote failed, using default price")
		return fallbackOf(quote, FallbackQuoteUnavailable, err)
	}

	price := resp.Price
	if resp.Data != nil && resp.Data.Price.Valid {
		price = resp.Data.Price
	}
	if !price.Valid || price.Value <= 0 {
		log.Warn("Quote returned no price, using default price")
		return fallbackOf(quote, FallbackQuoteUnavailable, errMissingPrice)
	}

	quote.Price = price.Value
	log.WithField("price", quote.Price).Info("Quote obtained")
	return resultOf(quote)
}

// Reserve commits the slot. Failures degrade to a sentinel reservation that is never registered for payment.
func (s *ReservationService) Reserve(ctx context.Context, req models.BookingRequest) Result[models.Reservation] {
	log := s.logger.WithFields(logrus.Fields{
		"plate":    req.Plate,
		"location": req.Location,
		"slot":     req.Slot,
		"vertical": req.Vertical,
	})

	var resp reserveResponse
	if err := s.actions.Execute(ctx, gateway.ActionReserve, nil, s.payload(req), &resp); err != nil {
		log.WithError(err).Warn("Reservation failed, using sentinel invoice")
		return fallbackOf(sentinelReservation(), FallbackReserveUnavailable, err)
	}

	data := resp.reserveData
	if resp.Data != nil {
		if resp.Data.InvoiceID.Valid {
			data.InvoiceID = resp.Data.InvoiceID
		}
		if resp.Data.BookingCode != "" {
			data.BookingCode = resp.Data.BookingCode
		}
	}

	if !data.InvoiceID.Valid {
		log.Warn("Reservation returned no invoice id, using sentinel invoice")
		res := sentinelReservation()
		if data.BookingCode != "" {
			res.BookingCode = data.BookingCode.String()
		}
		return fallbackOf(res, FallbackReserveUnavailable, errMissingInvoice)
	}

	invoiceID := data.InvoiceID.Value
	res := models.Reservation{
		InvoiceID:   &invoiceID,
		BookingCode: firstNonEmpty(data.BookingCode.String(), newBookingCode()),
		Sentinel:    invoiceID == models.SentinelInvoiceID,
	}

	log.WithFields(logrus.Fields{
		"invoice_id":   invoiceID,
		"booking_code": res.BookingCode,
	}).Info("Reservation committed")

	return resultOf(res)
}

// RegisterPayment marks the invoice as paid
func (s *ReservationService) RegisterPayment(ctx context.Context, invoiceID int64) error {
	if invoiceID == models.SentinelInvoiceID {
		return fmt.Errorf("refusing to register payment for sentinel invoice %d", invoiceID)
	}
	if err := s.actions.Execute(ctx, gateway.ActionRegisterPayment, nil, registerPaymentRequest{InvoiceID: invoiceID}, nil); err != nil {
		return fmt.Errorf("failed to register payment for invoice %d: %w", invoiceID, err)
	}
	s.logger.WithField("invoice_id", invoiceID).Info("Payment registered")
	return nil
}

func sentinelReservation() models.Reservation {
	id := models.SentinelInvoiceID
	return models.Reservation{
		InvoiceID:   &id,
		BookingCode: newBookingCode(),
		Sentinel:    true,
	}
}

// newBookingCode generates a local booking code of the form AM-XXXXXXXX
func newBookingCode() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "AM-" + strings.ToUpper(hex[:8])
}
