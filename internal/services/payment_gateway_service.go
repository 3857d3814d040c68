package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultPlate is sent when the payment is not tied to a vehicle
const DefaultPlate = "SIN-PLACA"

// PaymentEventRecorder persists payment audit events
type PaymentEventRecorder interface {
	Record(ctx context.Context, event *models.PaymentEvent) error
}

// PaymentGatewayService talks to the payment link API
type PaymentGatewayService struct {
	client gateway.Doer
	config *config.PaymentConfig
	events PaymentEventRecorder
	logger *logrus.Logger
}

// NewPaymentGatewayService creates a new payment gateway service
func NewPaymentGatewayService(client gateway.Doer, cfg *config.PaymentConfig, events PaymentEventRecorder, logger *logrus.Logger) *PaymentGatewayService {
	return &PaymentGatewayService{
		client: client,
		config: cfg,
		events: events,
		logger: logger,
	}
}

// PaymentProject is the project and payment method links are generated for
type PaymentProject struct {
	Code   string `json:"code"`
	Method string `json:"method"`
}

type projectResponse struct {
	Code        flexString `json:"codigo_proyecto"`
	Active      *bool      `json:"estado"`
	PaymentMode *struct {
		Code   flexString `json:"codigo"`
		Active *bool      `json:"activo"`
	} `json:"medio_de_pago"`
}

// LinkRequest holds everything needed to generate a payment link
type LinkRequest struct {
	Project      PaymentProject
	ServiceLabel string
	Amount       int64
	Plate        string
	Location     string
	VehicleType  string
	URLs         models.ReturnURLs

	// audit context
	SessionID   string
	BookingCode string
	Client      ClientInfo
}

type linkPayload struct {
	Project      string            `json:"proyecto"`
	Method       string            `json:"medio_pago"`
	ServiceLabel string            `json:"servicio_label"`
	Amount       int64             `json:"valor"`
	Plate        string            `json:"placa_vehiculo"`
	Location     *string           `json:"sede"`
	VehicleType  *string           `json:"servicio_tipovehiculo"`
	URLs         models.ReturnURLs `json:"urls"`
}

// LinkResponse is the gateway's answer to a link request. PaymentLink may be empty.
type LinkResponse struct {
	PaymentID    string `json:"pago_id"`
	PreferenceID string `json:"preference_id"`
	PaymentLink  string `json:"payment_link"`
}

type linkResponse struct {
	PaymentID    flexString `json:"pago_id"`
	PreferenceID flexString `json:"preference_id"`
	PaymentLink  flexString `json:"payment_link"`
}

type statusResponse struct {
	Status  flexString `json:"estado"`
	Details *struct {
		InitPoint flexString `json:"init_point"`
	} `json:"detalles_gateway"`
}

// ClientInfo is the browser request metadata attached to audit events
type ClientInfo struct {
	IP        string
	UserAgent string
	Device    models.JSONB
}

// ResolveProject looks up the payment project. Any failure falls back to the configured method.
func (s *PaymentGatewayService) ResolveProject(ctx context.Context) PaymentProject {
	project := PaymentProject{Code: s.config.ProjectCode, Method: s.config.PaymentMethod}

	var resp projectResponse
	endpoint := fmt.Sprintf("api/proyecto-pagos/%s/", url.PathEscape(s.config.ProjectCode))
	if err := s.client.Do(ctx, http.MethodGet, endpoint, nil, nil, &resp); err != nil {
		s.logger.WithError(err).Warn("Payment project lookup failed, using default payment method")
		return project
	}

	if resp.PaymentMode != nil && resp.PaymentMode.Code != "" &&
		(resp.PaymentMode.Active == nil || *resp.PaymentMode.Active) {
		project.Method = resp.PaymentMode.Code.String()
	}
	return project
}

// GenerateLink asks the gateway for a payment link
func (s *PaymentGatewayService) GenerateLink(ctx context.Context, req LinkRequest) (*LinkResponse, error) {
	payload := linkPayload{
		Project:      req.Project.Code,
		Method:       req.Project.Method,
		ServiceLabel: req.ServiceLabel,
		Amount:       req.Amount,
		Plate:        firstNonEmpty(req.Plate, DefaultPlate),
		Location:     optional(req.Location),
		VehicleType:  optional(req.VehicleType),
		URLs:         req.URLs,
	}

	const endpoint = "api/pagos/generar-link/"

	event := models.NewPaymentEvent(models.PaymentEventInitiated, models.PaymentSourceGateway).
		SetSession(req.SessionID).
		SetBookingCode(req.BookingCode).
		SetAmount(req.Amount).
		SetClient(req.Client.IP, req.Client.UserAgent, req.Client.Device)
	if body, err := models.ToJSONB(payload); err == nil {
		event.SetRequest(body)
	}

	var raw linkResponse
	err := s.client.Do(ctx, http.MethodPost, endpoint, nil, payload, &raw)
	resp := LinkResponse{
		PaymentID:    raw.PaymentID.String(),
		PreferenceID: raw.PreferenceID.String(),
		PaymentLink:  raw.PaymentLink.String(),
	}
	event.SetHTTP(statusCodeOf(err), endpoint).SetError(err)
	if err == nil {
		event.SetPaymentID(resp.PaymentID)
		if body, jerr := models.ToJSONB(resp); jerr == nil {
			event.SetResponse(body)
		}
	} else {
		event.EventType = models.PaymentEventError
	}
	s.record(ctx, event)

	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"amount":       req.Amount,
			"booking_code": req.BookingCode,
			"error":        err.Error(),
		}).Error("Failed to generate payment link")
		return nil, fmt.Errorf("failed to generate payment link: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"payment_id":   resp.PaymentID,
		"has_link":     resp.PaymentLink != "",
		"booking_code": req.BookingCode,
	}).Info("Payment link requested")

	return &resp, nil
}

// CheckStatus asks the gateway for the state of a payment. A transport failure
// yields status error together with the cause.
func (s *PaymentGatewayService) CheckStatus(ctx context.Context, paymentID string, attempt int) (models.PaymentStatusResult, error) {
	result := models.PaymentStatusResult{PaymentID: paymentID, Status: models.PaymentError}

	endpoint := fmt.Sprintf("api/pagos/%s/verificar-estado/", url.PathEscape(paymentID))

	var resp statusResponse
	err := s.client.Do(ctx, http.MethodGet, endpoint, nil, nil, &resp)

	event := models.NewPaymentEvent(models.PaymentEventStatusCheck, models.PaymentSourceGateway).
		SetPaymentID(paymentID).
		SetHTTP(statusCodeOf(err), endpoint).
		SetError(err)
	if attempt > 0 {
		event.SetAttempt(attempt)
	}

	if err == nil {
		result.RawStatus = resp.Status.String()
		result.Status = models.ParsePaymentStatus(result.RawStatus)
		if resp.Details != nil {
			result.Link = resp.Details.InitPoint.String()
		}
		event.SetStatus(result.Status)
	} else {
		event.SetStatus(models.PaymentError)
	}
	s.record(ctx, event)

	if err != nil {
		return result, fmt.Errorf("failed to check payment status: %w", err)
	}
	return result, nil
}

// record writes an audit event, logging instead of failing the payment flow
func (s *PaymentGatewayService) record(ctx context.Context, event *models.PaymentEvent) {
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

func statusCodeOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
