package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testBooking() models.BookingRequest {
	return models.BookingRequest{
		Vertical: models.VerticalRTM,
		Plate:    "ABC123",
		Day:      models.Day{Year: 2026, Month: time.March, Day: 12},
		Slot:     "08:00 AM",
		City:     "Bogotá",
		Location: "CDA Norte",
		Customer: models.Customer{
			Name:   "Ana Gómez",
			Phone:  "3001234567",
			Holder: models.Holder{IDType: "cc", ID: "1020304050"},
		},
	}
}

func TestReservationService_Quote(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		err      error
		price    int64
		fallback FallbackReason
	}{
		{"price at top level", `{"price": 310000}`, nil, 310000, FallbackNone},
		{"price in data", `{"data": {"price": "275000"}}`, nil, 275000, FallbackNone},
		{"no price", `{"data": {}}`, nil, models.DefaultQuotePrice, FallbackQuoteUnavailable},
		{"zero price", `{"price": 0}`, nil, models.DefaultQuotePrice, FallbackQuoteUnavailable},
		{"upstream error", "", errors.New("boom"), models.DefaultQuotePrice, FallbackQuoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := new(mockActions)
			actions.On("Execute", gateway.ActionQuote, mock.Anything).Return(tt.raw, tt.err)
			svc := NewReservationService(actions, "automas", quietLogger())

			res := svc.Quote(context.Background(), testBooking())
			assert.Equal(t, tt.price, res.Value.Price)
			assert.Equal(t, tt.fallback, res.Fallback)
			assert.Equal(t, "CDA Norte", res.Value.Location)
		})
	}
}

func TestReservationService_QuoteSendsEstimatedVehicle(t *testing.T) {
	actions := new(mockActions)
	actions.On("Execute", gateway.ActionQuote, mock.MatchedBy(func(p bookingPayload) bool {
		return p.Class == models.DefaultVehicleClass &&
			p.RTMExpiry == "2026-04-09" &&
			p.Location == "CDA Norte" &&
			p.IDType == "Cedula de Ciudadania"
	})).Return(`{"price": 290000}`, nil)
	svc := NewReservationService(actions, "automas", quietLogger())

	expiry := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	req := testBooking()
	req.Vehicle = &models.VehicleProfile{
		Plate:     "ABC123",
		Class:     models.DefaultVehicleClass,
		RTMExpiry: &expiry,
		Source:    models.ProfileEstimated,
	}

	res := svc.Quote(context.Background(), req)
	assert.False(t, res.Degraded())
	actions.AssertExpectations(t)
}

func TestReservationService_Reserve(t *testing.T) {
	actions := new(mockActions)
	actions.On("Execute", gateway.ActionReserve, mock.Anything).Return(`{"data": {"invoice_id": 4521, "codeBooking": "BK-77"}}`, nil)
	svc := NewReservationService(actions, "automas", quietLogger())

	res := svc.Reserve(context.Background(), testBooking())
	require.False(t, res.Degraded())
	require.NotNil(t, res.Value.InvoiceID)
	assert.Equal(t, int64(4521), *res.Value.InvoiceID)
	assert.Equal(t, "BK-77", res.Value.BookingCode)
	assert.True(t, res.Value.Registrable())
}

func TestReservationService_ReserveFallsBackToSentinel(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
		code string
	}{
		{"upstream error", "", errors.New("boom"), ""},
		{"missing invoice", `{"codeBooking": "BK-88"}`, nil, "BK-88"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := new(mockActions)
			actions.On("Execute", gateway.ActionReserve, mock.Anything).Return(tt.raw, tt.err)
			svc := NewReservationService(actions, "automas", quietLogger())

			res := svc.Reserve(context.Background(), testBooking())
			assert.Equal(t, FallbackReserveUnavailable, res.Fallback)
			assert.True(t, res.Value.Sentinel)
			assert.False(t, res.Value.Registrable())
			assert.Equal(t, models.SentinelInvoiceID, *res.Value.InvoiceID)
			if tt.code != "" {
				assert.Equal(t, tt.code, res.Value.BookingCode)
			} else {
				assert.True(t, strings.HasPrefix(res.Value.BookingCode, "AM-"))
				assert.Len(t, res.Value.BookingCode, 11)
			}
		})
	}
}

func TestReservationService_RegisterPayment(t *testing.T) {
	actions := new(mockActions)
	actions.On("Execute", gateway.ActionRegisterPayment, registerPaymentRequest{InvoiceID: 4521}).Return("", nil)
	svc := NewReservationService(actions, "automas", quietLogger())

	require.NoError(t, svc.RegisterPayment(context.Background(), 4521))
	assert.Error(t, svc.RegisterPayment(context.Background(), models.SentinelInvoiceID))
	actions.AssertNumberOfCalls(t, "Execute", 1)
}
