package services

import (
	"context"
	"errors"
	"testing"

	"github.com/automas/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSMS struct {
	mock.Mock
}

func (m *mockSMS) Send(ctx context.Context, phone, message string) (int64, error) {
	args := m.Called(phone, message)
	return int64(args.Int(0)), args.Error(1)
}

func (m *mockSMS) Name() string { return "mock" }

func TestAlertService_FinalizeFailedNotifiesSupport(t *testing.T) {
	gw := new(mockSMS)
	gw.On("Send", "3001112233", mock.MatchedBy(func(msg string) bool {
		return assert.Contains(t, msg, "pago p1") && assert.Contains(t, msg, "placa ABC123")
	})).Return(1, nil).Once()

	alerts := NewAlertService(gw, "3001112233", quietLogger())
	alerts.FinalizeFailed(context.Background(), FinalizeFailure{
		PaymentID: "p1",
		Vertical:  models.VerticalRTM,
		Plate:     "ABC123",
		Cause:     errors.New("backend down"),
	})

	gw.AssertExpectations(t)
}

func TestAlertService_NoSupportPhone(t *testing.T) {
	gw := new(mockSMS)
	alerts := NewAlertService(gw, "", quietLogger())

	alerts.FinalizeFailed(context.Background(), FinalizeFailure{PaymentID: "p1"})
	gw.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestAlertService_PaymentConfirmed(t *testing.T) {
	gw := new(mockSMS)
	gw.On("Send", "3001234567", mock.Anything).Return(0, errors.New("gateway down")).Once()
	alerts := NewAlertService(gw, "", quietLogger())

	summary := rtmSummary()
	summary.Phone = "3001234567"

	// send failures are swallowed
	alerts.PaymentConfirmed(context.Background(), summary, "F-ABCDEF12")
	gw.AssertExpectations(t)

	summary.Phone = ""
	alerts.PaymentConfirmed(context.Background(), summary, "F-ABCDEF12")
	gw.AssertNumberOfCalls(t, "Send", 1)
}
