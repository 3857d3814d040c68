package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOutcomes struct {
	mock.Mock
}

func (m *mockOutcomes) ResolveSuccess(ctx context.Context, sessionID string, query url.Values) (*services.OutcomeView, error) {
	args := m.Called(sessionID, query.Get("pago_id"))
	view, _ := args.Get(0).(*services.OutcomeView)
	return view, args.Error(1)
}

func (m *mockOutcomes) ResolveFailure(ctx context.Context, sessionID string, query url.Values) *services.OutcomeView {
	return m.Called(sessionID, query.Get("pago_id")).Get(0).(*services.OutcomeView)
}

func (m *mockOutcomes) ResolvePending(ctx context.Context, sessionID string, query url.Values) *services.OutcomeView {
	return m.Called(sessionID, query.Get("pago_id")).Get(0).(*services.OutcomeView)
}

func (m *mockOutcomes) ReceiptView(ctx context.Context, sessionID string, query url.Values) (*services.OutcomeView, error) {
	args := m.Called(sessionID, query.Get("pago_id"))
	view, _ := args.Get(0).(*services.OutcomeView)
	return view, args.Error(1)
}

type stubRenderer struct {
	pdf []byte
	err error
}

func (r stubRenderer) Render(view *services.OutcomeView) ([]byte, error) {
	return r.pdf, r.err
}

type approvingChecker struct{}

func (approvingChecker) CheckStatus(ctx context.Context, paymentID string, attempt int) (models.PaymentStatusResult, error) {
	return models.PaymentStatusResult{PaymentID: paymentID, Status: models.PaymentApproved}, nil
}

func outcomeRouter(outcomes Outcomes, renderer ReceiptRenderer) *gin.Engine {
	cfg := config.OutcomeConfig{
		CountdownSeconds:    40,
		PendingPollAttempts: 3,
		PendingPollInterval: time.Millisecond,
	}
	h := NewOutcomeHandler(outcomes, renderer, approvingChecker{}, cfg, quietLogger())

	router := newTestRouter()
	o := router.Group("/api/v1/outcomes")
	o.GET("/success", h.Success)
	o.GET("/success/receipt.pdf", h.Receipt)
	o.GET("/failure", h.Failure)
	o.GET("/pending", h.Pending)
	router.GET("/pago-exitoso", h.Success)
	return router
}

func TestOutcomeHandler_Success(t *testing.T) {
	browser := uuid.NewString()
	m := new(mockOutcomes)
	m.On("ResolveSuccess", browser, "abcd1234efgh").Return(&services.OutcomeView{
		Kind:      services.OutcomeSuccess,
		PaymentID: "abcd1234efgh",
		Reference: "F-ABCD1234",
		Amount:    238000,
		Tax:       45220,
		Finalize:  &services.FinalizeResult{Ran: true, Registered: true},
	}, nil)

	router := outcomeRouter(m, stubRenderer{})

	for _, path := range []string{"/api/v1/outcomes/success?pago_id=abcd1234efgh", "/pago-exitoso?pago_id=abcd1234efgh"} {
		w := perform(router, http.MethodGet, path, nil, sessionCookie(browser))

		require.Equal(t, http.StatusOK, w.Code, path)
		body := decode(t, w)
		assert.Equal(t, "F-ABCD1234", body["reference"])
		assert.Equal(t, float64(45220), body["tax"])
	}
	m.AssertNumberOfCalls(t, "ResolveSuccess", 2)
}

func TestOutcomeHandler_SuccessClaimError(t *testing.T) {
	m := new(mockOutcomes)
	m.On("ResolveSuccess", mock.Anything, "").Return(nil, fmt.Errorf("failed to claim reservation summary: %w", context.DeadlineExceeded))

	w := perform(outcomeRouter(m, stubRenderer{}), http.MethodGet, "/api/v1/outcomes/success", nil)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestOutcomeHandler_Failure(t *testing.T) {
	m := new(mockOutcomes)
	m.On("ResolveFailure", mock.Anything, "pay_77").Return(&services.OutcomeView{
		Kind:        services.OutcomeFailure,
		Reference:   "F-PAY_77",
		RetryPath:   services.RetryPath,
		SupportLink: services.SupportLink("573001112233", "F-PAY_77", 50000),
	})

	w := perform(outcomeRouter(m, stubRenderer{}), http.MethodGet, "/api/v1/outcomes/failure?pago_id=pay_77", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "/", body["retry_path"])
	assert.Contains(t, body["support_link"], "https://wa.me/573001112233?text=")
}

func TestOutcomeHandler_PendingStreamsUntilRedirect(t *testing.T) {
	m := new(mockOutcomes)
	m.On("ResolvePending", mock.Anything, "pay_1").Return(&services.OutcomeView{
		Kind:             services.OutcomePending,
		PaymentID:        "pay_1",
		Reference:        "P-PAY_1",
		CountdownSeconds: 40,
	})

	w := perform(outcomeRouter(m, stubRenderer{}), http.MethodGet, "/api/v1/outcomes/pending?pago_id=pay_1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, "event:view")
	assert.Contains(t, body, "P-PAY_1")
	assert.Contains(t, body, services.MessageConfirmed)
	assert.Contains(t, body, "event:redirect")
	assert.Contains(t, body, "/pago-exitoso?pago_id=pay_1")
}

func TestOutcomeHandler_Receipt(t *testing.T) {
	t.Run("renders pdf", func(t *testing.T) {
		m := new(mockOutcomes)
		m.On("ReceiptView", mock.Anything, "abcd1234").Return(&services.OutcomeView{Reference: "F-ABCD1234"}, nil)

		w := perform(outcomeRouter(m, stubRenderer{pdf: []byte("%PDF-1.3 test")}), http.MethodGet, "/api/v1/outcomes/success/receipt.pdf?pago_id=abcd1234", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "factura-F-ABCD1234.pdf")
		assert.Equal(t, "%PDF-1.3 test", w.Body.String())
	})

	t.Run("nothing to print", func(t *testing.T) {
		m := new(mockOutcomes)
		m.On("ReceiptView", mock.Anything, "").Return(nil, fmt.Errorf("%w: no booking to print for this session", apperr.ErrNotFound))

		w := perform(outcomeRouter(m, stubRenderer{}), http.MethodGet, "/api/v1/outcomes/success/receipt.pdf", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
