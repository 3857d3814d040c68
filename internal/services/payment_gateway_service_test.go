package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingDoer records the last call and answers with raw
type capturingDoer struct {
	raw      string
	err      error
	method   string
	endpoint string
	body     []byte
}

func (c *capturingDoer) Do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	c.method = method
	c.endpoint = endpoint
	if body != nil {
		c.body, _ = json.Marshal(body)
	}
	if c.err != nil {
		return c.err
	}
	if c.raw != "" && out != nil {
		return json.Unmarshal([]byte(c.raw), out)
	}
	return nil
}

func testPaymentConfig() *config.PaymentConfig {
	return &config.PaymentConfig{ProjectCode: "pagina_web", PaymentMethod: "mercadopago"}
}

func TestResolveProject(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		err      error
		expected string
	}{
		{"active mode wins", `{"codigo_proyecto":"pagina_web","medio_de_pago":{"codigo":"wompi","activo":true}}`, nil, "wompi"},
		{"inactive mode ignored", `{"medio_de_pago":{"codigo":"wompi","activo":false}}`, nil, "mercadopago"},
		{"mode without flag", `{"medio_de_pago":{"codigo":"payu"}}`, nil, "payu"},
		{"lookup fails", "", errors.New("connection refused"), "mercadopago"},
		{"no mode", `{"codigo_proyecto":"pagina_web"}`, nil, "mercadopago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &capturingDoer{raw: tt.raw, err: tt.err}
			svc := NewPaymentGatewayService(doer, testPaymentConfig(), nil, quietLogger())

			project := svc.ResolveProject(context.Background())

			assert.Equal(t, "pagina_web", project.Code)
			assert.Equal(t, tt.expected, project.Method)
			assert.Equal(t, "api/proyecto-pagos/pagina_web/", doer.endpoint)
		})
	}
}

func TestGenerateLink(t *testing.T) {
	doer := &capturingDoer{raw: `{"pago_id": 98765, "preference_id": "pref-1", "payment_link": null}`}
	events := &memEvents{}
	svc := NewPaymentGatewayService(doer, testPaymentConfig(), events, quietLogger())

	resp, err := svc.GenerateLink(context.Background(), LinkRequest{
		Project:      PaymentProject{Code: "pagina_web", Method: "mercadopago"},
		ServiceLabel: "Placa: ABC123 - RTM Livianos",
		Amount:       238000,
		SessionID:    "sess-1",
		BookingCode:  "AB12CD",
	})
	require.NoError(t, err)

	assert.Equal(t, "98765", resp.PaymentID)
	assert.Equal(t, "pref-1", resp.PreferenceID)
	assert.Empty(t, resp.PaymentLink)

	assert.Equal(t, http.MethodPost, doer.method)
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(doer.body, &sent))
	assert.Equal(t, DefaultPlate, sent["placa_vehiculo"])
	assert.Nil(t, sent["sede"])
	assert.Equal(t, float64(238000), sent["valor"])

	require.Equal(t, []models.PaymentEventType{models.PaymentEventInitiated}, events.types())
	event := events.events[0]
	require.NotNil(t, event.PaymentID)
	assert.Equal(t, "98765", *event.PaymentID)
	assert.Equal(t, http.StatusOK, *event.HTTPStatusCode)
}

func TestGenerateLink_UpstreamError(t *testing.T) {
	doer := &capturingDoer{err: &gateway.StatusError{StatusCode: http.StatusBadGateway, Endpoint: "api/pagos/generar-link/"}}
	events := &memEvents{}
	svc := NewPaymentGatewayService(doer, testPaymentConfig(), events, quietLogger())

	_, err := svc.GenerateLink(context.Background(), LinkRequest{Amount: 1000})

	require.Error(t, err)
	var statusErr *gateway.StatusError
	assert.True(t, errors.As(err, &statusErr))

	require.Equal(t, []models.PaymentEventType{models.PaymentEventError}, events.types())
	assert.Equal(t, http.StatusBadGateway, *events.events[0].HTTPStatusCode)
	assert.NotNil(t, events.events[0].ErrorMessage)
}

func TestCheckStatus(t *testing.T) {
	t.Run("approved with link", func(t *testing.T) {
		doer := &capturingDoer{raw: `{"estado":"Aprobado","detalles_gateway":{"init_point":"https://pay.example/c/1"}}`}
		events := &memEvents{}
		svc := NewPaymentGatewayService(doer, testPaymentConfig(), events, quietLogger())

		res, err := svc.CheckStatus(context.Background(), "pay 1", 3)
		require.NoError(t, err)

		assert.Equal(t, models.PaymentApproved, res.Status)
		assert.Equal(t, "Aprobado", res.RawStatus)
		assert.Equal(t, "https://pay.example/c/1", res.Link)
		assert.Equal(t, "api/pagos/pay%201/verificar-estado/", doer.endpoint)

		require.Len(t, events.events, 1)
		assert.Equal(t, 3, *events.events[0].Attempt)
		assert.Equal(t, string(models.PaymentApproved), *events.events[0].PaymentStatus)
	})

	t.Run("unknown status is pending", func(t *testing.T) {
		svc := NewPaymentGatewayService(&capturingDoer{raw: `{"estado":"en_proceso"}`}, testPaymentConfig(), nil, quietLogger())

		res, err := svc.CheckStatus(context.Background(), "pay_2", 0)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPending, res.Status)
		assert.Empty(t, res.Link)
	})

	t.Run("transport failure reports error status", func(t *testing.T) {
		events := &memEvents{}
		svc := NewPaymentGatewayService(&capturingDoer{err: context.DeadlineExceeded}, testPaymentConfig(), events, quietLogger())

		res, err := svc.CheckStatus(context.Background(), "pay_3", 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, models.PaymentError, res.Status)

		require.Len(t, events.events, 1)
		assert.Nil(t, events.events[0].Attempt)
		assert.Nil(t, events.events[0].HTTPStatusCode)
	})
}
