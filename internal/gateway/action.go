package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// ActionEndpoint is the single dispatch endpoint of the scheduling backend
const ActionEndpoint = "wh/transversal/ejecutar-accion/"

// Actions understood by the scheduling backend
const (
	ActionListServices    = "obtener_servicios"
	ActionListCities      = "obtener_ciudades"
	ActionListProviders   = "obtener_proveedores"
	ActionAvailableSlots  = "obtener_horarios_disponibles"
	ActionQuote           = "cotizar"
	ActionReserve         = "agendar"
	ActionRegisterPayment = "registrar_pago"
)

// Doer performs a JSON call against an endpoint
type Doer interface {
	Do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error
}

// ActionClient dispatches named actions
type ActionClient struct {
	doer Doer
}

// NewActionClient wraps a client for action dispatch
func NewActionClient(doer Doer) *ActionClient {
	return &ActionClient{doer: doer}
}

// Execute posts body to the action endpoint with accion=<action> plus any extra query values
func (a *ActionClient) Execute(ctx context.Context, action string, query url.Values, body, out interface{}) error {
	q := url.Values{}
	q.Set("accion", action)
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if body == nil {
		body = struct{}{}
	}
	return a.doer.Do(ctx, http.MethodPost, ActionEndpoint, q, body, out)
}
