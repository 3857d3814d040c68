package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/automas/booking-engine/internal/config"
	"github.com/automas/booking-engine/internal/middleware"
	"github.com/automas/booking-engine/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Outcomes resolves the pages the payment gateway redirects back to
type Outcomes interface {
	ResolveSuccess(ctx context.Context, sessionID string, query url.Values) (*services.OutcomeView, error)
	ResolveFailure(ctx context.Context, sessionID string, query url.Values) *services.OutcomeView
	ResolvePending(ctx context.Context, sessionID string, query url.Values) *services.OutcomeView
	ReceiptView(ctx context.Context, sessionID string, query url.Values) (*services.OutcomeView, error)
}

// ReceiptRenderer renders the printable receipt of a paid booking
type ReceiptRenderer interface {
	Render(view *services.OutcomeView) ([]byte, error)
}

// OutcomeHandler serves the success, failure and pending return pages
type OutcomeHandler struct {
	outcomes Outcomes
	receipts ReceiptRenderer
	checker  services.StatusChecker
	config   config.OutcomeConfig
	logger   *logrus.Logger
}

// NewOutcomeHandler creates a new outcome handler
func NewOutcomeHandler(outcomes Outcomes, receipts ReceiptRenderer, checker services.StatusChecker, cfg config.OutcomeConfig, logger *logrus.Logger) *OutcomeHandler {
	return &OutcomeHandler{
		outcomes: outcomes,
		receipts: receipts,
		checker:  checker,
		config:   cfg,
		logger:   logger,
	}
}

// Success handles GET /api/v1/outcomes/success and /pago-exitoso
func (h *OutcomeHandler) Success(c *gin.Context) {
	view, err := h.outcomes.ResolveSuccess(c.Request.Context(), middleware.SessionID(c), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Failure handles GET /api/v1/outcomes/failure and /pago-fallido
func (h *OutcomeHandler) Failure(c *gin.Context) {
	view := h.outcomes.ResolveFailure(c.Request.Context(), middleware.SessionID(c), c.Request.URL.Query())
	c.JSON(http.StatusOK, view)
}

// Pending handles GET /api/v1/outcomes/pending and /pago-pendiente.
// The response is an event stream: the page data first, then watcher progress
// and countdown ticks until a redirect event.
func (h *OutcomeHandler) Pending(c *gin.Context) {
	ctx := c.Request.Context()
	view := h.outcomes.ResolvePending(ctx, middleware.SessionID(c), c.Request.URL.Query())

	log := h.logger.WithFields(logrus.Fields{
		"payment_id": view.PaymentID,
		"reference":  view.Reference,
	})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("view", view)
	c.Writer.Flush()

	session := services.NewOutcomeSession(
		h.checker,
		view.PaymentID,
		h.config.PendingPollAttempts,
		h.config.PendingPollInterval,
		h.config.CountdownSeconds,
		h.logger,
	)

	events := make(chan services.OutcomeEvent)
	done := make(chan error, 1)
	go func() {
		err := session.Run(ctx, events)
		close(events)
		done <- err
	}()

	for ev := range events {
		c.SSEvent(string(ev.Type), ev)
		c.Writer.Flush()
	}

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Warn("Pending page stream ended with error")
		return
	}
	log.Debug("Pending page stream closed")
}

// Receipt handles GET /api/v1/outcomes/success/receipt.pdf
func (h *OutcomeHandler) Receipt(c *gin.Context) {
	view, err := h.outcomes.ReceiptView(c.Request.Context(), middleware.SessionID(c), c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	pdf, err := h.receipts.Render(view)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="factura-`+view.Reference+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
