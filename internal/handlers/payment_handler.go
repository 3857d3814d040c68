package handlers

import (
	"context"
	"net/http"

	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentStatusChecker reports the gateway state of a payment
type PaymentStatusChecker interface {
	CheckStatus(ctx context.Context, paymentID string) (models.PaymentStatusResult, error)
}

// PaymentHandler serves coupon checks and payment status lookups
type PaymentHandler struct {
	payments PaymentStatusChecker
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments PaymentStatusChecker, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// ValidateCoupon handles POST /api/v1/payments/coupons/validate
func (h *PaymentHandler) ValidateCoupon(c *gin.Context) {
	var req models.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	c.JSON(http.StatusOK, services.ValidateCoupon(req.Code, req.Amount))
}

// Status handles GET /api/v1/payments/:id/status
func (h *PaymentHandler) Status(c *gin.Context) {
	result, err := h.payments.CheckStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
