package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/automas/booking-engine/internal/middleware"
	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Wizard is the booking wizard driven by WizardHandler
type Wizard interface {
	Start(vertical string) (services.WizardView, error)
	Get(id uuid.UUID) (services.WizardView, error)
	Close(id uuid.UUID) error
	SubmitVehicle(ctx context.Context, id uuid.UUID, req models.VehicleStepRequest) (services.WizardView, error)
	ListServices(ctx context.Context, id uuid.UUID, group string) ([]services.ServiceOption, error)
	SelectService(ctx context.Context, id uuid.UUID, serviceID int) (services.WizardView, error)
	ListLocations(ctx context.Context, id uuid.UUID, city string, origin *models.Coordinates) ([]models.RankedLocation, error)
	SelectLocation(ctx context.Context, id uuid.UUID, locationID int) (services.WizardView, error)
	NearbyLocations(id uuid.UUID, limit int) ([]models.ProviderLocation, error)
	ListSlots(ctx context.Context, id uuid.UUID, date string) (services.SlotOptions, error)
	SelectSlot(ctx context.Context, id uuid.UUID, req models.SelectSlotRequest) (services.WizardView, error)
	Quote(ctx context.Context, id uuid.UUID) (services.WizardView, error)
	ApplyCoupon(ctx context.Context, id uuid.UUID, code string) (models.CouponResult, error)
	Pay(ctx context.Context, id uuid.UUID, sessionID string, req models.PayRequest, client services.ClientInfo) (services.WizardView, error)
}

// WizardHandler exposes the booking wizard over HTTP
type WizardHandler struct {
	wizard Wizard
	logger *logrus.Logger
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(wizard Wizard, logger *logrus.Logger) *WizardHandler {
	return &WizardHandler{
		wizard: wizard,
		logger: logger,
	}
}

// StartRequest opens a wizard
type StartRequest struct {
	Vertical string `json:"vertical" binding:"required"`
}

// SelectServiceRequest picks a service
type SelectServiceRequest struct {
	ServiceID int `json:"service_id" binding:"required"`
}

// SelectLocationRequest picks a provider location
type SelectLocationRequest struct {
	LocationID int `json:"location_id" binding:"required"`
}

// Start handles POST /api/v1/wizard
func (h *WizardHandler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.wizard.Start(req.Vertical)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"wizard_id": view.ID,
		"vertical":  view.Vertical,
	}).Info("Wizard started")

	c.JSON(http.StatusCreated, view)
}

// Get handles GET /api/v1/wizard/:id
func (h *WizardHandler) Get(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	view, err := h.wizard.Get(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Close handles DELETE /api/v1/wizard/:id
func (h *WizardHandler) Close(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	if err := h.wizard.Close(id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitVehicle handles POST /api/v1/wizard/:id/vehicle
func (h *WizardHandler) SubmitVehicle(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req models.VehicleStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.wizard.SubmitVehicle(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListServices handles GET /api/v1/wizard/:id/services
func (h *WizardHandler) ListServices(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	options, err := h.wizard.ListServices(c.Request.Context(), id, c.Query("group"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"services": options,
		"count":    len(options),
	})
}

// SelectService handles POST /api/v1/wizard/:id/service
func (h *WizardHandler) SelectService(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req SelectServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.wizard.SelectService(c.Request.Context(), id, req.ServiceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListLocations handles GET /api/v1/wizard/:id/locations?city&lat&lng
func (h *WizardHandler) ListLocations(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	origin, err := coordinatesFrom(c)
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	locations, err := h.wizard.ListLocations(c.Request.Context(), id, c.Query("city"), origin)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"locations": locations,
		"count":     len(locations),
	})
}

// SelectLocation handles POST /api/v1/wizard/:id/location
func (h *WizardHandler) SelectLocation(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req SelectLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.wizard.SelectLocation(c.Request.Context(), id, req.LocationID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// NearbyLocations handles GET /api/v1/wizard/:id/locations/nearby?limit
func (h *WizardHandler) NearbyLocations(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	limit := 3
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 20 {
			badRequest(c, "limit must be between 1 and 20", nil)
			return
		}
		limit = n
	}

	nearby, err := h.wizard.NearbyLocations(id, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"locations": nearby,
		"count":     len(nearby),
	})
}

// ListSlots handles GET /api/v1/wizard/:id/slots?date=YYYY-MM-DD
func (h *WizardHandler) ListSlots(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		badRequest(c, "date is required", nil)
		return
	}

	options, err := h.wizard.ListSlots(c.Request.Context(), id, date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// SelectSlot handles POST /api/v1/wizard/:id/slot
func (h *WizardHandler) SelectSlot(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req models.SelectSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.wizard.SelectSlot(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Quote handles POST /api/v1/wizard/:id/quote
func (h *WizardHandler) Quote(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	view, err := h.wizard.Quote(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ApplyCoupon handles POST /api/v1/wizard/:id/coupon
func (h *WizardHandler) ApplyCoupon(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req models.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	result, err := h.wizard.ApplyCoupon(c.Request.Context(), id, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Pay handles POST /api/v1/wizard/:id/pay
func (h *WizardHandler) Pay(c *gin.Context) {
	id, ok := wizardID(c)
	if !ok {
		return
	}

	var req models.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	view, err := h.wizard.Pay(c.Request.Context(), id, middleware.SessionID(c), req, clientInfo(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
