package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/automas/booking-engine/internal/middleware"
	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentEventLister reads the payment audit trail
type PaymentEventLister interface {
	ListByPaymentID(ctx context.Context, paymentID string) ([]*models.PaymentEvent, error)
}

// UnmappedReporter reports service ids the catalog could not name
type UnmappedReporter interface {
	UnmappedServiceIDs() map[int]int64
}

// JobReporter reports the scheduled maintenance jobs
type JobReporter interface {
	JobStatus() map[string]interface{}
}

// AdminHandler serves the operator endpoints
type AdminHandler struct {
	events   PaymentEventLister
	handoffs services.HandoffPurger
	catalog  UnmappedReporter
	jobs     JobReporter
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	events PaymentEventLister,
	handoffs services.HandoffPurger,
	catalog UnmappedReporter,
	jobs JobReporter,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		events:   events,
		handoffs: handoffs,
		catalog:  catalog,
		jobs:     jobs,
		logger:   logger,
	}
}

// PaymentEvents handles GET /api/v1/admin/payments/:id/events
func (h *AdminHandler) PaymentEvents(c *gin.Context) {
	paymentID := strings.TrimSpace(c.Param("id"))
	if paymentID == "" {
		badRequest(c, "payment id is required", nil)
		return
	}

	events, err := h.events.ListByPaymentID(c.Request.Context(), paymentID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id": paymentID,
		"events":     events,
		"count":      len(events),
	})
}

// PurgeHandoffs handles POST /api/v1/admin/handoffs/purge
func (h *AdminHandler) PurgeHandoffs(c *gin.Context) {
	removed, err := h.handoffs.Purge(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry := h.logger.WithField("removed", removed)
	if operator, ok := middleware.GetOperatorContext(c); ok {
		entry = entry.WithField("operator_id", operator.OperatorID)
	}
	entry.Info("Handoff records purged on demand")

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// UnmappedServiceIDs handles GET /api/v1/admin/catalog/unmapped
func (h *AdminHandler) UnmappedServiceIDs(c *gin.Context) {
	counts := h.catalog.UnmappedServiceIDs()

	type unmapped struct {
		ServiceID int   `json:"service_id"`
		Seen      int64 `json:"seen"`
	}
	items := make([]unmapped, 0, len(counts))
	for id, seen := range counts {
		items = append(items, unmapped{ServiceID: id, Seen: seen})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Seen != items[j].Seen {
			return items[i].Seen > items[j].Seen
		}
		return items[i].ServiceID < items[j].ServiceID
	})

	c.JSON(http.StatusOK, gin.H{
		"unmapped": items,
		"count":    len(items),
	})
}

// Jobs handles GET /api/v1/admin/jobs
func (h *AdminHandler) Jobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.JobStatus())
}
