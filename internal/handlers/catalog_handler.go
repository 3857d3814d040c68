package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Catalog lists the cities and provider locations offered by the scheduling backend
type Catalog interface {
	ListCities(ctx context.Context) ([]models.City, error)
	ListLocations(ctx context.Context, vertical models.Vertical, city string, serviceID *int) ([]models.ProviderLocation, error)
}

// CatalogHandler serves catalog lookups that do not need a wizard
type CatalogHandler struct {
	catalog Catalog
	logger  *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog Catalog, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// ListCities handles GET /api/v1/catalog/cities
func (h *CatalogHandler) ListCities(c *gin.Context) {
	cities, err := h.catalog.ListCities(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cities": cities,
		"count":  len(cities),
	})
}

// ListLocations handles GET /api/v1/catalog/locations?vertical&city&service_id&lat&lng
func (h *CatalogHandler) ListLocations(c *gin.Context) {
	vertical, err := models.ParseVertical(strings.ToLower(strings.TrimSpace(c.DefaultQuery("vertical", string(models.VerticalRTM)))))
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	var serviceID *int
	if raw := c.Query("service_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "service_id must be a number", nil)
			return
		}
		serviceID = &id
	}

	origin, err := coordinatesFrom(c)
	if err != nil {
		badRequest(c, err.Error(), nil)
		return
	}

	locations, err := h.catalog.ListLocations(c.Request.Context(), vertical, c.Query("city"), serviceID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ranked := services.RankLocations(locations, origin)
	c.JSON(http.StatusOK, gin.H{
		"locations": ranked,
		"count":     len(ranked),
	})
}
