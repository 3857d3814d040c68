package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/internal/services"
	"github.com/automas/booking-engine/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// respondError maps err to a JSON error response
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{
		"error":   apperr.Kind(err),
		"message": err.Error(),
	}

	var unavailable *services.PaymentUnavailableError
	if errors.As(err, &unavailable) {
		body["payment_id"] = unavailable.PaymentID
		body["message"] = "Payment system unavailable"
	}

	entry := logger.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		if status == http.StatusInternalServerError {
			body["message"] = "Internal server error"
		}
	} else {
		entry.Warn("Request rejected")
	}

	c.JSON(status, body)
}

// badRequest reports a body or query that could not be bound
func badRequest(c *gin.Context, message string, err error) {
	body := gin.H{
		"error":   "invalid_request",
		"message": message,
	}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, body)
}

// wizardID parses the :id path parameter
func wizardID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "Invalid wizard ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// coordinatesFrom reads the optional lat/lng query pair. Both must be present and valid.
func coordinatesFrom(c *gin.Context) (*models.Coordinates, error) {
	latRaw, lngRaw := strings.TrimSpace(c.Query("lat")), strings.TrimSpace(c.Query("lng"))
	if latRaw == "" && lngRaw == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || !finite(lat) || lat < -90 || lat > 90 {
		return nil, errors.New("lat must be a number between -90 and 90")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || !finite(lng) || lng < -180 || lng > 180 {
		return nil, errors.New("lng must be a number between -180 and 180")
	}
	return &models.Coordinates{Lat: lat, Lng: lng}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// clientInfo captures the browser details kept in the payment audit trail
func clientInfo(c *gin.Context) services.ClientInfo {
	userAgent := utils.GetUserAgent(c)
	device, _ := models.ToJSONB(utils.ParseUserAgent(userAgent))
	return services.ClientInfo{
		IP:        utils.GetRealIP(c),
		UserAgent: userAgent,
		Device:    device,
	}
}
