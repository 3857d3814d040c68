package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/automas/booking-engine/pkg/validator"
	"github.com/sirupsen/logrus"
)

// errRegistryRejected marks a registry answer carrying its error flag
var errRegistryRejected = errors.New("registry reported an error")

// VehicleService resolves a plate into a vehicle profile through the registry
type VehicleService struct {
	registry gateway.Doer
	client   string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewVehicleService creates a vehicle service. registry must target the lookup URL itself.
func NewVehicleService(registry gateway.Doer, client string, logger *logrus.Logger) *VehicleService {
	return &VehicleService{
		registry: registry,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

type registryRequest struct {
	Plate    string `json:"placa"`
	Client   string `json:"cliente"`
	IDType   string `json:"tipo_identificacion"`
	HolderID string `json:"identificacion"`
}

type registryResponse struct {
	Error   bool             `json:"error"`
	Message string           `json:"message"`
	Data    *registryVehicle `json:"data"`
}

type registryVehicle struct {
	Make         flexString `json:"marca"`
	Line         flexString `json:"linea"`
	Model        flexString `json:"modelo"`
	Class        flexString `json:"claseVehiculo"`
	ServiceType  flexString `json:"tipoServicio"`
	FuelType     flexString `json:"tipoCombustible"`
	Displacement flexString `json:"cilindraje"`
	Color        flexString `json:"color"`
	Plate        flexString `json:"noPlaca"`
	RTMExpiry    flexString `json:"fechaVencimientoRtm"`
}

// ValidateInput normalizes the plate and the holder id, blocking on malformed input
func (s *VehicleService) ValidateInput(plate string, holder models.Holder) (string, models.Holder, error) {
	canonical, _, err := validator.ValidatePlate(plate)
	if err != nil {
		return "", holder, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	idType := strings.ToLower(strings.TrimSpace(holder.IDType))
	if idType == "" {
		idType = validator.IDTypeCitizen
	}
	id, err := validator.ValidateHolderID(idType, holder.ID)
	if err != nil {
		return "", holder, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	return canonical, models.Holder{IDType: idType, ID: id}, nil
}

// Resolve looks the vehicle up in the registry. Upstream failures never surface
// as errors: the caller always gets a usable profile, estimated when needed.
// The only error returned is input validation.
func (s *VehicleService) Resolve(ctx context.Context, plate string, holder models.Holder) (Result[models.VehicleProfile], error) {
	plate, holder, err := s.ValidateInput(plate, holder)
	if err != nil {
		return Result[models.VehicleProfile]{}, err
	}

	req := registryRequest{
		Plate:    plate,
		Client:   s.client,
		IDType:   holder.RegistryLabel(),
		HolderID: holder.ID,
	}

	var resp registryResponse
	if err := s.registry.Do(ctx, http.MethodPost, "", nil, req, &resp); err != nil {
		// A cancelled request has nobody waiting for the fallback
		if ctx.Err() != nil {
			return Result[models.VehicleProfile]{}, ctx.Err()
		}
		s.logger.WithFields(logrus.Fields{
			"plate": plate,
			"error": err.Error(),
		}).Warn("Registry lookup failed, using estimated profile")
		return fallbackOf(s.EstimatedProfile(plate), FallbackRegistryUnavailable, err), nil
	}

	if resp.Error {
		s.logger.WithFields(logrus.Fields{
			"plate":   plate,
			"message": resp.Message,
		}).Warn("Registry rejected lookup, using estimated profile")
		return fallbackOf(s.EstimatedProfile(plate), FallbackRegistryUnavailable, fmt.Errorf("%w: %s", errRegistryRejected, resp.Message)), nil
	}

	profile, ok := s.adaptVehicle(plate, resp.Data)
	if !ok {
		s.logger.WithField("plate", plate).Info("Registry returned no usable data, using estimated profile")
		return fallbackOf(s.EstimatedProfile(plate), FallbackRegistryEmpty, nil), nil
	}

	s.logger.WithFields(logrus.Fields{
		"plate": plate,
		"make":  profile.Make,
		"class": profile.Class,
	}).Info("Vehicle resolved from registry")

	return resultOf(profile), nil
}

// EstimatedProfile builds the default profile used when the registry cannot help
func (s *VehicleService) EstimatedProfile(plate string) models.VehicleProfile {
	expiry := s.now().AddDate(0, 0, models.DefaultRTMExpiryDays)
	return models.VehicleProfile{
		Plate:       validator.NormalizePlate(plate),
		Class:       models.DefaultVehicleClass,
		ServiceType: models.DefaultServiceType,
		FuelType:    models.DefaultFuelType,
		RTMExpiry:   &expiry,
		Source:      models.ProfileEstimated,
	}
}

// adaptVehicle maps the registry record. A record with neither make nor class is unusable.
func (s *VehicleService) adaptVehicle(plate string, data *registryVehicle) (models.VehicleProfile, bool) {
	if data == nil || (data.Make == "" && data.Class == "") {
		return models.VehicleProfile{}, false
	}

	profile := models.VehicleProfile{
		Plate:       plate,
		Make:        data.Make.String(),
		Line:        data.Line.String(),
		ModelYear:   data.Model.String(),
		Class:       firstNonEmpty(data.Class.String(), models.DefaultVehicleClass),
		ServiceType: firstNonEmpty(data.ServiceType.String(), models.DefaultServiceType),
		FuelType:    firstNonEmpty(data.FuelType.String(), models.DefaultFuelType),
		Color:       data.Color.String(),
		Source:      models.ProfileVerified,
	}

	if registered := validator.NormalizePlate(data.Plate.String()); registered != "" {
		profile.Plate = registered
	}

	if cc, err := strconv.Atoi(strings.TrimSpace(data.Displacement.String())); err == nil {
		profile.Displacement = cc
	}

	if expiry, ok := parseRegistryDate(data.RTMExpiry.String()); ok {
		profile.RTMExpiry = &expiry
	}

	return profile, true
}

func parseRegistryDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
