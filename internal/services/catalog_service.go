package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNoServicesForVehicle is returned when the catalog has nothing to offer for a vehicle
var ErrNoServicesForVehicle = fmt.Errorf("%w: no services available for this vehicle", apperr.ErrNotFound)

// ActionExecutor dispatches a named backend action
type ActionExecutor interface {
	Execute(ctx context.Context, action string, query url.Values, body, out interface{}) error
}

// CatalogService resolves services, cities and provider locations
type CatalogService struct {
	actions ActionExecutor
	names   *ServiceNames
	client  string
	logger  *logrus.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(actions ActionExecutor, names *ServiceNames, client string, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		actions: actions,
		names:   names,
		client:  client,
		logger:  logger,
	}
}

type serviceRecord struct {
	ID          flexInt64  `json:"id"`
	Name        flexString `json:"name"`
	Nombre      flexString `json:"nombre"`
	Description flexString `json:"description"`
	Descripcion flexString `json:"descripcion"`
	Price       flexInt64  `json:"price"`
	Precio      flexInt64  `json:"precio"`
	Group       flexString `json:"grupo_servicio"`
}

type cityRecord struct {
	ID     flexInt64  `json:"id"`
	Name   flexString `json:"name"`
	Nombre flexString `json:"nombre"`
}

type locationRecord struct {
	ID             flexInt64   `json:"id"`
	Name           flexString  `json:"name"`
	City           flexString  `json:"ciudad"`
	FullAddress    flexString  `json:"full_address"`
	Direccion      flexString  `json:"direccion"`
	Address1       flexString  `json:"address1"`
	Address2       flexString  `json:"address2"`
	Address        flexString  `json:"address"`
	Phone          flexString  `json:"phone"`
	Telefono       flexString  `json:"telefono"`
	PicturePreview flexString  `json:"picture_preview"`
	Picture        flexString  `json:"picture"`
	Lat            flexFloat   `json:"lat"`
	Lng            flexFloat   `json:"lng"`
	Services       []flexInt64 `json:"services"`
}

// ListServices returns the offerings of a group for the given vehicle
func (s *CatalogService) ListServices(ctx context.Context, vertical models.Vertical, group string, vehicle models.VehicleProfile) ([]models.ServiceOffering, error) {
	if group == "" {
		group = vertical.DefaultServiceGroup()
	}

	query := url.Values{}
	query.Set("grupo_servicio", group)
	query.Set("servicios_por_placa", "true")
	query.Set("placa", vehicle.Plate)
	query.Set("cliente", s.client)
	setIfNotEmpty(query, "tipo_combustible", vehicle.FuelType)
	setIfNotEmpty(query, "modelo", vehicle.ModelYear)
	setIfNotEmpty(query, "tipo_servicio", vehicle.ServiceType)
	setIfNotEmpty(query, "clase_vehiculo", vehicle.Class)

	var resp struct {
		Data []serviceRecord `json:"data"`
	}
	if err := s.actions.Execute(ctx, gateway.ActionListServices, query, nil, &resp); err != nil {
		return nil, upstreamError(ctx, "list services", err)
	}

	services := make([]models.ServiceOffering, 0, len(resp.Data))
	for _, rec := range resp.Data {
		name := firstNonEmpty(rec.Name.String(), rec.Nombre.String())
		if name == "" {
			s.logger.WithFields(logrus.Fields{
				"service_id": rec.ID.Value,
				"group":      group,
			}).Debug("Skipping service offering without a name")
			continue
		}

		price := rec.Price
		if !price.Valid {
			price = rec.Precio
		}
		offering := models.ServiceOffering{
			ID:          int(rec.ID.Value),
			Name:        name,
			Description: firstNonEmpty(rec.Description.String(), rec.Descripcion.String()),
			Price:       price.Value,
			Group:       firstNonEmpty(rec.Group.String(), group),
		}
		if offering.Price < 0 {
			offering.Price = 0
		}
		services = append(services, offering)
	}

	if len(services) == 0 {
		s.logger.WithFields(logrus.Fields{
			"plate": vehicle.Plate,
			"group": group,
		}).Info("No services available for vehicle")
		return nil, ErrNoServicesForVehicle
	}

	return services, nil
}

// ListCities returns the cities with providers
func (s *CatalogService) ListCities(ctx context.Context) ([]models.City, error) {
	var resp struct {
		Data []cityRecord `json:"data"`
	}
	if err := s.actions.Execute(ctx, gateway.ActionListCities, nil, nil, &resp); err != nil {
		return nil, upstreamError(ctx, "list cities", err)
	}

	cities := make([]models.City, 0, len(resp.Data))
	for _, rec := range resp.Data {
		name := firstNonEmpty(rec.Name.String(), rec.Nombre.String())
		if name == "" {
			continue
		}
		cities = append(cities, models.City{ID: int(rec.ID.Value), Name: name})
	}
	return cities, nil
}

// ListLocations returns the provider locations of a city for a vertical.
// With a serviceID only locations advertising that service are kept.
func (s *CatalogService) ListLocations(ctx context.Context, vertical models.Vertical, city string, serviceID *int) ([]models.ProviderLocation, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, fmt.Errorf("%w: city is required", apperr.ErrValidation)
	}

	query := url.Values{}
	query.Set("ciudad", city)
	query.Set("from_flow", vertical.Flow())
	if serviceID != nil {
		query.Set("services__contains", strconv.Itoa(*serviceID))
	}

	var resp struct {
		Data []locationRecord `json:"data"`
	}
	if err := s.actions.Execute(ctx, gateway.ActionListProviders, query, nil, &resp); err != nil {
		return nil, upstreamError(ctx, "list locations", err)
	}

	seen := make(map[string]bool, len(resp.Data))
	used := make(map[int]bool, len(resp.Data))
	locations := make([]models.ProviderLocation, 0, len(resp.Data))
	for _, rec := range resp.Data {
		loc := s.adaptLocation(rec, city, vertical)

		key := locationKey(loc, rec.ID.Valid)
		if seen[key] {
			continue
		}
		seen[key] = true

		if !rec.ID.Valid {
			loc.ID = syntheticLocationID(key, used)
		}
		used[loc.ID] = true

		if serviceID != nil && !rawOffers(rec, *serviceID) {
			continue
		}
		locations = append(locations, loc)
	}

	return locations, nil
}

// UnmappedServiceIDs returns the service ids seen without a display name
func (s *CatalogService) UnmappedServiceIDs() map[int]int64 {
	return s.names.Unmapped()
}

func (s *CatalogService) adaptLocation(rec locationRecord, city string, vertical models.Vertical) models.ProviderLocation {
	loc := models.ProviderLocation{
		ID:   int(rec.ID.Value),
		Name: rec.Name.String(),
		City: firstNonEmpty(rec.City.String(), city),
		Address: firstNonEmpty(
			rec.FullAddress.String(),
			rec.Direccion.String(),
			rec.Address1.String(),
			rec.Address2.String(),
			rec.Address.String(),
		),
		Phone:    firstNonEmpty(rec.Phone.String(), rec.Telefono.String()),
		PhotoURL: firstNonEmpty(rec.PicturePreview.String(), rec.Picture.String(), models.DefaultLocationPhoto),
		Lat:      rec.Lat.ptr(),
		Lng:      rec.Lng.ptr(),
		Services: []models.ServiceRef{},
		Flows:    []string{string(vertical)},
	}

	for _, raw := range rec.Services {
		if !raw.Valid {
			continue
		}
		id := int(raw.Value)
		name, ok := s.names.Lookup(id)
		if !ok {
			s.logger.WithFields(logrus.Fields{
				"location_id": loc.ID,
				"service_id":  id,
			}).Debug("Dropping unmapped service id")
			continue
		}
		loc.Services = append(loc.Services, models.ServiceRef{ID: id, Name: name})
	}

	return loc
}

// locationKey identifies a physical location: its id, or name and address when the id is missing
func locationKey(loc models.ProviderLocation, hasID bool) string {
	if hasID {
		return "id:" + strconv.Itoa(loc.ID)
	}
	return "na:" + strings.ToLower(loc.Name) + "|" + strings.ToLower(loc.Address)
}

// syntheticLocationID derives a negative id from the name and address key of a location
// the upstream listed without one. Negative ids never clash with upstream ids.
func syntheticLocationID(key string, used map[int]bool) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	id := -int(h.Sum32()&math.MaxInt32) - 1
	for used[id] {
		id--
	}
	return id
}

// rawOffers checks the advertised ids before display-name filtering
func rawOffers(rec locationRecord, serviceID int) bool {
	for _, raw := range rec.Services {
		if raw.Valid && int(raw.Value) == serviceID {
			return true
		}
	}
	return false
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// upstreamError keeps context errors intact and marks anything else as an upstream outage
func upstreamError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("failed to %s: %w", op, ctxErr)
	}
	return fmt.Errorf("failed to %s: %w: %v", op, apperr.ErrUpstreamUnavailable, err)
}
