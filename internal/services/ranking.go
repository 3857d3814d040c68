package services

import (
	"math"
	"sort"

	"github.com/automas/booking-engine/internal/models"
)

// EarthRadiusKm is the mean earth radius used for great-circle distances
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points
func HaversineKm(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RankLocations orders locations by distance from origin.
// Without an origin the input order is kept. Locations without coordinates
// get no distance and go after every located one, keeping their relative order.
func RankLocations(locations []models.ProviderLocation, origin *models.Coordinates) []models.RankedLocation {
	ranked := make([]models.RankedLocation, len(locations))
	for i, loc := range locations {
		ranked[i] = models.RankedLocation{ProviderLocation: loc}
		if origin != nil && loc.HasCoordinates() {
			d := HaversineKm(*origin, models.Coordinates{Lat: *loc.Lat, Lng: *loc.Lng})
			ranked[i].DistanceKm = &d
		}
	}

	if origin == nil {
		return ranked
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := ranked[i].DistanceKm, ranked[j].DistanceKm
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	return ranked
}

// NearbyLocations returns up to limit other locations in the same city as current
func NearbyLocations(locations []models.ProviderLocation, current models.ProviderLocation, limit int) []models.ProviderLocation {
	nearby := make([]models.ProviderLocation, 0, limit)
	for _, loc := range locations {
		if len(nearby) == limit {
			break
		}
		if loc.ID == current.ID || loc.City != current.City {
			continue
		}
		nearby = append(nearby, loc)
	}
	return nearby
}
