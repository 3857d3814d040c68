package services

import (
	"testing"

	"github.com/automas/booking-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestHaversineKm(t *testing.T) {
	bogota := models.Coordinates{Lat: 4.711, Lng: -74.0721}
	medellin := models.Coordinates{Lat: 6.2442, Lng: -75.5812}

	assert.InDelta(t, 237, HaversineKm(bogota, medellin), 5)
	assert.Zero(t, HaversineKm(bogota, bogota))
}

func TestRankLocations(t *testing.T) {
	locations := []models.ProviderLocation{
		{ID: 1, Name: "Sin mapa"},
		{ID: 2, Name: "Lejos", Lat: ptr(4.80), Lng: ptr(-74.10)},
		{ID: 3, Name: "Cerca", Lat: ptr(4.66), Lng: ptr(-74.06)},
		{ID: 4, Name: "Solo latitud", Lat: ptr(4.65)},
	}

	t.Run("nearest first, unlocated last", func(t *testing.T) {
		ranked := RankLocations(locations, &models.Coordinates{Lat: 4.65, Lng: -74.05})
		require.Len(t, ranked, 4)

		var ids []int
		for _, r := range ranked {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []int{3, 2, 1, 4}, ids)
		assert.NotNil(t, ranked[0].DistanceKm)
		assert.Less(t, *ranked[0].DistanceKm, *ranked[1].DistanceKm)
		assert.Nil(t, ranked[2].DistanceKm)
		assert.Nil(t, ranked[3].DistanceKm)
	})

	t.Run("without origin keeps order", func(t *testing.T) {
		ranked := RankLocations(locations, nil)
		require.Len(t, ranked, 4)
		for i, r := range ranked {
			assert.Equal(t, locations[i].ID, r.ID)
			assert.Nil(t, r.DistanceKm)
		}
	})
}

func TestNearbyLocations(t *testing.T) {
	locations := []models.ProviderLocation{
		{ID: 1, City: "Bogotá"},
		{ID: 2, City: "Bogotá"},
		{ID: 3, City: "Medellín"},
		{ID: 4, City: "Bogotá"},
		{ID: 5, City: "Bogotá"},
	}

	nearby := NearbyLocations(locations, locations[0], 2)
	require.Len(t, nearby, 2)
	assert.Equal(t, 2, nearby[0].ID)
	assert.Equal(t, 4, nearby[1].ID)
}
