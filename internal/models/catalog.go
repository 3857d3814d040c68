package models

import "strings"

// DefaultLocationPhoto is shown when the provider has no picture
const DefaultLocationPhoto = "/assets/sede.png"

// ServiceOffering is a purchasable service
type ServiceOffering struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Group       string `json:"group,omitempty"`
}

// Plan returns the appraisal plan tier named in the offering (diamante, oro, plata) or ""
func (s ServiceOffering) Plan() string {
	name := strings.ToLower(s.Name)
	for _, plan := range []string{"diamante", "oro", "plata"} {
		if strings.Contains(name, plan) {
			return plan
		}
	}
	return ""
}

// AtHome reports whether the offering is delivered at the customer's address
func (s ServiceOffering) AtHome() bool {
	return strings.Contains(strings.ToLower(s.Name), "domicilio")
}

// ServiceRef is a service advertised by a location, after id to name mapping
type ServiceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// City is a city where providers operate
type City struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProviderLocation is a physical provider site
type ProviderLocation struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	City     string       `json:"city"`
	Address  string       `json:"address"`
	Phone    string       `json:"phone"`
	PhotoURL string       `json:"photo_url"`
	Lat      *float64     `json:"lat,omitempty"`
	Lng      *float64     `json:"lng,omitempty"`
	Services []ServiceRef `json:"services"`
	Flows    []string     `json:"flows,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known
func (l ProviderLocation) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// Offers reports whether the location advertises the given service id
func (l ProviderLocation) Offers(serviceID int) bool {
	for _, s := range l.Services {
		if s.ID == serviceID {
			return true
		}
	}
	return false
}

// Coordinates is a point on the earth's surface in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RankedLocation pairs a location with its distance from the user.
// DistanceKm is nil when the location has no coordinates or the user position is unknown.
type RankedLocation struct {
	ProviderLocation
	DistanceKm *float64 `json:"distance_km,omitempty"`
}
