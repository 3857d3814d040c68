package models

import (
	"strings"
	"time"
)

// ProfileSource tells verified registry data apart from a synthesized estimate
type ProfileSource string

const (
	ProfileVerified  ProfileSource = "verified"
	ProfileEstimated ProfileSource = "estimated"
)

// Defaults used when the registry cannot describe the vehicle
const (
	DefaultVehicleClass  = "AUTOMOVIL"
	DefaultServiceType   = "Particular"
	DefaultFuelType      = "GASOLINA"
	DefaultRTMExpiryDays = 30
)

// Holder identifies the vehicle owner for the registry lookup
type Holder struct {
	IDType string `json:"id_type"` // cc, ce, nit, pas
	ID     string `json:"id"`
}

// RegistryLabel maps the short id type to the label the registry and backend expect
func (h Holder) RegistryLabel() string {
	switch h.IDType {
	case "ce":
		return "Cedula de Extranjeria"
	case "nit":
		return "NIT"
	case "pas":
		return "Pasaporte"
	default:
		return "Cedula de Ciudadania"
	}
}

// VehicleProfile describes a vehicle for catalog filtering and pricing
type VehicleProfile struct {
	Plate        string        `json:"plate"`
	Make         string        `json:"make,omitempty"`
	Line         string        `json:"line,omitempty"`
	ModelYear    string        `json:"model_year,omitempty"`
	Class        string        `json:"class"`
	ServiceType  string        `json:"service_type"`
	FuelType     string        `json:"fuel_type"`
	Displacement int           `json:"displacement,omitempty"`
	Color        string        `json:"color,omitempty"`
	RTMExpiry    *time.Time    `json:"rtm_expiry,omitempty"`
	Source       ProfileSource `json:"source"`
}

// Estimated reports whether the profile was synthesized instead of read from the registry
func (p VehicleProfile) Estimated() bool {
	return p.Source == ProfileEstimated
}

// Description renders "<make> <line> <model>, placa [<plate>], clasificado como <class> <service>"
func (p VehicleProfile) Description() string {
	var name string
	switch {
	case p.Make != "" && p.Line != "":
		name = p.Make + " " + p.Line
	case p.Make != "":
		name = p.Make
	case p.Class != "":
		name = p.Class
	default:
		name = "Vehículo"
	}
	if p.ModelYear != "" {
		name += " " + p.ModelYear
	}

	desc := name + ", placa [" + p.Plate + "]"

	var class []string
	if p.Class != "" {
		class = append(class, p.Class)
	}
	if p.ServiceType != "" {
		class = append(class, p.ServiceType)
	}
	if len(class) > 0 {
		desc += ", clasificado como " + strings.Join(class, " ")
	}
	return desc
}

// Category groups the vehicle for display tabs: livianos, pesados or motos
func (p VehicleProfile) Category() string {
	class := strings.ToUpper(p.Class)
	switch {
	case strings.Contains(class, "MOTO"):
		return "motos"
	case strings.Contains(class, "PESADO"), strings.Contains(class, "BUS"), strings.Contains(class, "CAMION"):
		return "pesados"
	default:
		return "livianos"
	}
}

// GatewayVehicleType maps a vehicle kind to the payment gateway's servicio_tipovehiculo.
// The gateway rejects suffixed values such as "automovil_particular".
func GatewayVehicleType(kind string) string {
	kind = strings.ToLower(kind)
	switch {
	case strings.Contains(kind, "liviano"):
		return "automovil"
	case strings.Contains(kind, "moto"):
		return "motocicleta"
	case strings.Contains(kind, "ciclomotor"):
		return "ciclomotor"
	case strings.Contains(kind, "cuadriciclo"):
		return "cuadriciclo"
	default:
		return "automovil"
	}
}
