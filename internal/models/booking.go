package models

// BookingRequest carries everything the backend needs to quote or reserve a slot
type BookingRequest struct {
	Vertical    Vertical        `json:"vertical"`
	Plate       string          `json:"plate"`
	Day         Day             `json:"day"`
	Slot        string          `json:"slot"`
	City        string          `json:"city"`
	Location    string          `json:"location"`
	ServiceID   int             `json:"service_id,omitempty"`
	ServiceName string          `json:"service_name,omitempty"`
	Customer    Customer        `json:"customer"`
	Vehicle     *VehicleProfile `json:"vehicle,omitempty"`
	Price       int64           `json:"price,omitempty"`
}
