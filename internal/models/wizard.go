package models

import (
	"errors"
	"strings"
)

// WizardStep is a stage of the booking funnel
type WizardStep int

const (
	StepVehicle WizardStep = iota
	StepService
	StepLocation
	StepSlot
	StepQuote
	StepPayment
	StepHandedOff
)

var stepNames = [...]string{"vehicle", "service", "location", "slot", "quote", "payment", "handed_off"}

func (s WizardStep) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "unknown"
	}
	return stepNames[s]
}

// MarshalText renders the step name in JSON
func (s WizardStep) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StartWizardRequest opens a wizard session for a vertical
type StartWizardRequest struct {
	Vertical string `json:"vertical" binding:"required"`
}

// VehicleStepRequest carries the plate, the holder and the contact data
type VehicleStepRequest struct {
	Plate              string `json:"plate" binding:"required"`
	HolderIDType       string `json:"holder_id_type"`
	HolderID           string `json:"holder_id" binding:"required"`
	Name               string `json:"name" binding:"required"`
	Phone              string `json:"phone" binding:"required"`
	Email              string `json:"email"`
	AcceptedDataPolicy bool   `json:"accepted_data_policy"`
}

// Validate checks the fields not covered by binding tags
func (r *VehicleStepRequest) Validate() error {
	if !r.AcceptedDataPolicy {
		return errors.New("accepted_data_policy is required")
	}
	if r.HolderIDType == "" {
		r.HolderIDType = "cc"
	}
	r.HolderIDType = strings.ToLower(strings.TrimSpace(r.HolderIDType))
	return nil
}

// SelectServiceRequest picks an offering from the services step
type SelectServiceRequest struct {
	ServiceID int `json:"service_id" binding:"required"`
}

// SelectLocationRequest picks a provider location
type SelectLocationRequest struct {
	LocationID int `json:"location_id" binding:"required"`
}

// SelectSlotRequest picks a day and time label
type SelectSlotRequest struct {
	Date  string `json:"date" binding:"required"` // Format: YYYY-MM-DD
	Label string `json:"label" binding:"required"`
}

// ApplyCouponRequest applies a coupon to the current quote
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// PayRequest starts the payment for the current quote
type PayRequest struct {
	AcceptedTerms bool   `json:"accepted_terms"`
	PaymentMethod string `json:"payment_method"`
}

// ValidateCouponRequest checks a coupon against an arbitrary amount
type ValidateCouponRequest struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount" binding:"min=0"`
}
