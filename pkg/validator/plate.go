package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPlate indicates the plate is empty
	ErrEmptyPlate = errors.New("plate cannot be empty")

	// ErrInvalidPlate indicates the plate matches neither the car nor the motorcycle shape
	ErrInvalidPlate = errors.New("plate must be 3 letters and 3 digits (ABC123) or 3 letters, 2 digits and 1 letter (ABC12D)")
)

// PlateKind identifies which shape a plate matched
type PlateKind string

const (
	PlateCar        PlateKind = "car"
	PlateMotorcycle PlateKind = "motorcycle"
)

var (
	carPlateRegex        = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	motorcyclePlateRegex = regexp.MustCompile(`^[A-Z]{3}[0-9]{2}[A-Z]$`)
	plateStripRegex      = regexp.MustCompile(`[^A-Z0-9]`)
)

// NormalizePlate uppercases the plate and strips every character that is not a letter or digit
func NormalizePlate(plate string) string {
	return plateStripRegex.ReplaceAllString(strings.ToUpper(plate), "")
}

// ValidatePlate returns the canonical plate and its kind
func ValidatePlate(plate string) (string, PlateKind, error) {
	if strings.TrimSpace(plate) == "" {
		return "", "", ErrEmptyPlate
	}

	normalized := NormalizePlate(plate)

	switch {
	case carPlateRegex.MatchString(normalized):
		return normalized, PlateCar, nil
	case motorcyclePlateRegex.MatchString(normalized):
		return normalized, PlateMotorcycle, nil
	default:
		return "", "", ErrInvalidPlate
	}
}
