package validator

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlate_Valid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		kind     PlateKind
	}{
		{"car", "ABC123", "ABC123", PlateCar},
		{"car lowercase", "abc123", "ABC123", PlateCar},
		{"car with dash", "abc-123", "ABC123", PlateCar},
		{"car with spaces", " AbC 123 ", "ABC123", PlateCar},
		{"motorcycle", "ABC12D", "ABC12D", PlateMotorcycle},
		{"motorcycle lowercase", "xyz98k", "XYZ98K", PlateMotorcycle},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plate, kind, err := ValidatePlate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, plate)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestValidatePlate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrEmptyPlate},
		{"blank", "  ", ErrEmptyPlate},
		{"too short", "AB123", ErrInvalidPlate},
		{"digits first", "123ABC", ErrInvalidPlate},
		{"too long", "ABC1234", ErrInvalidPlate},
		{"moto with two letters at end", "ABC1DE", ErrInvalidPlate},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ValidatePlate(tc.input)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestNormalizePlate_OnlyCanonicalCharacters(t *testing.T) {
	canonical := regexp.MustCompile(`^[A-Z0-9]*$`)
	inputs := []string{"abc123", "a-b_c 1.2/3", "ñandú12d", "ABC12d!", ""}

	for _, input := range inputs {
		assert.Regexp(t, canonical, NormalizePlate(input), input)
	}
}
