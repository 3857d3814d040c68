package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneValidator(t *testing.T) {
	validator := NewPhoneValidator()
	assert.NotNil(t, validator)
}

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"3001234567", "3001234567", "Mobile"},
		{"300 123 4567", "3001234567", "With spaces"},
		{"300-123-4567", "3001234567", "With dashes"},
		{"300.123.4567", "3001234567", "With dots"},
		{"(300) 123 4567", "3001234567", "With parentheses"},
		{"+57 300 123 4567", "3001234567", "With country code"},
		{"6041234", "6041234", "Seven digit landline"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"   ", ErrEmptyPhone, "Only spaces"},
		{"123", ErrInvalidLength, "Too short"},
		{"30012345678", ErrInvalidLength, "Too long"},
		{"300123456a", ErrInvalidFormat, "Contains letters"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestIsMobile(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsMobile("3001234567"))
	assert.False(t, validator.IsMobile("6041234567"))
	assert.False(t, validator.IsMobile("6041234"))
	assert.False(t, validator.IsMobile("abc"))
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	formatted, err := validator.Format("3001234567")
	require.NoError(t, err)
	assert.Equal(t, "300 123 4567", formatted)

	formatted, err = validator.Format("604-1234")
	require.NoError(t, err)
	assert.Equal(t, "6041234", formatted)

	_, err = validator.Format("12")
	assert.Error(t, err)
}
