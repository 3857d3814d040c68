package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length is outside 7 to 10 digits
	ErrInvalidLength = errors.New("phone number must have between 7 and 10 digits")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles Colombian phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Colombian landline or mobile number
// Accepts format: 3001234567 or 300 123 4567 or +57 300-123-4567
// Returns sanitized phone number (digits only) and error if invalid
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < 7 || len(sanitized) > 10 {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize removes common separators and the 57 country code
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, "+", "")
	phone = strings.ReplaceAll(phone, ".", "")

	if strings.HasPrefix(phone, "57") && len(phone) == 12 {
		phone = phone[2:]
	}

	return phone
}

// IsMobile reports whether the number is a 10 digit mobile line
func (v *PhoneValidator) IsMobile(phone string) bool {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return false
	}
	return len(sanitized) == 10 && sanitized[0] == '3'
}

// Format formats a mobile number as 3XX XXX XXXX, other numbers are returned sanitized
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	if len(sanitized) != 10 {
		return sanitized, nil
	}

	return fmt.Sprintf("%s %s %s",
		sanitized[0:3],
		sanitized[3:6],
		sanitized[6:10],
	), nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
