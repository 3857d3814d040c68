package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyName indicates the customer name is empty
	ErrEmptyName = errors.New("name cannot be empty")

	// ErrInvalidName indicates the name contains something other than letters and spaces
	ErrInvalidName = errors.New("name can only contain letters and spaces")

	// ErrInvalidEmail indicates a malformed email address
	ErrInvalidEmail = errors.New("invalid email address")
)

var (
	nameRegex       = regexp.MustCompile(`^[A-Za-zÁÉÍÓÚÜÑáéíóúüñ ]+$`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	emailRegex      = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
)

// ValidateName collapses repeated whitespace and checks the name is letters only
func ValidateName(name string) (string, error) {
	cleaned := strings.TrimSpace(whitespaceRegex.ReplaceAllString(name, " "))
	if cleaned == "" {
		return "", ErrEmptyName
	}
	if !nameRegex.MatchString(cleaned) {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

// ValidateEmail lowercases and checks the address. An empty email is allowed.
func ValidateEmail(email string) (string, error) {
	cleaned := strings.ToLower(strings.TrimSpace(email))
	if cleaned == "" {
		return "", nil
	}
	if !emailRegex.MatchString(cleaned) {
		return "", ErrInvalidEmail
	}
	return cleaned, nil
}
