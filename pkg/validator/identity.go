package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Holder id types accepted by the registry and the scheduling backend
const (
	IDTypeCitizen   = "cc"  // cédula de ciudadanía
	IDTypeForeigner = "ce"  // cédula de extranjería
	IDTypeTaxID     = "nit" // NIT
	IDTypePassport  = "pas" // pasaporte
)

var (
	// ErrEmptyHolderID indicates the holder id is empty
	ErrEmptyHolderID = errors.New("holder id cannot be empty")

	// ErrUnknownIDType indicates an id type outside cc, ce, nit and pas
	ErrUnknownIDType = errors.New("holder id type must be one of cc, ce, nit, pas")

	// ErrInvalidHolderID indicates the id does not match the format of its type
	ErrInvalidHolderID = errors.New("holder id does not match its type")
)

type idRule struct {
	label   string
	format  string
	pattern *regexp.Regexp
	numeric bool
}

var idRules = map[string]idRule{
	IDTypeCitizen:   {"Cédula", "6-10 dígitos", regexp.MustCompile(`^[0-9]{6,10}$`), true},
	IDTypeForeigner: {"Cédula de extranjería", "6-7 dígitos", regexp.MustCompile(`^[0-9]{6,7}$`), true},
	IDTypeTaxID:     {"NIT", "9-10 dígitos", regexp.MustCompile(`^[0-9]{9,10}$`), true},
	IDTypePassport:  {"Pasaporte", "6-9 caracteres alfanuméricos", regexp.MustCompile(`^[A-Z0-9]{6,9}$`), false},
}

var (
	nonDigitRegex    = regexp.MustCompile(`[^0-9]`)
	nonAlphaNumRegex = regexp.MustCompile(`[^A-Z0-9]`)
)

// IsKnownIDType reports whether idType is one of the accepted holder id types
func IsKnownIDType(idType string) bool {
	_, ok := idRules[idType]
	return ok
}

// SanitizeHolderID strips the characters a given id type cannot contain
func SanitizeHolderID(idType, id string) string {
	rule, ok := idRules[idType]
	if !ok {
		return strings.TrimSpace(id)
	}
	if rule.numeric {
		return nonDigitRegex.ReplaceAllString(id, "")
	}
	return nonAlphaNumRegex.ReplaceAllString(strings.ToUpper(id), "")
}

// ValidateHolderID validates id against the rules of idType and returns it sanitized
func ValidateHolderID(idType, id string) (string, error) {
	rule, ok := idRules[idType]
	if !ok {
		return "", ErrUnknownIDType
	}

	if strings.TrimSpace(id) == "" {
		return "", ErrEmptyHolderID
	}

	sanitized := SanitizeHolderID(idType, id)
	if !rule.pattern.MatchString(sanitized) {
		return "", fmt.Errorf("%w: %s inválido. Formato: %s", ErrInvalidHolderID, rule.label, rule.format)
	}

	return sanitized, nil
}
