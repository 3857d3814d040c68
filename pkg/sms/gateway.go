package sms

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Gateway sends text messages
type Gateway interface {
	Send(ctx context.Context, phone, message string) (int64, error)
	Name() string
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// FormatPhone converts a Colombian mobile number to the international form the gateway expects.
// Input: "3001234567", "573001234567" or "+57 300 123 4567"
// Output: "573001234567"
func FormatPhone(phone string) (string, error) {
	phone = nonDigits.ReplaceAllString(phone, "")

	if strings.HasPrefix(phone, "57") && len(phone) == 12 {
		phone = phone[2:]
	}

	if len(phone) != 10 {
		return "", fmt.Errorf("invalid phone number length after formatting: %d digits (expected 10)", len(phone))
	}
	if !strings.HasPrefix(phone, "3") {
		return "", fmt.Errorf("invalid Colombian mobile prefix: must start with 3")
	}

	return "57" + phone, nil
}
