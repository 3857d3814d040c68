package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// KeySize is the length of symmetric keys used for handoff payloads
const KeySize = 32

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateServiceSecrets generates the operator JWT secret and the handoff encryption key
func GenerateServiceSecrets() (jwtSecret, handoffKey string, err error) {
	jwtSecret, err = GenerateSecret(32) // 256-bit
	if err != nil {
		return "", "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}

	handoffKey, err = GenerateSecret(KeySize)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate handoff key: %w", err)
	}

	return jwtSecret, handoffKey, nil
}

// ParseKey decodes a hex-encoded 32-byte key
func ParseKey(encoded string) (*[KeySize]byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(raw))
	}
	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}
