package config

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend profiles select how the scheduling/quoting API is reached
const (
	ProfileDevelopment = "development"
	ProfileProduction  = "production"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration (handoff store, payment events)
	Database DatabaseConfig

	// JWT configuration for operator routes
	JWT JWTConfig

	// Scheduling/quoting action backend
	Backend BackendConfig

	// Vehicle registry
	Registry RegistryConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Outcome pages
	Outcome OutcomeConfig

	// Wizard sessions
	Wizard WizardConfig

	// Handoff store
	Handoff HandoffConfig

	// Catalog
	Catalog CatalogConfig

	// SMS configuration (support alerts and customer confirmations)
	SMS SMSConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port          string
	Environment   string // development, staging, production
	LogLevel      string // debug, info, warn, error
	PublicBaseURL string // origin of the web front end, used to build gateway return URLs

	EnableRequestLog bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// BackendConfig describes the action-dispatch API used for catalog, scheduling and reservations
type BackendConfig struct {
	Profile    string // development or production
	DevBaseURL string // direct API base, e.g. https://servicio-agendamiento.automas.co/api/
	ProxyURL   string // same-origin rewriting proxy, e.g. https://www.automas.co/api-proxy.php
	Token      string
	Client     string // value sent as "cliente"
	Timeout    time.Duration
}

// RegistryConfig holds the vehicle registry lookup endpoint
type RegistryConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	BaseURL       string
	Token         string
	ProjectCode   string // project code resolved through proyecto-pagos
	PaymentMethod string // used when the project lookup fails
	PollAttempts  int
	PollInterval  time.Duration
	Timeout       time.Duration
}

// OutcomeConfig holds the return-page behaviour
type OutcomeConfig struct {
	CountdownSeconds    int
	PendingPollAttempts int
	PendingPollInterval time.Duration
	SupportWhatsApp     string
}

// WizardConfig holds wizard session settings
type WizardConfig struct {
	SessionTTL time.Duration
}

// HandoffConfig holds handoff store settings
type HandoffConfig struct {
	EncryptionKey   string // hex encoded 32 bytes
	Retention       time.Duration
	CleanupSchedule string // cron spec with seconds
}

// CatalogConfig holds catalog settings
type CatalogConfig struct {
	ServiceNamesFile string // optional override for the embedded service name table
}

// SMSConfig holds SMS gateway configuration
type SMSConfig struct {
	Mode         string // "dev" logs messages, "production" sends them
	APIURL       string
	Username     string
	Password     string
	Mask         string
	SupportPhone string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("PORT", "8080"),
			Environment:   getEnv("ENVIRONMENT", "development"),
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:4200"), "/"),

			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		Backend: BackendConfig{
			Profile:    getEnv("BACKEND_PROFILE", ProfileDevelopment),
			DevBaseURL: getEnv("BACKEND_DEV_BASE_URL", "https://servicio-agendamiento.automas.co/api/"),
			ProxyURL:   getEnv("BACKEND_PROXY_URL", ""),
			Token:      getEnv("BACKEND_TOKEN", ""),
			Client:     getEnv("BACKEND_CLIENT", "pagina_web"),
			Timeout:    getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Registry: RegistryConfig{
			URL:     getEnv("REGISTRY_URL", "https://b.automas.co/api-v2/api/runt-operations/get_full_runt_information/"),
			Token:   getEnv("REGISTRY_TOKEN", ""),
			Timeout: getEnvAsDuration("REGISTRY_TIMEOUT", 20*time.Second),
		},
		Payment: PaymentConfig{
			BaseURL:       strings.TrimRight(getEnv("PAYMENT_BASE_URL", "https://bv2.automas.co/api-v2"), "/"),
			Token:         getEnv("PAYMENT_TOKEN", ""),
			ProjectCode:   getEnv("PAYMENT_PROJECT_CODE", "pagina_web"),
			PaymentMethod: getEnv("PAYMENT_METHOD", "mercadopago"),
			PollAttempts:  getEnvAsInt("PAYMENT_POLL_ATTEMPTS", 10),
			PollInterval:  getEnvAsDuration("PAYMENT_POLL_INTERVAL", time.Second),
			Timeout:       getEnvAsDuration("PAYMENT_TIMEOUT", 30*time.Second),
		},
		Outcome: OutcomeConfig{
			CountdownSeconds:    getEnvAsInt("OUTCOME_COUNTDOWN_SECONDS", 40),
			PendingPollAttempts: getEnvAsInt("PENDING_POLL_ATTEMPTS", 10),
			PendingPollInterval: getEnvAsDuration("PENDING_POLL_INTERVAL", 10*time.Second),
			SupportWhatsApp:     getEnv("SUPPORT_WHATSAPP", "573158365888"),
		},
		Wizard: WizardConfig{
			SessionTTL: getEnvAsDuration("WIZARD_SESSION_TTL", 30*time.Minute),
		},
		Handoff: HandoffConfig{
			EncryptionKey:   getEnv("HANDOFF_ENCRYPTION_KEY", ""),
			Retention:       getEnvAsDuration("HANDOFF_RETENTION", 72*time.Hour),
			CleanupSchedule: getEnv("HANDOFF_CLEANUP_SCHEDULE", "0 0 3 * * *"),
		},
		Catalog: CatalogConfig{
			ServiceNamesFile: getEnv("CATALOG_SERVICE_NAMES_FILE", ""),
		},
		SMS: SMSConfig{
			Mode:         getEnv("SMS_MODE", "dev"),
			APIURL:       getEnv("SMS_API_URL", ""),
			Username:     getEnv("SMS_USERNAME", ""),
			Password:     getEnv("SMS_PASSWORD", ""),
			Mask:         getEnv("SMS_MASK", "AUTOMAS"),
			SupportPhone: getEnv("SMS_SUPPORT_PHONE", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Backend.Profile {
	case ProfileDevelopment:
		if c.Backend.DevBaseURL == "" {
			return fmt.Errorf("BACKEND_DEV_BASE_URL is required for the development profile")
		}
	case ProfileProduction:
		if c.Backend.ProxyURL == "" {
			return fmt.Errorf("BACKEND_PROXY_URL is required for the production profile")
		}
	default:
		return fmt.Errorf("invalid BACKEND_PROFILE: %s (must be '%s' or '%s')", c.Backend.Profile, ProfileDevelopment, ProfileProduction)
	}

	if c.Backend.Token == "" {
		return fmt.Errorf("BACKEND_TOKEN is required")
	}

	if c.Payment.Token == "" {
		return fmt.Errorf("PAYMENT_TOKEN is required")
	}

	if c.Payment.PollAttempts < 1 {
		return fmt.Errorf("PAYMENT_POLL_ATTEMPTS must be at least 1")
	}

	if c.Outcome.PendingPollAttempts < 1 {
		return fmt.Errorf("PENDING_POLL_ATTEMPTS must be at least 1")
	}

	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("PUBLIC_BASE_URL is required")
	}

	key, err := hex.DecodeString(c.Handoff.EncryptionKey)
	if err != nil || len(key) != 32 {
		return fmt.Errorf("HANDOFF_ENCRYPTION_KEY must be 32 hex-encoded bytes")
	}

	if c.SMS.Mode == "production" && (c.SMS.APIURL == "" || c.SMS.Username == "" || c.SMS.Password == "") {
		return fmt.Errorf("SMS_API_URL, SMS_USERNAME and SMS_PASSWORD are required in production mode")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("1s", "10m") or plain seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
