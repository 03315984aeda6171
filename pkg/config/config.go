package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Venue API
	VenueBaseURL string
	AuthToken    string
	WalletAddr   string
	MultisigAddr string
	PrivateKey   string

	// Strategy defaults (per-task config can override)
	PollInterval    time.Duration
	MinVolume       float64
	SettlementDelay time.Duration

	// Collateral balance (dashboard status)
	BSCRPCURL string

	// Metadata cache
	MetadataCacheSize int64
	MetadataCacheTTL  time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		VenueBaseURL: getEnvOrDefault("OPINION_API_URL", "https://proxy.opinion.trade:8443/api/bsc/api"),
		AuthToken:    os.Getenv("AUTH_TOKEN"),
		WalletAddr:   os.Getenv("WALLET_ADDRESS"),
		MultisigAddr: os.Getenv("MULTISIG_ADDRESS"),
		PrivateKey:   os.Getenv("PRIVATE_KEY"),

		PollInterval:    getDurationOrDefault("POLL_INTERVAL", 5*time.Second),
		MinVolume:       getFloat64OrDefault("MIN_VOLUME", 5.0),
		SettlementDelay: getDurationOrDefault("SPLIT_SETTLEMENT_DELAY", 10*time.Second),

		BSCRPCURL: getEnvOrDefault("BSC_RPC_URL", "https://bsc-dataseed.binance.org"),

		MetadataCacheSize: int64(getIntOrDefault("METADATA_CACHE_SIZE", 1000)),
		MetadataCacheTTL:  getDurationOrDefault("METADATA_CACHE_TTL", time.Hour),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "opinion"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "opinion123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "opinion_mm"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Credentials are
// checked lazily at task start, not here, so the dashboard can come up
// before a token is pasted into Settings.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.VenueBaseURL == "" {
		return fmt.Errorf("OPINION_API_URL cannot be empty")
	}

	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", c.PollInterval)
	}

	if c.MinVolume < 0 {
		return fmt.Errorf("MIN_VOLUME cannot be negative, got %f", c.MinVolume)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

// MissingCredentials lists unset credential variables, empty when
// trading is fully configured.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.AuthToken == "" {
		missing = append(missing, "AUTH_TOKEN")
	}
	if c.WalletAddr == "" {
		missing = append(missing, "WALLET_ADDRESS")
	}
	if c.MultisigAddr == "" {
		missing = append(missing, "MULTISIG_ADDRESS")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "PRIVATE_KEY")
	}
	return missing
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
