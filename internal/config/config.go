package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/core-coin/go-core/v2/common"
	"github.com/joho/godotenv"

	"github.com/core-coin/walletx/pkg/validation"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Development bool
	// API configuration
	APIPort int
	// Database configuration
	DatabaseDriver   string
	SQLitePath       string
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	// Ledger configuration
	LedgerAddress     string
	ReconcileInterval time.Duration
	LeaseTTL          time.Duration
	// Blockchain configuration
	FundingTokenAddress  string
	BlockchainServiceURL string
	NetworkID            *big.Int

	// SMTP configuration
	SMTPHost            string
	SMTPPort            int
	SMTPAlternativePort int
	SMTPUser            string
	SMTPPassword        string
	SMTPSender          string
	NotifyEmail         string

	// Notification configuration
	TelegramBotToken string
	TelegramChatID   string

	// Well-known configuration
	WellKnownURL string
}

// GetNetworkName returns the network name for well-known API based on NetworkID
// NetworkID 1 = xcb (mainnet), NetworkID 3 = xab (devin testnet)
func (c *Config) GetNetworkName() string {
	if c.NetworkID != nil && c.NetworkID.Cmp(big.NewInt(1)) == 0 {
		return "xcb"
	}
	return "xab"
}

// OnChain reports whether the custody balance is read from the blockchain.
func (c *Config) OnChain() bool {
	return c.FundingTokenAddress != "" && c.BlockchainServiceURL != ""
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Development:          getEnvAsBool("DEVELOPMENT", false),
		DatabaseDriver:       getEnv("DATABASE_DRIVER", DriverPostgres),
		SQLitePath:           getEnv("SQLITE_PATH", "walletx.db"),
		PostgresUser:         getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnvAsInt("POSTGRES_PORT", 5432),
		PostgresDB:           getEnv("POSTGRES_DB", "walletx"),
		LedgerAddress:        getEnv("LEDGER_ADDRESS", ""),
		ReconcileInterval:    getEnvAsDuration("RECONCILE_INTERVAL", time.Minute),
		LeaseTTL:             getEnvAsDuration("LEASE_TTL", 30*time.Second),
		FundingTokenAddress:  getEnv("FUNDING_TOKEN_ADDRESS", ""),
		BlockchainServiceURL: getEnv("BLOCKCHAIN_SERVICE_URL", ""),
		NetworkID:            getEnvAsBigInt("NETWORK_ID", big.NewInt(1)), // Default to Mainnet ID
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:       getEnv("TELEGRAM_CHAT_ID", ""),
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvAsInt("SMTP_PORT", 587),
		SMTPAlternativePort:  getEnvAsInt("SMTP_ALTERNATIVE_PORT", 465),
		SMTPUser:             getEnv("SMTP_USER", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		SMTPSender:           getEnv("SMTP_SENDER", ""),
		NotifyEmail:          getEnv("NOTIFY_EMAIL", ""),

		APIPort: getEnvAsInt("API_PORT", 6532),

		WellKnownURL: getEnv("WELL_KNOWN_URL", "https://coreblockchain.net"),
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize applies the network id and validates the configuration. It runs
// again after CLI flags have overridden values.
func (c *Config) Normalize() error {
	// Set default network ID before validation (required for address validation)
	common.DefaultNetworkID = common.NetworkID(c.NetworkID.Int64())

	if err := c.Validate(); err != nil {
		return err
	}
	c.LedgerAddress = validation.NormalizeAddress(c.LedgerAddress)
	return nil
}

// Validate checks that all required configuration fields are properly set
func (c *Config) Validate() error {
	if c.NetworkID == nil || c.NetworkID.Sign() <= 0 {
		return fmt.Errorf("NETWORK_ID must be a positive integer")
	}

	if c.LedgerAddress == "" {
		return fmt.Errorf("LEDGER_ADDRESS is required")
	}
	if err := validation.ValidateAddress(c.LedgerAddress); err != nil {
		return fmt.Errorf("invalid LEDGER_ADDRESS format: %w", err)
	}

	if c.FundingTokenAddress != "" {
		if _, err := common.HexToAddress(c.FundingTokenAddress); err != nil {
			return fmt.Errorf("invalid FUNDING_TOKEN_ADDRESS format: %w", err)
		}
		if c.BlockchainServiceURL == "" {
			return fmt.Errorf("BLOCKCHAIN_SERVICE_URL is required when FUNDING_TOKEN_ADDRESS is set")
		}
	}

	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required")
		}
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be positive")
	}
	if c.LeaseTTL < time.Second {
		return fmt.Errorf("LEASE_TTL must be at least one second")
	}

	if c.TelegramBotToken != "" && c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return nil
}

// Helper functions to read environment variables
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBigInt(name string, defaultValue *big.Int) *big.Int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, ok := new(big.Int).SetString(valueStr, 10); ok {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
