package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Settings holds all configuration for the achievement validation service
type Settings struct {
	// Service Identity
	ServiceID string

	// API Configuration
	APIHost string
	APIPort int

	// Redis Configuration
	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string

	// Blockchain RPC Configuration
	RPCEndpoints   map[int64]string // chain id -> JSON-RPC endpoint
	DefaultChainID int64            // fallback when a submission carries an unknown chain id
	RPCCallTimeout time.Duration

	// Voucher Signing
	IssuerPrivateKey     string // hex-encoded secp256k1 key
	RegistryContract     string // verifying contract for the EIP-712 domain
	RegistryChainID      int64  // chain id baked into the EIP-712 domain
	VoucherDomainName    string
	VoucherDomainVersion string

	// External Data Sources
	QuizBankURL    string
	SecretTableURL string
	QuizCacheTTL   time.Duration
	SecretCacheTTL time.Duration
	FetchTimeout   time.Duration

	// Monitoring & Debugging
	MetricsEnabled bool
	MetricsPort    int
	LogLevel       string
	DebugMode      bool
}

var (
	// SettingsObj is the global settings instance
	SettingsObj *Settings
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	setDefaults()
	viper.AutomaticEnv()

	SettingsObj = &Settings{
		ServiceID: viper.GetString("SERVICE_ID"),

		APIHost: viper.GetString("API_HOST"),
		APIPort: viper.GetInt("API_PORT"),

		RedisHost:     viper.GetString("REDIS_HOST"),
		RedisPort:     viper.GetString("REDIS_PORT"),
		RedisDB:       viper.GetInt("REDIS_DB"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),

		DefaultChainID: viper.GetInt64("DEFAULT_CHAIN_ID"),
		RPCCallTimeout: viper.GetDuration("RPC_CALL_TIMEOUT"),

		IssuerPrivateKey:     viper.GetString("ISSUER_PRIVATE_KEY"),
		RegistryContract:     viper.GetString("REGISTRY_CONTRACT"),
		RegistryChainID:      viper.GetInt64("REGISTRY_CHAIN_ID"),
		VoucherDomainName:    viper.GetString("VOUCHER_DOMAIN_NAME"),
		VoucherDomainVersion: viper.GetString("VOUCHER_DOMAIN_VERSION"),

		QuizBankURL:    viper.GetString("QUIZ_BANK_URL"),
		SecretTableURL: viper.GetString("SECRET_TABLE_URL"),
		QuizCacheTTL:   viper.GetDuration("QUIZ_CACHE_TTL"),
		SecretCacheTTL: viper.GetDuration("SECRET_CACHE_TTL"),
		FetchTimeout:   viper.GetDuration("FETCH_TIMEOUT"),

		MetricsEnabled: viper.GetBool("METRICS_ENABLED"),
		MetricsPort:    viper.GetInt("METRICS_PORT"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		DebugMode:      viper.GetBool("DEBUG_MODE"),
	}

	if err := loadRPCEndpoints(); err != nil {
		return fmt.Errorf("failed to load RPC endpoints: %w", err)
	}

	// Configure logging
	configureLogging()

	// Validate configuration
	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Log configuration summary
	logConfigSummary()

	return nil
}

func setDefaults() {
	viper.SetDefault("SERVICE_ID", "achievements-api-1")

	viper.SetDefault("API_HOST", "0.0.0.0")
	viper.SetDefault("API_PORT", 8080)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PASSWORD", "")

	viper.SetDefault("DEFAULT_CHAIN_ID", 11155111) // Sepolia
	viper.SetDefault("RPC_CALL_TIMEOUT", "30s")

	viper.SetDefault("REGISTRY_CHAIN_ID", 11155111)
	viper.SetDefault("VOUCHER_DOMAIN_NAME", "PlunderAcademyBadges")
	viper.SetDefault("VOUCHER_DOMAIN_VERSION", "1")

	viper.SetDefault("QUIZ_CACHE_TTL", "10m")
	viper.SetDefault("SECRET_CACHE_TTL", "10m")
	viper.SetDefault("FETCH_TIMEOUT", "15s")

	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_PORT", 9090)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DEBUG_MODE", false)
}

// loadRPCEndpoints parses the per-chain RPC endpoint map.
// Supports JSON object format {"1":"https://...","11155111":"https://..."}
// and comma-separated chainId=url pairs (simplest).
func loadRPCEndpoints() error {
	SettingsObj.RPCEndpoints = make(map[int64]string)

	endpointsStr := viper.GetString("RPC_ENDPOINTS")
	if endpointsStr == "" {
		return nil
	}

	if strings.HasPrefix(endpointsStr, "{") {
		raw := make(map[string]string)
		if err := json.Unmarshal([]byte(endpointsStr), &raw); err != nil {
			return fmt.Errorf("failed to parse RPC_ENDPOINTS as JSON object: %w", err)
		}
		for id, url := range raw {
			chainID, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chain id %q in RPC_ENDPOINTS: %w", id, err)
			}
			SettingsObj.RPCEndpoints[chainID] = strings.TrimSpace(url)
		}
		return nil
	}

	for _, pair := range strings.Split(endpointsStr, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid RPC_ENDPOINTS entry %q, expected chainId=url", pair)
		}
		chainID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id in RPC_ENDPOINTS entry %q: %w", pair, err)
		}
		SettingsObj.RPCEndpoints[chainID] = strings.Trim(strings.TrimSpace(parts[1]), "\"")
	}

	return nil
}

// configureLogging sets up the logger based on configuration
func configureLogging() {
	switch strings.ToLower(SettingsObj.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	// Override with debug mode
	if SettingsObj.DebugMode {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
}

// validateConfig validates the loaded configuration
func validateConfig() error {
	if SettingsObj.IssuerPrivateKey == "" {
		return fmt.Errorf("ISSUER_PRIVATE_KEY is required for voucher signing")
	}

	if SettingsObj.RegistryContract == "" {
		return fmt.Errorf("REGISTRY_CONTRACT is required for the EIP-712 domain")
	}
	if !common.IsHexAddress(SettingsObj.RegistryContract) {
		return fmt.Errorf("REGISTRY_CONTRACT is not a valid address: %s", SettingsObj.RegistryContract)
	}

	if len(SettingsObj.RPCEndpoints) == 0 {
		return fmt.Errorf("RPC_ENDPOINTS is required for transaction verification")
	}
	if _, ok := SettingsObj.RPCEndpoints[SettingsObj.DefaultChainID]; !ok {
		return fmt.Errorf("RPC_ENDPOINTS is missing the default chain %d", SettingsObj.DefaultChainID)
	}

	if SettingsObj.QuizBankURL == "" {
		log.Warn("QUIZ_BANK_URL not configured - quiz achievements will fail until set")
	}
	if SettingsObj.SecretTableURL == "" {
		log.Warn("SECRET_TABLE_URL not configured - secret achievements will fail until set")
	}

	if SettingsObj.RedisHost == "" {
		return fmt.Errorf("Redis configuration required for completion persistence")
	}

	return nil
}

// logConfigSummary logs a summary of the configuration
func logConfigSummary() {
	log.Info("=== Configuration Loaded ===")
	log.Infof("Service ID: %s", SettingsObj.ServiceID)
	log.Infof("API: %s:%d", SettingsObj.APIHost, SettingsObj.APIPort)
	log.Infof("Redis: %s:%s (DB %d)", SettingsObj.RedisHost, SettingsObj.RedisPort, SettingsObj.RedisDB)
	log.Infof("RPC Endpoints: %d chains configured (default chain %d)",
		len(SettingsObj.RPCEndpoints), SettingsObj.DefaultChainID)
	log.Infof("Voucher Domain: %s v%s (registry %s, chain %d)",
		SettingsObj.VoucherDomainName, SettingsObj.VoucherDomainVersion,
		SettingsObj.RegistryContract, SettingsObj.RegistryChainID)

	if SettingsObj.QuizBankURL != "" {
		log.Infof("Quiz Bank: %s (TTL %v)", SettingsObj.QuizBankURL, SettingsObj.QuizCacheTTL)
	}
	if SettingsObj.SecretTableURL != "" {
		log.Infof("Secret Table: %s (TTL %v)", SettingsObj.SecretTableURL, SettingsObj.SecretCacheTTL)
	}

	if SettingsObj.MetricsEnabled {
		log.Infof("Metrics: enabled on port %d", SettingsObj.MetricsPort)
	}

	log.Info("============================")
}
