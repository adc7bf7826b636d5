package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	RedisConfig    RedisConfig    `json:"redis"`
	DatabaseConfig DatabaseConfig `json:"database"`
	EngineConfig   EngineConfig   `json:"engine"`
	CacheConfig    CacheConfig    `json:"cache"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int      `json:"port"`
	Host            string   `json:"host"`
	AllowedOrigins  []string `json:"allowed_origins"`
	RateLimitPerMin int      `json:"rate_limit_per_min"`
	ShutdownTimeout int      `json:"shutdown_timeout"` // Seconds
}

type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Output string `json:"output"` // stdout, stderr, or file path
	Pretty bool   `json:"pretty"` // Human-readable console output
}

// RedisConfig holds Redis configuration for recommendation caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// DatabaseConfig holds PostgreSQL configuration for the audit trail
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// EngineConfig holds recommendation engine tuning
type EngineConfig struct {
	ATRPeriod         int     `json:"atr_period"`          // ATR lookback, default 14
	StrongLevelMin    float64 `json:"strong_level_min"`    // Min strength for S/R adjustments
	LevelBufferATR    float64 `json:"level_buffer_atr"`    // Buffer beyond a level, in ATRs
	ATRFallbackFactor float64 `json:"atr_fallback_factor"` // Price fraction used when ATR is unavailable
}

// CacheConfig holds recommendation cache settings
type CacheConfig struct {
	TTLSeconds int `json:"ttl_seconds"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultStr(cfg.ServerConfig.Host, "0.0.0.0"))
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		cfg.ServerConfig.AllowedOrigins = strings.Split(origins, ",")
	}
	if len(cfg.ServerConfig.AllowedOrigins) == 0 {
		cfg.ServerConfig.AllowedOrigins = []string{"*"}
	}
	cfg.ServerConfig.RateLimitPerMin = getEnvIntOrDefault("SERVER_RATE_LIMIT_PER_MIN", defaultInt(cfg.ServerConfig.RateLimitPerMin, 120))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", defaultInt(cfg.ServerConfig.ShutdownTimeout, 10))

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultStr(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", defaultStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", boolStr(cfg.LoggingConfig.Pretty)) == "true"

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolStr(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultStr(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultStr(cfg.DatabaseConfig.User, "advisor"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultStr(cfg.DatabaseConfig.Database, "advisor"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSL_MODE", defaultStr(cfg.DatabaseConfig.SSLMode, "disable"))

	// Engine config
	cfg.EngineConfig.ATRPeriod = getEnvIntOrDefault("ENGINE_ATR_PERIOD", defaultInt(cfg.EngineConfig.ATRPeriod, 14))
	cfg.EngineConfig.StrongLevelMin = getEnvFloatOrDefault("ENGINE_STRONG_LEVEL_MIN", defaultFloat(cfg.EngineConfig.StrongLevelMin, 0.6))
	cfg.EngineConfig.LevelBufferATR = getEnvFloatOrDefault("ENGINE_LEVEL_BUFFER_ATR", defaultFloat(cfg.EngineConfig.LevelBufferATR, 0.1))
	cfg.EngineConfig.ATRFallbackFactor = getEnvFloatOrDefault("ENGINE_ATR_FALLBACK_FACTOR", defaultFloat(cfg.EngineConfig.ATRFallbackFactor, 0.01))

	// Cache config
	cfg.CacheConfig.TTLSeconds = getEnvIntOrDefault("CACHE_TTL_SECONDS", defaultInt(cfg.CacheConfig.TTLSeconds, 300))
}

// CacheTTL returns the configured cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheConfig.TTLSeconds) * time.Second
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func defaultFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func boolStr(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  []string{"*"},
			RateLimitPerMin: 120,
			ShutdownTimeout: 10,
		},
		LoggingConfig: LoggingConfig{
			Level:  "info",
			Output: "stdout",
			Pretty: false,
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "advisor",
			Database: "advisor",
			SSLMode:  "disable",
		},
		EngineConfig: EngineConfig{
			ATRPeriod:         14,
			StrongLevelMin:    0.6,
			LevelBufferATR:    0.1,
			ATRFallbackFactor: 0.01,
		},
		CacheConfig: CacheConfig{
			TTLSeconds: 300,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
