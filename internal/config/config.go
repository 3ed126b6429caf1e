package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sarvex/model-analysis/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig `validate:"required"`
	Server    ServerConfig   `validate:"required"`
	Paths     PathConfig     `validate:"required"`
	Eval      EvalConfig
	Watch     WatchConfig
	Profiling ProfilingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string `validate:"required"`
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	APIPort string
	GinMode string
}

// PathConfig holds file system paths
type PathConfig struct {
	ResultsDir string
	UploadDir  string
	ConfigFile string
}

// EvalConfig holds evaluation engine settings
type EvalConfig struct {
	Parallelism     int
	ConfidenceLevel float64
}

// WatchConfig holds drop-directory watcher settings
type WatchConfig struct {
	Enabled  bool
	Dir      string
	Debounce time.Duration
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	// Load database configuration
	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	// Load server configuration
	serverConfig := loadServerConfig()
	config.Server = *serverConfig

	// Load path configuration
	pathConfig := loadPathConfig()
	config.Paths = *pathConfig

	// Load evaluation configuration
	evalConfig := loadEvalConfig()
	config.Eval = *evalConfig

	// Load watcher configuration
	watchConfig := loadWatchConfig()
	config.Watch = *watchConfig

	// Load profiling configuration
	profilingConfig := loadProfilingConfig()
	config.Profiling = *profilingConfig

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:     url,
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		APIPort: getEnvOrDefault("API_PORT", "8081"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		ResultsDir: getEnvOrDefault("RESULTS_DIR", "./results"),
		UploadDir:  getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		ConfigFile: getEnvOrDefault("EVAL_CONFIG", ""),
	}
}

func loadEvalConfig() *EvalConfig {
	return &EvalConfig{
		Parallelism:     getEnvIntOrDefault("EVAL_PARALLELISM", 4),
		ConfidenceLevel: getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
	}
}

func loadWatchConfig() *WatchConfig {
	return &WatchConfig{
		Enabled:  getEnvBoolOrDefault("WATCH_ENABLED", false),
		Dir:      getEnvOrDefault("WATCH_DIR", "./incoming"),
		Debounce: getEnvDurationOrDefault("WATCH_DEBOUNCE", 2*time.Second),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.Eval.Parallelism < 1 {
		return errors.ConfigInvalid("EVAL_PARALLELISM must be at least 1")
	}
	if config.Eval.ConfidenceLevel <= 0 || config.Eval.ConfidenceLevel >= 1 {
		return errors.ConfigInvalid("CONFIDENCE_LEVEL must be in (0, 1)")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
