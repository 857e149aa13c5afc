// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	threshold := cfg.Matching.SimilarityThreshold
//	dbPath := cfg.Storage.DatabasePath
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config represents the entire application configuration
type Config struct {
	Matching      MatchingConfig      `yaml:"matching"`
	Ingestion     IngestionConfig     `yaml:"ingestion"`
	Storage       StorageConfig       `yaml:"storage"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MatchingConfig holds reconciliation thresholds
type MatchingConfig struct {
	SimilarityThreshold float64  `yaml:"similarity_threshold"` // 0-100
	DayTolerance        int      `yaml:"day_tolerance"`
	IgnoreKeywords      []string `yaml:"ignore_keywords"`
}

// IngestionConfig holds statement parsing settings
type IngestionConfig struct {
	SampleRows         int     `yaml:"sample_rows"`
	MinNumericRatio    float64 `yaml:"min_numeric_ratio"`
	PDFLineGranularity float64 `yaml:"pdf_line_granularity"`
	Workers            int     `yaml:"workers"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	Driver        string `yaml:"driver"`
	DatabasePath  string `yaml:"database_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// GeminiConfig holds Gemini API configuration
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file. Missing values take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${GEMINI_API_KEY})
	expanded := os.ExpandEnv(string(data))

	// -1 marks an absent day_tolerance so an explicit 0 survives defaults
	cfg := Config{Matching: MatchingConfig{DayTolerance: -1}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Matching: MatchingConfig{
			SimilarityThreshold: getEnvFloat("RECONCILE_SIMILARITY_THRESHOLD", 0),
			DayTolerance:        getEnvInt("RECONCILE_DAY_TOLERANCE", -1),
			IgnoreKeywords:      splitList(os.Getenv("RECONCILE_IGNORE_KEYWORDS")),
		},
		Ingestion: IngestionConfig{
			SampleRows: getEnvInt("RECONCILE_SAMPLE_ROWS", 0),
			Workers:    getEnvInt("RECONCILE_WORKERS", 0),
		},
		Storage: StorageConfig{
			Driver:        getEnv("RECONCILE_STORAGE_DRIVER", DriverSQLite),
			DatabasePath:  getEnv("RECONCILE_DB_PATH", "reconciler.db"),
			MongoURI:      os.Getenv("RECONCILE_MONGO_URI"),
			MongoDatabase: getEnv("RECONCILE_MONGO_DATABASE", "reconciler"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		API: APIConfig{
			Port:           getEnvInt("PORT", 8085),
			AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills unset values. A day tolerance of 0 is meaningful
// (same day only), so only a negative tolerance is replaced.
func (c *Config) applyDefaults() {
	if c.Matching.SimilarityThreshold == 0 {
		c.Matching.SimilarityThreshold = 80
	}
	if c.Matching.DayTolerance < 0 {
		c.Matching.DayTolerance = 3
	}
	if c.Ingestion.SampleRows == 0 {
		c.Ingestion.SampleRows = 100
	}
	if c.Ingestion.MinNumericRatio == 0 {
		c.Ingestion.MinNumericRatio = 0.15
	}
	if c.Ingestion.PDFLineGranularity == 0 {
		c.Ingestion.PDFLineGranularity = 1.0
	}
	if c.Ingestion.Workers == 0 {
		c.Ingestion.Workers = 4
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconciler.db"
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "reconciler"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.API.Port == 0 {
		c.API.Port = 8085
	}
	if c.API.MaxUploadMB == 0 {
		c.API.MaxUploadMB = 32
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

// Validate rejects values the reconciler cannot run with
func (c *Config) Validate() error {
	if c.Matching.SimilarityThreshold < 0 || c.Matching.SimilarityThreshold > 100 {
		return fmt.Errorf("matching.similarity_threshold must be between 0 and 100, got %v", c.Matching.SimilarityThreshold)
	}
	if c.Matching.DayTolerance < 0 {
		return fmt.Errorf("matching.day_tolerance must not be negative, got %d", c.Matching.DayTolerance)
	}
	if c.Ingestion.MinNumericRatio < 0 || c.Ingestion.MinNumericRatio > 1 {
		return fmt.Errorf("ingestion.min_numeric_ratio must be between 0 and 1, got %v", c.Ingestion.MinNumericRatio)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
	case DriverMongo:
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}

func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// GetAPIKey retrieves an API key from config first, then tries multiple environment variable names
// Usage: GetAPIKey(cfg.Gemini.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
func (c *Config) GetAPIKey(configValue string, envVarNames ...string) string {
	// First, try the config value
	if configValue != "" {
		return configValue
	}

	// Then try each environment variable in order
	for _, envVar := range envVarNames {
		if val := os.Getenv(envVar); val != "" {
			return val
		}
	}

	return ""
}
