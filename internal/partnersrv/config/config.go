// Package config loads and validates the partner service configuration.
// Configuration is a TOML file; secrets (database password, generator API key)
// may be supplied through the environment, optionally from a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Version is the configuration file format version this build understands.
const Version = "0.1"

// WorkerConfig holds processing worker configuration.
type WorkerConfig struct {
	Concurrency  int    `toml:"concurrency"`   // Number of concurrent workers per run
	PollInterval string `toml:"poll_interval"` // Interval between claim attempts when idle
	BatchLimit   int    `toml:"batch_limit"`   // Maximum products processed per run, 0 means unlimited
}

// GetPollInterval returns the worker poll interval as time.Duration.
func (w *WorkerConfig) GetPollInterval() (time.Duration, error) {
	return ParseDuration(w.PollInterval)
}

// GetPollIntervalOrDefault returns the worker poll interval as time.Duration
// or panics if the value is invalid.
func (w *WorkerConfig) GetPollIntervalOrDefault() time.Duration {
	duration, err := w.GetPollInterval()
	if err != nil {
		panic(fmt.Sprintf("invalid worker poll interval: %v", err))
	}
	return duration
}

// GeneratorConfig holds package generator configuration.
type GeneratorConfig struct {
	Model        string `toml:"model"`          // Model used to author insurance packages
	APIKeyEnvVar string `toml:"api_key_envvar"` // Environment variable holding the API key
	MaxAttempts  int    `toml:"max_attempts"`   // Retry attempts per product
}

// APIKey resolves the generator API key from the environment.
func (g *GeneratorConfig) APIKey() string {
	if g.APIKeyEnvVar == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnvVar)
}

// AuthConfig holds API authentication configuration.
type AuthConfig struct {
	SigningKey           string `toml:"signing_key"`            // HMAC key for API tokens
	DefaultTokenValidity string `toml:"default_token_validity"` // Default token validity duration
	TestActorToken       string `toml:"-"`                      // Token for internal unit test mode
}

// GetDefaultTokenValidity returns the default token validity as time.Duration.
func (a *AuthConfig) GetDefaultTokenValidity() (time.Duration, error) {
	return ParseDuration(a.DefaultTokenValidity)
}

// GetDefaultTokenValidityOrDefault returns the default token validity as
// time.Duration or panics if the value is invalid.
func (a *AuthConfig) GetDefaultTokenValidityOrDefault() time.Duration {
	duration, err := a.GetDefaultTokenValidity()
	if err != nil {
		panic(fmt.Sprintf("invalid default token validity: %v", err))
	}
	return duration
}

// ConfigParam holds all configuration parameters for the partner service.
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName     string `toml:"server_hostname"`       // Hostname for the server
	ServerPort         string `toml:"server_port"`           // Port for the HTTP API
	HandleCORS         bool   `toml:"handle_cors"`           // Whether to handle CORS
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // Maximum size of request body in bytes

	// Worker configuration
	Worker WorkerConfig `toml:"worker"`

	// Generator configuration
	Generator GeneratorConfig `toml:"generator"`

	// Auth configuration
	Auth AuthConfig `toml:"auth"`

	// Database configuration
	DB struct {
		Host           string `toml:"host"`            // Database host
		Port           int    `toml:"port"`            // Database port
		DBName         string `toml:"dbname"`          // Database name
		User           string `toml:"user"`            // Database user
		Password       string `toml:"password"`        // Database password
		PasswordEnvVar string `toml:"password_envvar"` // Environment variable overriding the password
		SSLMode        string `toml:"sslmode"`         // SSL mode for database connection
	} `toml:"db"`
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// DSN returns the database connection string
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// PartnerStoreDSN returns the DSN for the partner store database.
func PartnerStoreDSN() string {
	return cfg.DSN()
}

// ParseDuration parses a duration string in the format "<number><unit>" where unit can be:
// - d: days
// - h: hours
// - m: minutes
// - s: seconds
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "s":
		duration = time.Duration(value) * time.Second
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks if all required configuration values are present and valid
func ValidateConfig(cfg *ConfigParam) error {
	if err := validateConfigFormatVersion(cfg); err != nil {
		return err
	}
	if err := validateServerConfig(cfg); err != nil {
		return err
	}
	if err := validateWorkerConfig(cfg); err != nil {
		return err
	}
	if err := validateAuthConfig(cfg); err != nil {
		return err
	}
	if err := validateDBConfig(cfg); err != nil {
		return err
	}
	return nil
}

func validateConfigFormatVersion(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	return nil
}

func validateServerConfig(cfg *ConfigParam) error {
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	return nil
}

func validateWorkerConfig(cfg *ConfigParam) error {
	if cfg.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	if cfg.Worker.PollInterval == "" {
		return fmt.Errorf("worker.poll_interval is required")
	}
	if _, err := ParseDuration(cfg.Worker.PollInterval); err != nil {
		return fmt.Errorf("invalid worker.poll_interval: %v", err)
	}
	if cfg.Worker.BatchLimit < 0 {
		return fmt.Errorf("worker.batch_limit must not be negative")
	}
	if cfg.Generator.MaxAttempts <= 0 {
		cfg.Generator.MaxAttempts = 3
	}
	return nil
}

func validateAuthConfig(cfg *ConfigParam) error {
	if cfg.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if cfg.Auth.DefaultTokenValidity == "" {
		return fmt.Errorf("auth.default_token_validity is required")
	}
	if _, err := ParseDuration(cfg.Auth.DefaultTokenValidity); err != nil {
		return fmt.Errorf("invalid auth.default_token_validity: %v", err)
	}
	cfg.Auth.TestActorToken = "test-actor-token"
	return nil
}

func validateDBConfig(cfg *ConfigParam) error {
	if cfg.DB.Host == "" {
		return fmt.Errorf("db.host is required")
	}
	if cfg.DB.Port <= 0 {
		return fmt.Errorf("db.port must be positive")
	}
	if cfg.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required")
	}
	if cfg.DB.User == "" {
		return fmt.Errorf("db.user is required")
	}
	if cfg.DB.PasswordEnvVar != "" {
		if pw := os.Getenv(cfg.DB.PasswordEnvVar); pw != "" {
			cfg.DB.Password = pw
		}
	}
	if cfg.DB.Password == "" {
		return fmt.Errorf("db.password is required")
	}
	if cfg.DB.SSLMode == "" {
		return fmt.Errorf("db.sslmode is required")
	}
	return nil
}

// LoadConfig loads configuration from a file. A .env file in the working
// directory is loaded first so password_envvar and api_key_envvar resolve.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	cfg = &ConfigParam{}
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	return nil
}

var isTest = false

func IsTest() bool {
	return isTest
}

func SetTestMode(test bool) {
	isTest = test
}

// TestInit loads the repository-root config file for tests.
func TestInit() {
	isTest = true
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	// Walk up to the project root by looking for go.mod
	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "partnersrv.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
