// Package config provides configuration management for the contact sync
// services. It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	Directory   DirectoryConfig
	Contacts    ContactsConfig
	DirectoryDB DirectoryDBConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// StoreBackend selects the secure store implementation
type StoreBackend string

const (
	// BackendFile stores snapshots as encrypted files on disk
	BackendFile StoreBackend = "file"
	// BackendRedis stores snapshots in Redis
	BackendRedis StoreBackend = "redis"
	// BackendMemory keeps snapshots in process memory only
	BackendMemory StoreBackend = "memory"
)

// StoreConfig holds secure store configuration
type StoreConfig struct {
	Backend    StoreBackend
	Dir        string // file backend: directory for encrypted blobs
	Passphrase string // file backend: encryption passphrase
	Redis      RedisConfig
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// DirectoryConfig holds remote directory lookup client configuration
type DirectoryConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	BatchSize         int
}

// ContactsConfig holds reconciliation engine configuration
type ContactsConfig struct {
	DefaultRegion string // default phone region hint, ISO 3166-1 alpha-2
	ServiceName   string // secure store service name for snapshots
	FixturePath   string // optional address book fixture file for syncd
}

// DirectoryDBConfig holds Postgres configuration for the directory service
type DirectoryDBConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// DSN returns the Postgres connection string for the directory database
func (c *DirectoryDBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env file is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Store: StoreConfig{
			Backend:    StoreBackend(getEnv("STORE_BACKEND", "file")),
			Dir:        getEnv("STORE_DIR", "./data/securestore"),
			Passphrase: getEnv("STORE_PASSPHRASE", ""),
			Redis: RedisConfig{
				Host:           getEnv("REDIS_HOST", "localhost"),
				Port:           getEnv("REDIS_PORT", "6379"),
				Password:       getEnv("REDIS_PASSWORD", ""),
				DB:             getEnvAsInt("REDIS_DB", 0),
				MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
			},
		},
		Directory: DirectoryConfig{
			BaseURL:           getEnv("DIRECTORY_BASE_URL", "http://localhost:8081"),
			Timeout:           getEnvAsDuration("DIRECTORY_TIMEOUT", 10*time.Second),
			RequestsPerSecond: getEnvAsFloat("DIRECTORY_RPS", 5.0),
			BatchSize:         getEnvAsInt("DIRECTORY_BATCH_SIZE", 50),
		},
		Contacts: ContactsConfig{
			DefaultRegion: getEnv("CONTACTS_DEFAULT_REGION", "US"),
			ServiceName:   getEnv("CONTACTS_SERVICE_NAME", "contact-sync"),
			FixturePath:   getEnv("CONTACTS_FIXTURE_PATH", ""),
		},
		DirectoryDB: DirectoryDBConfig{
			Host:           getEnv("DIRECTORY_DB_HOST", "localhost"),
			Port:           getEnv("DIRECTORY_DB_PORT", "5432"),
			Database:       getEnv("DIRECTORY_DB_NAME", "directory"),
			User:           getEnv("DIRECTORY_DB_USER", "directory"),
			Password:       getEnv("DIRECTORY_DB_PASSWORD", ""),
			MaxConnections: getEnvAsInt("DIRECTORY_DB_MAX_CONNECTIONS", 20),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks configuration combinations that cannot work
func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendFile, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if c.Store.Backend == BackendFile && c.Store.Passphrase == "" {
		return fmt.Errorf("STORE_PASSPHRASE is required for the file store backend")
	}

	if c.Directory.BatchSize <= 0 {
		return fmt.Errorf("DIRECTORY_BATCH_SIZE must be positive")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat gets an environment variable as a float with a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
