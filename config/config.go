package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	DefaultTotalSpaces = 20
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	Storage     string
	TotalSpaces int

	RabbitURL string

	OTelEnabled     bool
	OTelServiceName string
	OTelEndpoint    string
}

// Load reads an optional .env file and then the process environment.
// Unparseable values fall back to their defaults with a warning.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Logger().Warn().Err(err).Msg("could not load .env file")
	}

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getPositiveInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "carpark"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		Storage:     getStorage(),
		TotalSpaces: getPositiveInt("TOTAL_SPACES", DefaultTotalSpaces),

		RabbitURL: getEnv("RABBITMQ_URL", ""),

		OTelEnabled:     getBool("OTEL_ENABLED", true),
		OTelServiceName: getEnv("OTEL_SERVICE_NAME", "carpark-service"),
		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) UsesMemoryStorage() bool {
	return c.Storage == StorageMemory
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getPositiveInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		logging.Logger().Warn().Str("key", key).Str("value", raw).Int("default", fallback).Msg("invalid value, using default")
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		logging.Logger().Warn().Str("key", key).Str("value", raw).Bool("default", fallback).Msg("invalid value, using default")
		return fallback
	}
	return b
}

func getStorage() string {
	switch s := strings.ToLower(strings.TrimSpace(getEnv("STORAGE", StoragePostgres))); s {
	case StoragePostgres, StorageMemory:
		return s
	default:
		logging.Logger().Warn().Str("value", s).Msg("unknown STORAGE, using postgres")
		return StoragePostgres
	}
}
