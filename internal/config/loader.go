package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends selectable through BOOKING_STORAGE.
const (
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config captures environment driven configuration values for the booking service.
type Config struct {
	HTTPPort        int
	Storage         string
	SQLitePath      string
	MongoURI        string
	MongoDatabase   string
	LogLevel        string
	LogFormat       string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every missing or invalid variable is
// collected so that a single error lists all of them.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:        8000,
		Storage:         StorageSQLite,
		SQLitePath:      "database.db",
		MongoDatabase:   "booking",
		LogLevel:        "info",
		LogFormat:       "json",
		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"*"},
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("BOOKING_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "BOOKING_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storage := strings.ToLower(env("BOOKING_STORAGE")); storage != "" {
		switch storage {
		case StorageSQLite, StorageMemory, StorageMongo:
			cfg.Storage = storage
		default:
			invalid = append(invalid, "BOOKING_STORAGE")
		}
	}

	if path := env("BOOKING_SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	cfg.MongoURI = env("BOOKING_MONGO_URI")
	if cfg.Storage == StorageMongo && cfg.MongoURI == "" {
		missing = append(missing, "BOOKING_MONGO_URI")
	}
	if database := env("BOOKING_MONGO_DATABASE"); database != "" {
		cfg.MongoDatabase = database
	}

	if level := strings.ToLower(env("BOOKING_LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, "BOOKING_LOG_LEVEL")
		}
	}

	if format := strings.ToLower(env("BOOKING_LOG_FORMAT")); format != "" {
		switch format {
		case "json", "text":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "BOOKING_LOG_FORMAT")
		}
	}

	if timeout, ok := durationEnv("BOOKING_REQUEST_TIMEOUT", &invalid); ok {
		cfg.RequestTimeout = timeout
	}
	if timeout, ok := durationEnv("BOOKING_SHUTDOWN_TIMEOUT", &invalid); ok {
		cfg.ShutdownTimeout = timeout
	}

	if origins := env("BOOKING_CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
		if len(cfg.CORSOrigins) == 0 {
			invalid = append(invalid, "BOOKING_CORS_ORIGINS")
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("thiếu biến môi trường bắt buộc: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("giá trị biến môi trường không hợp lệ: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationEnv(key string, invalid *[]string) (time.Duration, bool) {
	value := env(key)
	if value == "" {
		return 0, false
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return 0, false
	}
	return d, true
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
