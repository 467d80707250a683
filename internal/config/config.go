package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

const (
	StoreSQL    = "sql"
	StoreMemory = "memory"
)

type Config struct {
	DBDriver      string
	DBDSN         string
	ServerPort    string
	SessionSecret string

	// где держать проекты и этапы: sql (по умолчанию) или memory
	WorkflowStore string

	LogLevel hclog.Level
	LogJSON  bool
	Location *time.Location

	OfficesFile   string
	AdminUsername string
	AdminPassword string
	AdminOffice   string
}

// Load reads the environment (and .env if present). Every problem found is
// reported in the returned error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		DBDriver:      strings.ToLower(get("DB_DRIVER", "postgres")),
		DBDSN:         get("DB_DSN", ""),
		ServerPort:    get("SERVER_PORT", "8080"),
		SessionSecret: get("SESSION_SECRET", ""),
		WorkflowStore: strings.ToLower(get("WORKFLOW_STORE", StoreSQL)),
		OfficesFile:   get("OFFICES_FILE", ""),
		AdminUsername: get("ADMIN_USERNAME", "admin"),
		AdminPassword: get("ADMIN_PASSWORD", "Admin123!"),
		AdminOffice:   get("ADMIN_OFFICE", ""),
	}

	var result *multierror.Error

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		result = multierror.Append(result, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver))
	}
	if cfg.DBDSN == "" {
		result = multierror.Append(result, errors.New("DB_DSN is not set"))
	}
	if cfg.SessionSecret == "" {
		result = multierror.Append(result, errors.New("SESSION_SECRET is not set"))
	}
	switch cfg.WorkflowStore {
	case StoreSQL, StoreMemory:
	default:
		result = multierror.Append(result, fmt.Errorf("WORKFLOW_STORE: unsupported value %q", cfg.WorkflowStore))
	}

	cfg.LogLevel = hclog.LevelFromString(get("LOG_LEVEL", "info"))
	if cfg.LogLevel == hclog.NoLevel {
		result = multierror.Append(result, fmt.Errorf("LOG_LEVEL: unknown level %q", getenv("LOG_LEVEL")))
	}

	if raw := get("LOG_JSON", "false"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("LOG_JSON: %w", err))
		}
		cfg.LogJSON = v
	}

	loc, err := time.LoadLocation(get("TIMEZONE", "Local"))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("TIMEZONE: %w", err))
	}
	cfg.Location = loc

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the root logger for the process.
func (c *Config) NewLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "bac-tracker",
		Level:      c.LogLevel,
		JSONFormat: c.LogJSON,
		Output:     os.Stderr,
	})
}
