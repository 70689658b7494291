package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	HTTPAddr     string
	DataDir      string
	StoreBackend string
	SQLitePath   string
	EventLogDir  string
	DefaultsFile string
	NATSURL      string
	NATSSubject  string
	LogLevel     string
	LogPretty    bool

	// Tournament settings used when a creation request leaves them out
	Defaults bracket.Config
}

// Defaults are the built-in tournament settings.
func Defaults() bracket.Config {
	return bracket.Config{
		Mode:                bracket.SingleElimination,
		BestOf:              3,
		SwissRounds:         3,
		TopCut:              8,
		Reminders:           true,
		Announcements:       true,
		ReminderLeadMinutes: 15,
		MinParticipants:     4,
	}
}

// Load reads the environment, after a .env file if one exists, and the optional
// YAML defaults file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	dataDir := getEnv("DATA_DIR", "./data")
	cfg := &Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		DataDir:      dataDir,
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendFile)),
		SQLitePath:   getEnv("SQLITE_PATH", "tournaments.db"),
		EventLogDir:  getEnv("EVENT_LOG_DIR", dataDir+"/events"),
		DefaultsFile: getEnv("DEFAULTS_FILE", ""),
		NATSURL:      getEnv("NATS_URL", ""),
		NATSSubject:  getEnv("NATS_SUBJECT", "tournaments"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", false),
		Defaults:     Defaults(),
	}

	switch cfg.StoreBackend {
	case BackendFile, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.DefaultsFile != "" {
		defaults, err := LoadDefaults(cfg.DefaultsFile, cfg.Defaults)
		if err != nil {
			return nil, err
		}
		cfg.Defaults = defaults
	}
	return cfg, nil
}

// LoadDefaults overlays a YAML file on base. Keys missing from the file keep
// their base value.
func LoadDefaults(path string, base bracket.Config) (bracket.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read defaults file: %w", err)
	}

	out := base
	if err := yaml.Unmarshal(data, &out); err != nil {
		return base, fmt.Errorf("failed to parse defaults file: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, fmt.Errorf("defaults file %s: %w", path, err)
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
