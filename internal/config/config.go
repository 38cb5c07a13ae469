package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the defaults for command-line flags. Every field can be set
// through the environment or an env file.
type Config struct {
	JournalPath    string // SQLite operation journal
	JournalEnabled bool
	Timezone       string // IANA name used for EXIF local timestamps, "Local" by default
	CounterWidth   int    // digits of the rename counter
	CounterLimit   int    // highest rename counter tried per file
	EnvFile        string // env file that was loaded, if any
}

// DefaultEnvFile is read when PHOTOUTILS_ENV_FILE is unset.
func DefaultEnvFile() string {
	return filepath.Join(homeDir(), ".photoutils", "photoutils.env")
}

// Load reads the env file (if present) and then the environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	envFile := getEnv("PHOTOUTILS_ENV_FILE", DefaultEnvFile())
	loaded := ""
	if err := godotenv.Load(envFile); err == nil {
		loaded = envFile
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		JournalPath:    getEnv("PHOTOUTILS_JOURNAL", filepath.Join(homeDir(), ".photoutils", "journal.db")),
		JournalEnabled: getEnvAsBool("PHOTOUTILS_JOURNAL_ENABLED", true),
		Timezone:       getEnv("PHOTOUTILS_TZ", "Local"),
		CounterWidth:   getEnvAsInt("PHOTOUTILS_COUNTER_WIDTH", 2),
		CounterLimit:   getEnvAsInt("PHOTOUTILS_COUNTER_LIMIT", 9999),
		EnvFile:        loaded,
	}
	if cfg.CounterWidth < 0 {
		return nil, fmt.Errorf("PHOTOUTILS_COUNTER_WIDTH must not be negative: %d", cfg.CounterWidth)
	}
	if cfg.CounterLimit < 1 {
		return nil, fmt.Errorf("PHOTOUTILS_COUNTER_LIMIT must be positive: %d", cfg.CounterLimit)
	}
	return cfg, nil
}

// Location resolves name to a time zone. An empty name or "Local" is the
// system zone.
func Location(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", name, err)
	}
	return loc, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
