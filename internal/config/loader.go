package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone database for minimal images

	"github.com/joho/godotenv"
)

// Config captures environment driven configuration values for the timetable service.
type Config struct {
	HTTPPort    int
	DatabaseURL string
	RedisURL    string
	Timezone    string
	Location    *time.Location
	LogLevel    string
	LogFormat   string
	DBMaxConns  int
}

// UsesPostgres reports whether DatabaseURL selects the PostgreSQL store.
func (c Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Load parses configuration values from the process environment, falling back
// to values read from the given dotenv files (".env" when none are given).
// Process variables always win over file values and missing files are ignored.
//
// The loader applies defaults for optional fields and reports localized error
// messages listing every invalid entry.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	fileValues := make(map[string]string)
	for _, path := range envFiles {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for key, value := range values {
			if _, ok := fileValues[key]; !ok {
				fileValues[key] = value
			}
		}
	}

	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(fileValues[key])
	}

	cfg := Config{
		HTTPPort:    8080,
		DatabaseURL: "file:timetable.db?_pragma=foreign_keys(1)",
		Timezone:    "Asia/Seoul",
		LogLevel:    "info",
		LogFormat:   "json",
		DBMaxConns:  8,
	}

	invalid := make([]string, 0, 4)

	if portValue := lookup("TIMETABLE_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TIMETABLE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := lookup("TIMETABLE_DATABASE_URL"); dsn != "" {
		cfg.DatabaseURL = dsn
	}

	cfg.RedisURL = lookup("TIMETABLE_REDIS_URL")

	if tz := lookup("TIMETABLE_TIMEZONE"); tz != "" {
		cfg.Timezone = tz
	}
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		invalid = append(invalid, "TIMETABLE_TIMEZONE")
	} else {
		cfg.Location = location
	}

	if level := lookup("TIMETABLE_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = strings.ToLower(level)
		default:
			invalid = append(invalid, "TIMETABLE_LOG_LEVEL")
		}
	}

	if format := lookup("TIMETABLE_LOG_FORMAT"); format != "" {
		switch strings.ToLower(format) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(format)
		default:
			invalid = append(invalid, "TIMETABLE_LOG_FORMAT")
		}
	}

	if connsValue := lookup("TIMETABLE_DB_MAX_CONNS"); connsValue != "" {
		conns, err := strconv.Atoi(connsValue)
		if err != nil || conns <= 0 {
			invalid = append(invalid, "TIMETABLE_DB_MAX_CONNS")
		} else {
			cfg.DBMaxConns = conns
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
