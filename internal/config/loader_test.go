package config

import (
	"os"
	"path/filepath"
	"testing"
)

var configKeys = []string{
	"TIMETABLE_HTTP_PORT",
	"TIMETABLE_DATABASE_URL",
	"TIMETABLE_REDIS_URL",
	"TIMETABLE_TIMEZONE",
	"TIMETABLE_LOG_LEVEL",
	"TIMETABLE_LOG_FORMAT",
	"TIMETABLE_DB_MAX_CONNS",
}

// clearConfigEnv unsets every key for the duration of the test.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearConfigEnv(t)

		cfg, err := Load(missingEnvFile(t))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.DatabaseURL != "file:timetable.db?_pragma=foreign_keys(1)" {
			t.Fatalf("unexpected default DSN: %q", cfg.DatabaseURL)
		}
		if cfg.UsesPostgres() {
			t.Fatalf("expected default store to be SQLite")
		}
		if cfg.Location == nil || cfg.Location.String() != "Asia/Seoul" {
			t.Fatalf("expected Asia/Seoul location, got %v", cfg.Location)
		}
		if cfg.LogLevel != "info" || cfg.LogFormat != "json" || cfg.DBMaxConns != 8 || cfg.RedisURL != "" {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("parses overrides", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("TIMETABLE_HTTP_PORT", "9090")
		t.Setenv("TIMETABLE_DATABASE_URL", "postgres://timetable@localhost/timetable")
		t.Setenv("TIMETABLE_REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("TIMETABLE_TIMEZONE", "UTC")
		t.Setenv("TIMETABLE_LOG_LEVEL", "DEBUG")
		t.Setenv("TIMETABLE_LOG_FORMAT", "text")
		t.Setenv("TIMETABLE_DB_MAX_CONNS", "16")

		cfg, err := Load(missingEnvFile(t))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || !cfg.UsesPostgres() || cfg.RedisURL != "redis://localhost:6379/0" {
			t.Fatalf("unexpected config: %+v", cfg)
		}
		if cfg.Location.String() != "UTC" || cfg.LogLevel != "debug" || cfg.LogFormat != "text" || cfg.DBMaxConns != 16 {
			t.Fatalf("unexpected config: %+v", cfg)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearConfigEnv(t)
		t.Setenv("TIMETABLE_HTTP_PORT", "zero")
		t.Setenv("TIMETABLE_TIMEZONE", "Mars/Olympus")
		t.Setenv("TIMETABLE_DB_MAX_CONNS", "-1")

		_, err := Load(missingEnvFile(t))
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: TIMETABLE_HTTP_PORT, TIMETABLE_TIMEZONE, TIMETABLE_DB_MAX_CONNS"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reads dotenv files without overriding the environment", func(t *testing.T) {
		clearConfigEnv(t)
		path := filepath.Join(t.TempDir(), ".env")
		content := "TIMETABLE_HTTP_PORT=7070\nTIMETABLE_LOG_FORMAT=text\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("TIMETABLE_LOG_FORMAT", "json")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected port from dotenv file, got %d", cfg.HTTPPort)
		}
		if cfg.LogFormat != "json" {
			t.Fatalf("expected process environment to win, got %q", cfg.LogFormat)
		}
		if _, ok := os.LookupEnv("TIMETABLE_HTTP_PORT"); ok {
			t.Fatalf("dotenv values must not leak into the process environment")
		}
	})
}
