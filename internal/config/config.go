// Package config loads Hardwire's typed configuration from the process
// environment, matching the typed-getter style of the teacher's
// settings manager but sourced from os.Getenv rather than a DB row.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the fully validated, immutable configuration for one
// Hardwire process. It is constructed once at startup and handed to
// every component by pointer.
type Config struct {
	Host string
	Port int

	DataDir string
	DBPath  string

	DBMaxConnections  int
	DBMinConnections  int
	DBAcquireTimeout  int // seconds

	MaxFileSizeMB     int64
	MaxFilesPerShare  int
	RateLimitRPM      int
	IndexerIntervalS  int

	JWTSecret     string
	JWTExpiryHrs  int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
}

// missingVarError is returned by Load when a required variable is
// absent or invalid; the CLI maps it to exit code 1.
type missingVarError struct {
	Var string
	Msg string
}

func (e *missingVarError) Error() string {
	return fmt.Sprintf("%s: %s", e.Var, e.Msg)
}

// Load reads and validates Hardwire's configuration from the
// environment. A missing or invalid required variable is reported by
// name so the CLI can print a specific, actionable message.
func Load() (*Config, error) {
	cfg := &Config{
		Host:             getString("HARDWIRE_HOST", "http://localhost:8080"),
		DataDir:          getString("HARDWIRE_DATA_DIR", "./data"),
		DBPath:           getString("HARDWIRE_DB_PATH", "./data/db.sqlite"),
		DBMaxConnections: getInt("HARDWIRE_DB_MAX_CONNECTIONS", 10),
		DBMinConnections: getInt("HARDWIRE_DB_MIN_CONNECTIONS", 2),
		DBAcquireTimeout: getInt("HARDWIRE_DB_ACQUIRE_TIMEOUT", 30),
		MaxFileSizeMB:    int64(getInt("HARDWIRE_MAX_FILE_SIZE_MB", 5120)),
		MaxFilesPerShare: getInt("HARDWIRE_MAX_FILES_PER_SHARE", 100),
		RateLimitRPM:     getInt("HARDWIRE_RATE_LIMIT_RPM", 60),
		IndexerIntervalS: getInt("HARDWIRE_FILE_INDEXER_INTERVAL", 300),
		JWTExpiryHrs:     getInt("JWT_EXPIRY_HOURS", 24),
		GoogleRedirectURL: getString("GOOGLE_REDIRECT_URL",
			"http://localhost:8080/admin/auth/google/callback"),
	}

	port, err := strconv.Atoi(getString("HARDWIRE_PORT", "8080"))
	if err != nil {
		return nil, &missingVarError{Var: "HARDWIRE_PORT", Msg: "must be an integer"}
	}
	cfg.Port = port

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if len(cfg.JWTSecret) < 32 {
		return nil, &missingVarError{Var: "JWT_SECRET", Msg: "is required and must be at least 32 characters"}
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		return nil, &missingVarError{Var: "GOOGLE_CLIENT_ID", Msg: "is required"}
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		return nil, &missingVarError{Var: "GOOGLE_CLIENT_SECRET", Msg: "is required"}
	}

	return cfg, nil
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
