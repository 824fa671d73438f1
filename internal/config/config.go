// Package config provides configuration management for the Scribe Agent.
// Configuration is loaded from an optional .env file and environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort         = 8787
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".scribe"
	DefaultBackendURL   = "http://localhost:3000"
	DefaultPollInterval = 2000 * time.Millisecond
	DefaultSyncInterval = 5 * time.Minute

	// Environment variable names
	EnvPort         = "SCRIBE_PORT"
	EnvLogLevel     = "SCRIBE_LOG_LEVEL"
	EnvDataDir      = "SCRIBE_DATA_DIR"
	EnvQueryAPIURL  = "SCRIBE_QUERY_API_URL"
	EnvUploadAPIURL = "SCRIBE_UPLOAD_API_URL"
	EnvPollInterval = "SCRIBE_POLL_INTERVAL_MS"
	EnvSyncInterval = "SCRIBE_SYNC_INTERVAL_S"
	EnvDefaultModel = "SCRIBE_DEFAULT_MODEL"
	EnvDropDir      = "SCRIBE_DROP_DIR"
	EnvHeadless     = "SCRIBE_HEADLESS"

	// Database filename
	DBFilename = "scribe.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	QueryAPIURL() string
	UploadAPIURL() string
	PollInterval() time.Duration
	SyncInterval() time.Duration
	DefaultModel() string
	DropDir() string
	Headless() bool
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	queryAPIURL  string
	uploadAPIURL string
	pollInterval time.Duration
	syncInterval time.Duration
	defaultModel string
	dropDir      string
	headless     bool
}

// New creates a new EnvConfig with defaults and environment variable
// overrides. A .env file in the working directory is loaded first when
// present; real environment variables win over it.
func New() (*EnvConfig, error) {
	_ = godotenv.Load()

	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		dataDir:      defaultDataDir(),
		queryAPIURL:  DefaultBackendURL,
		uploadAPIURL: DefaultBackendURL,
		pollInterval: DefaultPollInterval,
		syncInterval: DefaultSyncInterval,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if u := os.Getenv(EnvQueryAPIURL); u != "" {
		cfg.queryAPIURL = u
	}

	if u := os.Getenv(EnvUploadAPIURL); u != "" {
		cfg.uploadAPIURL = u
	}

	if ms := os.Getenv(EnvPollInterval); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPollInterval, err)
		}
		if n < 100 {
			return nil, fmt.Errorf("invalid %s: must be at least 100", EnvPollInterval)
		}
		cfg.pollInterval = time.Duration(n) * time.Millisecond
	}

	if s := os.Getenv(EnvSyncInterval); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSyncInterval, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvSyncInterval)
		}
		cfg.syncInterval = time.Duration(n) * time.Second
	}

	cfg.defaultModel = os.Getenv(EnvDefaultModel)
	cfg.dropDir = os.Getenv(EnvDropDir)

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	return cfg, nil
}

// Port returns the local HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the directory exported transcripts are written to
func (c *EnvConfig) ExportDir() string {
	return filepath.Join(c.dataDir, "exports")
}

// QueryAPIURL returns the base URL of the query backend
func (c *EnvConfig) QueryAPIURL() string {
	return c.queryAPIURL
}

// UploadAPIURL returns the base URL of the upload backend
func (c *EnvConfig) UploadAPIURL() string {
	return c.uploadAPIURL
}

// PollInterval returns the delay between status poll attempts
func (c *EnvConfig) PollInterval() time.Duration {
	return c.pollInterval
}

// SyncInterval returns the delay between library sync runs
func (c *EnvConfig) SyncInterval() time.Duration {
	return c.syncInterval
}

// DefaultModel returns the transcription model sent with uploads when the
// caller does not pick one
func (c *EnvConfig) DefaultModel() string {
	return c.defaultModel
}

// DropDir returns the folder watched for media to auto-upload. Empty
// disables the drop folder.
func (c *EnvConfig) DropDir() string {
	return c.dropDir
}

// Headless reports whether the tray UI is disabled
func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
