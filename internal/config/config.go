package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBackendURL     = "http://localhost:8000"
	defaultPollInterval   = 3 * time.Second
	defaultRequestTimeout = 10 * time.Second
	defaultListenAddr     = ":8090"
	defaultRPCSocket      = "/tmp/campuswatch.sock"
)

// AlertSource selects where the alert deriver gets its raw material from.
type AlertSource string

const (
	// AlertSourceLocal synthesizes alerts from the current roster statuses.
	AlertSourceLocal AlertSource = "local"
	// AlertSourceBackend pulls /alerts and filters them against the roster.
	AlertSourceBackend AlertSource = "backend"
)

// Config holds runtime configuration for the daemon.
type Config struct {
	BackendURL     string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	ListenAddr     string
	RPCSocket      string
	ArchiveDBPath  string
	AlertSource    AlertSource
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		BackendURL:     defaultBackendURL,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		ListenAddr:     defaultListenAddr,
		RPCSocket:      defaultRPCSocket,
		AlertSource:    AlertSourceLocal,
	}

	if v := strings.TrimSpace(os.Getenv("BACKEND_URL")); v != "" {
		cfg.BackendURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("POLL_INTERVAL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}
	if v := strings.TrimSpace(os.Getenv("REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("RPC_SOCKET")); v != "" {
		cfg.RPCSocket = v
	}
	cfg.ArchiveDBPath = strings.TrimSpace(os.Getenv("ARCHIVE_DB_PATH"))

	switch src := AlertSource(strings.ToLower(strings.TrimSpace(os.Getenv("ALERT_SOURCE")))); src {
	case "":
	case AlertSourceLocal, AlertSourceBackend:
		cfg.AlertSource = src
	default:
		return cfg, fmt.Errorf("invalid ALERT_SOURCE %q (want local or backend)", src)
	}

	return cfg, nil
}
