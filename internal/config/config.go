package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr    = ":8080"
	defaultServerURL     = "http://localhost:8089"
	defaultMaxPollBatch  = 10
	defaultBackoffCap    = 60 * time.Second
	defaultShutdownGrace = 30 * time.Second

	envServerURL     = "BRONTES_SERVER_URL"
	envAuthToken     = "BRONTES_AUTH_TOKEN"
	envListenAddr    = "BRONTES_LISTEN_ADDR"
	envLogLevel      = "BRONTES_LOG_LEVEL"
	envWorkerFile    = "BRONTES_WORKER_FILE"
	envJournalPath   = "BRONTES_JOURNAL_PATH"
	envMaxPollBatch  = "BRONTES_MAX_POLL_BATCH"
	envBackoffCap    = "BRONTES_BACKOFF_CAP"
	envShutdownGrace = "BRONTES_SHUTDOWN_GRACE"
)

// Config holds process-wide configuration loaded from environment variables.
// Per-task-type tuning lives in the optional worker file (see LoadOverrides).
type Config struct {
	ServerURL     string
	AuthToken     string
	ListenAddr    string
	LogLevel      slog.Level
	WorkerFile    string
	JournalPath   string
	MaxPollBatch  int
	BackoffCap    time.Duration
	ShutdownGrace time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ServerURL:     defaultServerURL,
		ListenAddr:    defaultListenAddr,
		LogLevel:      slog.LevelInfo,
		MaxPollBatch:  defaultMaxPollBatch,
		BackoffCap:    defaultBackoffCap,
		ShutdownGrace: defaultShutdownGrace,
	}

	if v := os.Getenv(envServerURL); v != "" {
		cfg.ServerURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(envAuthToken); v != "" {
		cfg.AuthToken = v
	}
	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envWorkerFile); v != "" {
		cfg.WorkerFile = v
	}
	if v := os.Getenv(envJournalPath); v != "" {
		cfg.JournalPath = v
	}
	if v := os.Getenv(envMaxPollBatch); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPollBatch = n
		}
	}
	if v := os.Getenv(envBackoffCap); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.BackoffCap = d
		}
	}
	if v := os.Getenv(envShutdownGrace); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			cfg.ShutdownGrace = d
		}
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
