// Package config provides configuration loading from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Transport values.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds all configuration for the inference service.
type Config struct {
	Host string // HOST, default "0.0.0.0"
	Port int    // PORT, default 8000

	ModelPath    string        // MODEL_PATH, default "models/superkart_model.yaml"
	ModelURL     string        // MODEL_URL, default "" (use MODEL_PATH)
	ModelTimeout time.Duration // MODEL_TIMEOUT_MS, default 60000ms, remote model only
	ModelWatch   bool          // MODEL_WATCH, default true, file model only

	PredictionCacheSize int  // PREDICTION_CACHE_SIZE, default 4096, 0 disables
	BatchWorkers        int  // BATCH_WORKERS, default 8
	BatchChunkSize      int  // BATCH_CHUNK_SIZE, default 256
	MaxBatchRows        int  // MAX_BATCH_ROWS, default 1000
	MaxFileSizeMB       int  // MAX_FILE_SIZE_MB, default 50
	NormalizeSugar      bool // AUTO_NORMALIZE_SUGAR_CONTENT, default false

	ReadTimeout     time.Duration // READ_TIMEOUT_MS, default 30000ms
	WriteTimeout    time.Duration // WRITE_TIMEOUT_MS, default 120000ms
	ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT_MS, default 10000ms

	Transport   string   // TRANSPORT, "http" (default) or "stdio"
	CORSOrigins []string // CORS_ORIGINS, comma separated, default "*"

	// Logging configuration
	LogLevel      string // LOG_LEVEL, default "info"
	LogFormat     string // LOG_FORMAT, "text" (default) or "json"
	LogFile       string // LOG_FILE, default "" (stderr only)
	LogMaxSizeMB  int    // LOG_MAX_SIZE_MB, default 10
	LogMaxBackups int    // LOG_MAX_BACKUPS, default 5
	LogMaxAgeDays int    // LOG_MAX_AGE_DAYS, default 28
	LogCompress   bool   // LOG_COMPRESS, default true
}

// Load reads a .env file from the working directory when present, then
// reads configuration from environment variables with sensible defaults.
// Variables already set in the environment win over the file.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("ignoring unreadable .env file", slog.String("error", err.Error()))
	}

	return &Config{
		Host: getEnvString("HOST", "0.0.0.0"),
		Port: getEnvInt("PORT", 8000),

		ModelPath:    getEnvString("MODEL_PATH", "models/superkart_model.yaml"),
		ModelURL:     getEnvString("MODEL_URL", ""),
		ModelTimeout: getEnvDurationMs("MODEL_TIMEOUT_MS", 60000),
		ModelWatch:   getEnvBool("MODEL_WATCH", true),

		PredictionCacheSize: getEnvInt("PREDICTION_CACHE_SIZE", 4096),
		BatchWorkers:        getEnvInt("BATCH_WORKERS", 8),
		BatchChunkSize:      getEnvInt("BATCH_CHUNK_SIZE", 256),
		MaxBatchRows:        getEnvInt("MAX_BATCH_ROWS", 1000),
		MaxFileSizeMB:       getEnvInt("MAX_FILE_SIZE_MB", 50),
		NormalizeSugar:      getEnvBool("AUTO_NORMALIZE_SUGAR_CONTENT", false),

		ReadTimeout:     getEnvDurationMs("READ_TIMEOUT_MS", 30000),
		WriteTimeout:    getEnvDurationMs("WRITE_TIMEOUT_MS", 120000),
		ShutdownTimeout: getEnvDurationMs("SHUTDOWN_TIMEOUT_MS", 10000),

		Transport:   strings.ToLower(getEnvString("TRANSPORT", TransportHTTP)),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogFormat:     getEnvString("LOG_FORMAT", "text"),
		LogFile:       getEnvString("LOG_FILE", ""),
		LogMaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.ModelPath == "" && c.ModelURL == "" {
		errs = append(errs, errors.New("one of MODEL_PATH or MODEL_URL is required"))
	}
	if c.MaxBatchRows <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BATCH_ROWS must be positive, got %d", c.MaxBatchRows))
	}
	if c.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB))
	}
	if c.BatchWorkers <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers))
	}
	if c.BatchChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_CHUNK_SIZE must be positive, got %d", c.BatchChunkSize))
	}
	if c.PredictionCacheSize < 0 {
		errs = append(errs, fmt.Errorf("PREDICTION_CACHE_SIZE must not be negative, got %d", c.PredictionCacheSize))
	}
	if c.Transport != TransportHTTP && c.Transport != TransportStdio {
		errs = append(errs, fmt.Errorf("TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportStdio, c.Transport))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MaxBodyBytes returns MaxFileSizeMB in bytes.
func (c *Config) MaxBodyBytes() int64 {
	return int64(c.MaxFileSizeMB) << 20
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDurationMs(key string, defaultMs int) time.Duration {
	ms := getEnvInt(key, defaultMs)
	return time.Duration(ms) * time.Millisecond
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
