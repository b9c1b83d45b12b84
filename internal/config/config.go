// Package config provides centralized configuration management for the
// validator. It loads settings from environment variables with sensible
// defaults and validates everything on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Lookup  LookupConfig
	Audit   AuditConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing the response.
	// Validation runs with lookup enabled can take minutes on large files
	// (default: 10m).
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxUploadBytes limits the size of an uploaded file (default: 20MB)
	MaxUploadBytes int64 `env:"SERVER_MAX_UPLOAD_BYTES" default:"20971520"`
}

// LookupConfig holds postal-code lookup settings.
type LookupConfig struct {
	// Timeout bounds each individual provider call (default: 15s)
	Timeout time.Duration `env:"LOOKUP_TIMEOUT" default:"15s"`

	// MaxConcurrent is the number of simultaneously in-flight lookups
	// during the prewarm phase (default: 2)
	MaxConcurrent int `env:"LOOKUP_MAX_CONCURRENT" default:"2"`

	// NotFoundThreshold is how many providers must answer "not found"
	// before an exhausted lookup is reported as not-found rather than as a
	// generic failure (default: 2)
	NotFoundThreshold int `env:"LOOKUP_NOT_FOUND_THRESHOLD" default:"2"`

	// MinDigits is the minimum digit count for a postal value to be
	// eligible for lookup at all (default: 7)
	MinDigits int `env:"LOOKUP_MIN_DIGITS" default:"7"`

	// UserAgent is the identifying header sent to every provider
	// (default: Mozilla/5.0)
	UserAgent string `env:"LOOKUP_USER_AGENT" default:"Mozilla/5.0"`
}

// AuditConfig holds run-history settings.
type AuditConfig struct {
	// Path is the sqlite database file for run history (default: csv-validador.db)
	Path string `env:"AUDIT_DB_PATH" default:"csv-validador.db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
