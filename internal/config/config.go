// Package config loads runtime settings from SHEETSIFT_* environment
// variables. CLI flags use these values as their defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/insightdelivered/sheetsift/internal/logger"
	"github.com/insightdelivered/sheetsift/internal/models"
)

// Environment variable names.
const (
	EnvAddr         = "SHEETSIFT_ADDR"
	EnvResultDir    = "SHEETSIFT_RESULT_DIR"
	EnvOutputPrefix = "SHEETSIFT_OUTPUT_PREFIX"
	EnvDeleteAfter  = "SHEETSIFT_DELETE_AFTER"
	EnvBodyLimit    = "SHEETSIFT_BODY_LIMIT"
	EnvGCSBucket    = "SHEETSIFT_GCS_BUCKET"
	EnvGCSPrefix    = "SHEETSIFT_GCS_PREFIX"
	EnvLogLevel     = "SHEETSIFT_LOG_LEVEL"
	EnvLogFormat    = "SHEETSIFT_LOG_FORMAT"
	EnvPurgeOnStart = "SHEETSIFT_PURGE_ON_START"
)

// Config holds everything the server and CLI need at startup.
type Config struct {
	Addr         string
	ResultDir    string
	OutputPrefix string
	DeleteAfter  time.Duration // grace period before a result is removed
	BodyLimit    int           // max upload size in bytes
	GCSBucket    string        // results go to GCS when set
	GCSPrefix    string
	LogLevel     string
	LogFormat    string
	PurgeOnStart bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Addr:         ":8080",
		ResultDir:    "results",
		OutputPrefix: models.DefaultOutputPrefix,
		DeleteAfter:  5 * time.Minute,
		BodyLimit:    16 << 20,
		GCSPrefix:    "sheetsift",
		LogLevel:     "info",
		LogFormat:    logger.FormatConsole,
		PurgeOnStart: true,
	}
}

// Load reads the process environment.
func Load() (Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv overlays variables found by lookup onto Default and validates
// the result.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvAddr, &c.Addr)
	str(EnvResultDir, &c.ResultDir)
	str(EnvOutputPrefix, &c.OutputPrefix)
	str(EnvGCSBucket, &c.GCSBucket)
	str(EnvGCSPrefix, &c.GCSPrefix)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)

	if v, ok := lookup(EnvDeleteAfter); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvDeleteAfter, err)
		}
		c.DeleteAfter = d
	}
	if v, ok := lookup(EnvBodyLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvBodyLimit, err)
		}
		c.BodyLimit = n
	}
	if v, ok := lookup(EnvPurgeOnStart); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("%s: %w", EnvPurgeOnStart, err)
		}
		c.PurgeOnStart = b
	}

	return c, c.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.GCSBucket == "" && c.ResultDir == "" {
		return fmt.Errorf("result dir must not be empty")
	}
	if c.OutputPrefix == "" || strings.ContainsAny(c.OutputPrefix, `/\`) {
		return fmt.Errorf("invalid output prefix %q", c.OutputPrefix)
	}
	if c.DeleteAfter <= 0 {
		return fmt.Errorf("delete-after must be positive, got %s", c.DeleteAfter)
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive, got %d", c.BodyLimit)
	}
	if _, err := logger.New(c.LogLevel, c.LogFormat); err != nil {
		return err
	}
	return nil
}
