// Package config reads the server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort            = "5000"
	DefaultModelPath       = "models/vgg16_notop_avg.onnx"
	DefaultMetadataPath    = "models/vgg16_notop_avg.json"
	DefaultTargetPath      = "objetivo/2025-09-28-18-26-08.png"
	DefaultMaxBodyBytes    = 8 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

type Config struct {
	Port            string
	ModelPath       string
	MetadataPath    string
	TargetPath      string
	LibraryPath     string
	LogLevel        slog.Level
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Load builds a Config from getenv, usually os.Getenv. Unset variables take
// their defaults; malformed values are errors.
func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:            stringOr(getenv("PORT"), DefaultPort),
		ModelPath:       stringOr(getenv("MODEL_PATH"), DefaultModelPath),
		MetadataPath:    stringOr(getenv("METADATA_PATH"), DefaultMetadataPath),
		TargetPath:      stringOr(getenv("TARGET_PATH"), DefaultTargetPath),
		LibraryPath:     getenv("ORT_LIBRARY_PATH"),
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if port, err := strconv.Atoi(cfg.Port); err != nil || port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %q", cfg.Port)
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(v))); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	if v := getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid MAX_BODY_BYTES %q", v)
		}
		cfg.MaxBodyBytes = n
	}

	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q: %w", v, err)
		}
		cfg.ShutdownTimeout = d
	}

	return cfg, nil
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func stringOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
