// Package config loads runtime settings from an optional .env file and the
// process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dvloznov/smart-budget/internal/categorize"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/schema"
	"github.com/dvloznov/smart-budget/internal/tools"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Environment variable names.
const (
	EnvLogLevel        = "SMART_BUDGET_LOG_LEVEL"
	EnvOutputDir       = "SMART_BUDGET_OUTPUT_DIR"
	EnvDefaultCurrency = "SMART_BUDGET_DEFAULT_CURRENCY"
	EnvRulesFile       = "SMART_BUDGET_RULES_FILE"
	EnvProfileFile     = "SMART_BUDGET_ALIASES_FILE"
	EnvDataDir         = "SMART_BUDGET_DATA_DIR"
	EnvAllowedOrigins  = "SMART_BUDGET_ALLOWED_ORIGINS"
	EnvPort            = "PORT"
	EnvBucket          = "GCS_BUCKET"
	EnvEmulatorHost    = "STORAGE_EMULATOR_HOST"
)

// DefaultDataDir is the directory the API reads CSV paths from.
const DefaultDataDir = "data"

// Config holds runtime settings. Command-line flags override fields after Load.
type Config struct {
	LogLevel        zerolog.Level
	OutputDir       string
	DataDir         string
	DefaultCurrency string
	RulesFile       string
	ProfileFile     string
	Port            string
	Bucket          string
	EmulatorHost    string
	AllowedOrigins  []string
}

// Load reads .env files (default ".env"; a missing file is not an error)
// and then the environment. Variables already set in the environment win
// over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("Load: read %s: %w", f, err)
		}
	}

	level, err := logger.ParseLevel(getEnv(EnvLogLevel, "info"))
	if err != nil {
		return nil, fmt.Errorf("Load: %s: %w", EnvLogLevel, err)
	}

	return &Config{
		LogLevel:        level,
		OutputDir:       getEnv(EnvOutputDir, tools.DefaultOutputDir),
		DataDir:         getEnv(EnvDataDir, DefaultDataDir),
		DefaultCurrency: getEnv(EnvDefaultCurrency, "USD"),
		RulesFile:       getEnv(EnvRulesFile, ""),
		ProfileFile:     getEnv(EnvProfileFile, ""),
		Port:            getEnv(EnvPort, "8080"),
		Bucket:          getEnv(EnvBucket, ""),
		EmulatorHost:    getEnv(EnvEmulatorHost, ""),
		AllowedOrigins:  splitList(getEnv(EnvAllowedOrigins, "")),
	}, nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultVal
}

// ToolkitOptions resolves the configured rule and profile files into
// toolkit options. storage may be nil.
func (c *Config) ToolkitOptions(storage gcs.StorageService) (tools.Options, error) {
	opts := tools.Options{
		Storage:         storage,
		DefaultCurrency: c.DefaultCurrency,
		OutputDir:       c.OutputDir,
	}
	if c.RulesFile != "" {
		rules, err := categorize.LoadRules(c.RulesFile)
		if err != nil {
			return tools.Options{}, fmt.Errorf("ToolkitOptions: %w", err)
		}
		opts.Rules = rules
	}
	if c.ProfileFile != "" {
		profile, err := schema.LoadProfileFile(c.ProfileFile)
		if err != nil {
			return tools.Options{}, fmt.Errorf("ToolkitOptions: %w", err)
		}
		opts.Profile = profile
	}
	return opts, nil
}
