// Package config loads the grader configuration from TOML and materializes
// a typed EffectiveConfig. Per-problem overrides merge on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// LocationsConfig holds filesystem locations for problems and reports.
type LocationsConfig struct {
	ProblemRoot          string `toml:"problem_root"`
	ReportRoot           string `toml:"report_root"`
	ReportFolderTemplate string `toml:"report_folder_template"`
}

// SecurityConfig controls what captured streams reports may embed.
type SecurityConfig struct {
	ReportStdout bool `toml:"report_stdout"`
	ReportStderr bool `toml:"report_stderr"`
}

// RunnerConfig selects the runner implementation.
type RunnerConfig struct {
	Name   string            `toml:"name"`
	Params map[string]string `toml:"params"`
}

// LimitsConfig holds resource limits for solution execution.
type LimitsConfig struct {
	// MemoryMB is an advisory limit passed to runtimes that accept it.
	MemoryMB            int                `toml:"memory"`
	TimeLimitMultiplier float64            `toml:"time_limit_multiplier"`
	Time                map[string]float64 `toml:"time"`
}

// ReportingConfig carries the banners the report renderer embeds.
type ReportingConfig struct {
	AlertBanner   string `toml:"alert_banner"`
	WarningBanner string `toml:"warning_banner"`
	InfoBanner    string `toml:"info_banner"`
}

// EffectiveConfig is the fully materialized top-level configuration.
type EffectiveConfig struct {
	Locations LocationsConfig `toml:"locations"`
	Security  SecurityConfig  `toml:"security"`
	Runner    RunnerConfig    `toml:"runner"`
	Limits    LimitsConfig    `toml:"limits"`
	Reporting ReportingConfig `toml:"reporting"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *EffectiveConfig {
	return &EffectiveConfig{
		Locations: LocationsConfig{
			ProblemRoot:          "problems",
			ReportRoot:           "reports",
			ReportFolderTemplate: "testrun-{dt}-{hostname}",
		},
		Security: SecurityConfig{
			ReportStdout: true,
			ReportStderr: true,
		},
		Runner: RunnerConfig{
			Name:   "subprocess",
			Params: map[string]string{},
		},
		Limits: LimitsConfig{
			MemoryMB:            512,
			TimeLimitMultiplier: 1.0,
			Time: map[string]float64{
				"c":          4.0,
				"cpp":        4.0,
				"csharp":     6.0,
				"java":       8.0,
				"javascript": 20.0,
				"python":     20.0,
				"ruby":       20.0,
			},
		},
		Reporting: ReportingConfig{},
	}
}

// Load reads the grader configuration file, then applies HAMMURABI_*
// environment overrides. A .env file in the working directory is honored
// when present.
func Load(path string) (*EffectiveConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(cfg)

	if cfg.Limits.TimeLimitMultiplier <= 0 {
		return nil, fmt.Errorf("limits.time_limit_multiplier must be positive, got %g", cfg.Limits.TimeLimitMultiplier)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *EffectiveConfig) {
	if v := os.Getenv("HAMMURABI_PROBLEM_ROOT"); v != "" {
		cfg.Locations.ProblemRoot = v
	}
	if v := os.Getenv("HAMMURABI_REPORT_ROOT"); v != "" {
		cfg.Locations.ReportRoot = v
	}
	if v := os.Getenv("HAMMURABI_TIME_LIMIT_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Limits.TimeLimitMultiplier = f
		}
	}
	if v := os.Getenv("HAMMURABI_MEMORY_LIMIT_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MemoryMB = n
		}
	}
}
