// Package config loads engine and service settings from defaults, an
// optional YAML file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"trade-pattern-lab/internal/analysis"
	"trade-pattern-lab/internal/engine"
	"trade-pattern-lab/internal/metrics"
)

// Config is the complete runtime configuration.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Service ServiceConfig `yaml:"service"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig holds the learning engine knobs.
type EngineConfig struct {
	BatchSize           int     `yaml:"batch_size"`
	MinTrades           int     `yaml:"min_trades"`
	MinPatternTrades    int     `yaml:"min_pattern_trades"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	FeeMargin           float64 `yaml:"fee_margin"`
	TopWinners          int     `yaml:"top_winners"`

	FilterOutliers bool    `yaml:"filter_outliers"`
	OutlierStdDevs float64 `yaml:"outlier_std_devs"`

	CorrelationThreshold float64 `yaml:"correlation_threshold"`
	TopCorrelations      int     `yaml:"top_correlations"`
	DriftMinTrades       int     `yaml:"drift_min_trades"`
	DriftThreshold       float64 `yaml:"drift_threshold"`
	RegimeLookback       int     `yaml:"regime_lookback"`
}

// ServiceConfig holds the HTTP service and storage settings.
type ServiceConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	PostgresDSN     string        `yaml:"postgres_dsn"`
	ClickHouseDSN   string        `yaml:"clickhouse_dsn"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	RedisPrefix     string        `yaml:"redis_prefix"`
	LedgerPath      string        `yaml:"ledger_path"`
	UseMemory       bool          `yaml:"use_memory"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`  // debug, info, warn, error
	File   string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	eo := engine.DefaultOptions()
	return &Config{
		Engine: EngineConfig{
			BatchSize:            eo.BatchSize,
			MinTrades:            eo.MinTrades,
			MinPatternTrades:     eo.Metrics.MinPatternTrades,
			ConfidenceThreshold:  eo.ConfidenceThreshold,
			FeeMargin:            eo.Metrics.FeeMargin,
			TopWinners:           eo.TopWinners,
			FilterOutliers:       eo.Metrics.FilterOutliers,
			OutlierStdDevs:       eo.Metrics.OutlierStdDevs,
			CorrelationThreshold: eo.Analysis.CorrelationThreshold,
			TopCorrelations:      eo.Analysis.TopCorrelations,
			DriftMinTrades:       eo.Analysis.DriftMinTrades,
			DriftThreshold:       eo.Analysis.DriftThreshold,
			RegimeLookback:       eo.Analysis.RegimeLookback,
		},
		Service: ServiceConfig{
			HTTPAddr:        ":8080",
			RedisPrefix:     "patternlab",
			UseMemory:       true,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded if present. path may be empty; otherwise the YAML file is merged
// over the defaults. Environment variables win over both.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", filepath.Base(path), err)
	}
	return nil
}

// YAML renders the configuration in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	e := &c.Engine
	e.BatchSize = envInt("PATTERNLAB_BATCH_SIZE", e.BatchSize)
	e.MinTrades = envInt("PATTERNLAB_MIN_TRADES", e.MinTrades)
	e.MinPatternTrades = envInt("PATTERNLAB_MIN_PATTERN_TRADES", e.MinPatternTrades)
	e.ConfidenceThreshold = envFloat("PATTERNLAB_CONFIDENCE_THRESHOLD", e.ConfidenceThreshold)
	e.FeeMargin = envFloat("PATTERNLAB_FEE_MARGIN", e.FeeMargin)
	e.TopWinners = envInt("PATTERNLAB_TOP_WINNERS", e.TopWinners)
	e.FilterOutliers = envBool("PATTERNLAB_FILTER_OUTLIERS", e.FilterOutliers)
	e.OutlierStdDevs = envFloat("PATTERNLAB_OUTLIER_STD_DEVS", e.OutlierStdDevs)
	e.CorrelationThreshold = envFloat("PATTERNLAB_CORRELATION_THRESHOLD", e.CorrelationThreshold)
	e.TopCorrelations = envInt("PATTERNLAB_TOP_CORRELATIONS", e.TopCorrelations)
	e.DriftMinTrades = envInt("PATTERNLAB_DRIFT_MIN_TRADES", e.DriftMinTrades)
	e.DriftThreshold = envFloat("PATTERNLAB_DRIFT_THRESHOLD", e.DriftThreshold)
	e.RegimeLookback = envInt("PATTERNLAB_REGIME_LOOKBACK", e.RegimeLookback)

	s := &c.Service
	s.HTTPAddr = envStr("HTTP_ADDR", s.HTTPAddr)
	s.PostgresDSN = envStr("POSTGRES_DSN", s.PostgresDSN)
	s.ClickHouseDSN = envStr("CLICKHOUSE_DSN", s.ClickHouseDSN)
	s.RedisAddr = envStr("REDIS_ADDR", s.RedisAddr)
	s.RedisPassword = envStr("REDIS_PASSWORD", s.RedisPassword)
	s.RedisDB = envInt("REDIS_DB", s.RedisDB)
	s.RedisPrefix = envStr("REDIS_PREFIX", s.RedisPrefix)
	s.LedgerPath = envStr("LEDGER_PATH", s.LedgerPath)
	s.UseMemory = envBool("USE_MEMORY", s.UseMemory)
	s.ShutdownTimeout = envDuration("SHUTDOWN_TIMEOUT", s.ShutdownTimeout)

	c.Log.Format = envStr("LOG_FORMAT", c.Log.Format)
	c.Log.Level = envStr("LOG_LEVEL", c.Log.Level)
	c.Log.File = envStr("LOG_FILE", c.Log.File)
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error
	e := c.Engine
	if e.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", e.BatchSize))
	}
	if e.MinTrades <= 0 {
		errs = append(errs, fmt.Errorf("min_trades must be positive, got %d", e.MinTrades))
	}
	if e.MinPatternTrades <= 0 {
		errs = append(errs, fmt.Errorf("min_pattern_trades must be positive, got %d", e.MinPatternTrades))
	}
	if e.ConfidenceThreshold <= 0 || e.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence_threshold must be in (0,1], got %g", e.ConfidenceThreshold))
	}
	if e.CorrelationThreshold < 0 || e.CorrelationThreshold >= 1 {
		errs = append(errs, fmt.Errorf("correlation_threshold must be in [0,1), got %g", e.CorrelationThreshold))
	}
	if e.FilterOutliers && e.OutlierStdDevs <= 0 {
		errs = append(errs, fmt.Errorf("outlier_std_devs must be positive when filtering, got %g", e.OutlierStdDevs))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}
	if !c.Service.UseMemory && c.Service.PostgresDSN == "" {
		errs = append(errs, errors.New("postgres_dsn is required unless use_memory is set"))
	}
	return errors.Join(errs...)
}

// EngineOptions converts the engine section into engine options.
func (c *Config) EngineOptions() engine.Options {
	e := c.Engine
	return engine.Options{
		BatchSize:           e.BatchSize,
		MinTrades:           e.MinTrades,
		ConfidenceThreshold: e.ConfidenceThreshold,
		TopWinners:          e.TopWinners,
		Metrics: metrics.Options{
			MinPatternTrades: e.MinPatternTrades,
			FeeMargin:        e.FeeMargin,
			FilterOutliers:   e.FilterOutliers,
			OutlierStdDevs:   e.OutlierStdDevs,
		},
		Analysis: analysis.Options{
			CorrelationThreshold: e.CorrelationThreshold,
			TopCorrelations:      e.TopCorrelations,
			DriftMinTrades:       e.DriftMinTrades,
			DriftThreshold:       e.DriftThreshold,
			RegimeLookback:       e.RegimeLookback,
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		v = strings.ToLower(v)
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
