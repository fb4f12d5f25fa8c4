// Package config loads runtime settings from the environment and builds the
// shared collaborators (logger, puzzle providers) every command needs.
package config

import (
	"fmt"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/puzzle"
	"github.com/peterkuimelis/powercountdown/internal/puzzle/llm"
)

// Config is the full environment configuration.
type Config struct {
	Log LogConfig `envPrefix:"PCD_LOG_"`
	LLM LLMConfig `envPrefix:"PCD_LLM_"`

	// PuzzlesFile overrides the built-in offline catalog.
	PuzzlesFile string          `env:"PCD_PUZZLES_FILE"`
	Difficulty  game.Difficulty `env:"PCD_DIFFICULTY" envDefault:"MEDIUM"`
}

type LogConfig struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"console"`
}

// LLMConfig selects an OpenAI-compatible endpoint. Without an API key the
// offline catalog is used instead.
type LLMConfig struct {
	APIKey         string        `env:"API_KEY"`
	BaseURL        string        `env:"BASE_URL"        envDefault:"https://openrouter.ai/api/v1"`
	Model          string        `env:"MODEL"           envDefault:"google/gemini-2.5-flash"`
	FallbackModels []string      `env:"FALLBACK_MODELS" envSeparator:","`
	Timeout        time.Duration `env:"TIMEOUT"         envDefault:"30s"`
}

// Load reads the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.LLM.APIKey != "" {
		if c.LLM.BaseURL == "" {
			return fmt.Errorf("PCD_LLM_BASE_URL is required with an API key")
		}
		if c.LLM.Model == "" {
			return fmt.Errorf("PCD_LLM_MODEL is required with an API key")
		}
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("PCD_LLM_TIMEOUT must be positive, got %s", c.LLM.Timeout)
	}
	return nil
}

// NewLogger builds the service logger. Output goes to stderr.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}

	return zapCfg.Build()
}

// NewGuard builds the puzzle provider: the LLM client when an API key is set,
// otherwise the offline catalog.
func (c Config) NewGuard(logger *zap.Logger) (*puzzle.Guard, error) {
	if c.LLM.APIKey != "" {
		client := llm.NewClient(
			&http.Client{Timeout: c.LLM.Timeout},
			c.LLM.APIKey,
			c.LLM.BaseURL,
			c.LLM.Model,
			c.LLM.FallbackModels,
			logger.Named("llm"),
		)
		logger.Info("using LLM puzzle provider", zap.String("model", c.LLM.Model), zap.Strings("fallback_models", c.LLM.FallbackModels))
		return puzzle.NewGuard(client, client, logger.Named("puzzle")), nil
	}

	catalog, err := puzzle.LoadCatalog(c.PuzzlesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("using offline puzzle catalog", zap.String("file", c.PuzzlesFile))
	return puzzle.NewGuard(catalog, catalog, logger.Named("puzzle")), nil
}
