package ml

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/ml/engine"
)

// RunnerConfig selects how the engine is reached.
type RunnerConfig struct {
	// Command, when set, runs the engine as a child process per request.
	// Empty runs it in-process.
	Command string
	// DataDir holds the training data and model files.
	DataDir string
	Timeout time.Duration
}

// RunnerConfigFromEnv reads ML_ENGINE_CMD, ML_DATA_DIR and ML_TIMEOUT.
func RunnerConfigFromEnv() RunnerConfig {
	cfg := RunnerConfig{
		Command: os.Getenv("ML_ENGINE_CMD"),
		DataDir: os.Getenv("ML_DATA_DIR"),
		Timeout: defaultProcessTimeout,
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if d, err := time.ParseDuration(os.Getenv("ML_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg
}

// NewRunner builds the Runner described by cfg.
func NewRunner(cfg RunnerConfig, logger zerolog.Logger) (Runner, error) {
	if cfg.Command == "" {
		logger.Info().Str("data_dir", cfg.DataDir).Msg("using in-process ml engine")
		return LocalRunner{Engine: engine.New(cfg.DataDir)}, nil
	}

	r, err := NewProcessRunner(ProcessConfig{
		Command: ParseCommand(cfg.Command),
		Env:     []string{"ML_DATA_DIR=" + cfg.DataDir},
		Logger:  logger,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("command", cfg.Command).Msg("using ml engine process")
	return r, nil
}
