package cmd

import (
	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"github.com/stackgraph/stackgraph/storage"
	"github.com/stackgraph/stackgraph/storage/kvbackend"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Settings are process settings read from the environment.
type Settings struct {
	// StateDB is the document history database. Defaults to
	// ~/.stackgraph/state.db.
	StateDB string `env:"STACKGRAPH_STATE_DB"`

	LogLevel zapcore.Level `env:"STACKGRAPH_LOG_LEVEL" envDefault:"warn"`

	// Concurrency is the rollout concurrency. 0 uses the default.
	Concurrency int `env:"STACKGRAPH_CONCURRENCY" envDefault:"0"`

	// Bucket is the S3 bucket documents are published to.
	Bucket string `env:"STACKGRAPH_BUCKET"`
	Prefix string `env:"STACKGRAPH_BUCKET_PREFIX" envDefault:"stacks"`
}

// LoadSettings reads the settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, errors.Wrap(err, "parse environment")
	}
	if s.Concurrency < 0 {
		return Settings{}, errors.Errorf("STACKGRAPH_CONCURRENCY must not be negative, got %d", s.Concurrency)
	}
	return s, nil
}

// Logger builds the logger. Logs are written to stderr.
func (s Settings) Logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(s.LogLevel)
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}

// OpenHistory opens the document history. The returned function closes the
// database.
func (s Settings) OpenHistory() (*storage.Documents, func() error, error) {
	file := s.StateDB
	if file == "" {
		var err error
		file, err = kvbackend.DefaultFile()
		if err != nil {
			return nil, nil, err
		}
	}
	db, err := kvbackend.NewBoltWithFile(file)
	if err != nil {
		return nil, nil, err
	}
	return &storage.Documents{Backend: db}, db.Close, nil
}
