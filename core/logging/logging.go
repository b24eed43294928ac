package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a JSON production logger, or a console logger with stack
// traces on warnings when development is set.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}
