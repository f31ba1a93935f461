// Package logging builds the zap loggers used across sitewalk. The
// interactive TUI owns the terminal, so its logs are written to a file
// under the state directory instead of stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogFile is the log destination relative to the state dir.
const DefaultLogFile = "sitewalk.log"

// New builds a stderr logger for non-interactive commands.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// NewFile builds a file-backed logger for the interactive wizard. The
// parent directory is created if missing.
func NewFile(stateDir string, verbose bool) (*zap.Logger, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(stateDir, DefaultLogFile)}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything. Used as the default in
// constructors so components never have to nil-check.
func Nop() *zap.Logger {
	return zap.NewNop()
}
