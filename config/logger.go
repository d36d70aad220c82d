package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CheckDebug reports whether debug logging was requested.
func CheckDebug() bool {
	debug := os.Getenv("CANOPY_DEBUG")
	return debug == "true" || debug == "1"
}

// NewLogger builds the process logger. With CANOPY_DEBUG set, debug-level
// output goes to debug.log in the data directory (0600 - prompts and
// upstream bodies may appear in it); otherwise logging is a no-op so the
// terminal stays clean for command output.
func NewLogger(dataDir string) (*zap.Logger, error) {
	if !CheckDebug() {
		return zap.NewNop(), nil
	}

	logPath := filepath.Join(dataDir, "debug.log")
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(f),
		zapcore.DebugLevel,
	)
	return zap.New(core), nil
}
