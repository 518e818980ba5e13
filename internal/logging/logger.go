package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "BLE_ROSTER_LOG_LEVEL"

// DefaultPath is the log file used when none is configured. The terminal
// belongs to the roster display, so logs never go to stdout.
const DefaultPath = "ble_monitor.log"

// Initialize creates a new logger with the specified level writing to path.
// If level is empty, it checks BLE_ROSTER_LOG_LEVEL.
// If neither is set, logging is disabled (silent mode).
func Initialize(level, path string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := parseLevel(level)
	if err != nil {
		return err
	}
	if path == "" {
		path = DefaultPath
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// ValidLevel reports whether level is empty or one Initialize accepts.
func ValidLevel(level string) bool {
	if level == "" {
		return true
	}
	_, err := parseLevel(level)
	return err == nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogCycleError logs a failure caught at the refresh cycle boundary.
func LogCycleError(phase string, err error, retryIn time.Duration) {
	Warn("Refresh cycle failed",
		zap.String("phase", phase),
		zap.Error(err),
		zap.Duration("retry_in", retryIn),
	)
}

// LogEviction logs devices dropped from the registry.
func LogEviction(removed, remaining int) {
	Debug("Devices evicted",
		zap.Int("removed", removed),
		zap.Int("remaining", remaining),
	)
}

// LogSourceState logs a scan source connection change.
func LogSourceState(source string, connected bool, err error) {
	fields := []zap.Field{
		zap.String("source", source),
		zap.Bool("connected", connected),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
		Warn("Scan source state", fields...)
		return
	}
	Info("Scan source state", fields...)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
