package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	mu         sync.Mutex
	atomLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger initializes the global logger to write to stderr with timestamps.
func initLogger() {
	loggerOnce.Do(func() {
		logger = newSugared(os.Stderr)
	})
}

func newSugared(w io.Writer) *zap.SugaredLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), atomLevel)
	return zap.New(core).Sugar()
}

// SetOutput redirects all log lines to w. Used by tests and by the CLI
// when a log file is requested.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = newSugared(w)
}

func SetLevel(l Level) {
	initLogger()
	atomLevel.SetLevel(toZap(l))
}

// ParseLevel accepts debug/info/warn/error in any case.
func ParseLevel(s string) (Level, error) {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug, nil
	case LevelInfo, "":
		return LevelInfo, nil
	case LevelWarn, "WARNING":
		return LevelWarn, nil
	case LevelError:
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func toZap(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func current() *zap.SugaredLogger {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Debug(msg string, kv ...any) {
	current().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Infow(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warnw(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Errorw(msg, extended...)
}

// Sync flushes buffered entries; call before exit.
func Sync() {
	_ = current().Sync()
}
