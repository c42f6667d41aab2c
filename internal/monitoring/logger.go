// Package monitoring holds the process-wide diagnostic logger, pipeline
// counters and the gRPC health endpoint.
package monitoring

import (
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger or UseZap. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf and Errorf report problems that must survive a raised log level:
// discarded input, failed side channels and fatal outcomes.
var (
	Warnf  func(format string, v ...interface{}) = log.Printf
	Errorf func(format string, v ...interface{}) = log.Printf
)

// SetLogger routes Logf, Warnf and Errorf to f. Passing nil will set a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf, Warnf, Errorf = f, f, f
}

// Loggers is a snapshot of the package loggers.
type Loggers struct {
	Logf, Warnf, Errorf func(format string, v ...interface{})
}

// CurrentLoggers returns the loggers in use, for a later Restore.
func CurrentLoggers() Loggers {
	return Loggers{Logf: Logf, Warnf: Warnf, Errorf: Errorf}
}

// Restore reinstalls the snapshot.
func (l Loggers) Restore() {
	Logf, Warnf, Errorf = l.Logf, l.Warnf, l.Errorf
}

// Log levels accepted by UseZap.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

func toZapLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newZapLogger(w zapcore.WriteSyncer, level string) *zap.SugaredLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		w,
		zap.NewAtomicLevelAt(toZapLevel(level)),
	)
	return zap.New(core).Sugar()
}

// UseZap routes Logf, Warnf and Errorf through a console zap logger on
// stderr at the matching levels, filtered at level. The returned function
// flushes the logger and should be deferred by main.
func UseZap(level string) (*zap.SugaredLogger, func()) {
	return useZap(zapcore.Lock(os.Stderr), level)
}

func useZap(w zapcore.WriteSyncer, level string) (*zap.SugaredLogger, func()) {
	l := newZapLogger(w, level)
	Logf, Warnf, Errorf = l.Infof, l.Warnf, l.Errorf
	return l, func() { _ = l.Sync() }
}
