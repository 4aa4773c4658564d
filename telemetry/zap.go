package telemetry

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
)

// LogrLogger adapts a logr.Logger (for example one backed by zapr over a
// production zap.Logger) to the runtime's Logger interface.
type LogrLogger struct {
	base logr.Logger
}

// NewZapLogger builds a Logger backed by the given zap.Logger via zapr. Pass
// zap.NewProduction() (or a project-specific config) for real deployments.
func NewZapLogger(z *zap.Logger) Logger {
	return LogrLogger{base: zapr.NewLogger(z)}
}

// NewLogrLogger wraps an arbitrary logr.Logger, useful when the host process
// already standardized on logr (for example a Kubernetes controller runtime).
func NewLogrLogger(l logr.Logger) Logger {
	return LogrLogger{base: l}
}

// Debug emits a V(1) logr message; logr has no dedicated debug level.
func (l LogrLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	l.base.V(1).Info(msg, keyvals...)
}

// Info emits a logr Info message.
func (l LogrLogger) Info(_ context.Context, msg string, keyvals ...any) {
	l.base.Info(msg, keyvals...)
}

// Warn emits a logr Info message tagged with severity=warning; logr has no
// warn level of its own.
func (l LogrLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	l.base.Info(msg, append(append([]any{}, keyvals...), "severity", "warning")...)
}

// Error emits a logr Error message.
func (l LogrLogger) Error(_ context.Context, msg string, keyvals ...any) {
	l.base.Error(nil, msg, keyvals...)
}
