// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package diag

import (
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Diagnostics receives request, response and error events.
// Implementations must not retain the header or body arguments.
type Diagnostics interface {
	// Enabled reports whether events are recorded at all. Callers use it
	// to skip buffering bodies when nobody is listening.
	Enabled() bool
	LogRequest(source, method string, u *url.URL, header http.Header, body []byte)
	LogResponse(source string, status int, elapsed time.Duration, body []byte)
	LogError(source string, err error, fields ...zap.Field)
}

// =============================================================================
// NOP
// =============================================================================

type nop struct{}

// Nop returns Diagnostics that drops everything.
func Nop() Diagnostics { return nop{} }

func (nop) Enabled() bool {
	return false
}

func (nop) LogRequest(string, string, *url.URL, http.Header, []byte) {
}

func (nop) LogResponse(string, int, time.Duration, []byte) {
}

func (nop) LogError(string, error, ...zap.Field) {
}

// =============================================================================
// ZAP LOGGER
// =============================================================================

// Logger is Diagnostics backed by a zap logger.
type Logger struct {
	log *zap.Logger
}

// New wraps a zap logger. A nil logger behaves like Nop.
func New(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log.Named("diag")}
}

// NewLogger builds the process logger.
// Debug mode logs everything to stderr in a human readable form; otherwise
// only warnings and errors are emitted, as JSON.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	return cfg.Build()
}

// Zap exposes the underlying logger.
func (l *Logger) Zap() *zap.Logger {
	return l.log
}

// Enabled reports whether debug events would be written.
func (l *Logger) Enabled() bool {
	return l.log.Core().Enabled(zapcore.DebugLevel)
}

// LogRequest records an outgoing request with credentials redacted.
func (l *Logger) LogRequest(source, method string, u *url.URL, header http.Header, body []byte) {
	if !l.Enabled() {
		return
	}
	headers := SanitizeHeaders(header)
	fields := []zap.Field{
		zap.String("source", source),
		zap.String("method", method),
		zap.String("url", SanitizeURL(u)),
	}
	for _, name := range sortedKeys(headers) {
		fields = append(fields, zap.String("header."+name, headers[name]))
	}
	if len(body) > 0 {
		fields = append(fields, zap.String("body", Preview(body)))
	}
	l.log.Debug("request", fields...)
}

// LogResponse records a response status with a redacted body preview.
func (l *Logger) LogResponse(source string, status int, elapsed time.Duration, body []byte) {
	if !l.Enabled() {
		return
	}
	fields := []zap.Field{
		zap.String("source", source),
		zap.Int("status", status),
		zap.Duration("elapsed", elapsed),
	}
	if len(body) > 0 {
		fields = append(fields, zap.String("body", Preview(body)))
	}
	l.log.Debug("response", fields...)
}

// LogError records a failure. Errors are logged at debug level because the
// caller is expected to surface the final error to the user.
func (l *Logger) LogError(source string, err error, fields ...zap.Field) {
	if err == nil || !l.Enabled() {
		return
	}
	all := append([]zap.Field{zap.String("source", source), zap.Error(err)}, fields...)
	l.log.Debug("error", all...)
}
