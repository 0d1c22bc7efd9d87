// Package logging provides the leveled query logger used across the module.
// It is a thin layer over log/slog with one extra severity, CRITICAL, above
// ERROR. A CRITICAL log is a fail-fast signal: Critical returns the error it
// logged so the operation in progress can abort with it.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LevelCritical sits above slog's built-in ERROR. Severities order
// DEBUG < INFO < WARN < ERROR < CRITICAL.
const LevelCritical = slog.LevelError + 4

// QueryContext carries query diagnostics attached to log records.
type QueryContext struct {
	SQL   string
	Binds []any
	Name  string
}

// Logger is an explicit logger instance passed into the executor and
// connection manager by the caller's composition point. There is no package
// global carrying mutable state.
type Logger struct {
	sl *slog.Logger
}

// New wraps an slog handler.
func New(h slog.Handler) *Logger {
	return &Logger{sl: slog.New(h)}
}

// Default returns a JSON logger on stderr at INFO, with the CRITICAL level
// rendered by name.
func Default() *Logger {
	return NewJSON(os.Stderr, slog.LevelInfo)
}

// NewJSON returns a JSON logger on w at the given minimum level.
func NewJSON(w io.Writer, min slog.Level) *Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: min,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl >= LevelCritical {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	})
	return New(h)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewJSON(io.Discard, LevelCritical+4)
}

func (l *Logger) Debug(msg string, qc ...QueryContext) { l.log(slog.LevelDebug, msg, qc) }
func (l *Logger) Info(msg string, qc ...QueryContext)  { l.log(slog.LevelInfo, msg, qc) }
func (l *Logger) Warn(msg string, qc ...QueryContext)  { l.log(slog.LevelWarn, msg, qc) }

// Error logs a fatal condition alongside its cause.
func (l *Logger) Error(msg string, err error, qc ...QueryContext) {
	l.logErr(slog.LevelError, msg, err, qc)
}

// Critical logs at CRITICAL and returns the error the caller must abort
// with. The returned error wraps err so errors.Is still matches the cause.
func (l *Logger) Critical(msg string, err error, qc ...QueryContext) error {
	l.logErr(LevelCritical, msg, err, qc)
	if err == nil {
		return fmt.Errorf("critical: %s", msg)
	}
	return fmt.Errorf("critical: %s: %w", msg, err)
}

func (l *Logger) log(level slog.Level, msg string, qc []QueryContext) {
	l.sl.LogAttrs(context.Background(), level, msg, queryAttrs(qc)...)
}

func (l *Logger) logErr(level slog.Level, msg string, err error, qc []QueryContext) {
	attrs := queryAttrs(qc)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.sl.LogAttrs(context.Background(), level, msg, attrs...)
}

func queryAttrs(qc []QueryContext) []slog.Attr {
	if len(qc) == 0 {
		return nil
	}
	c := qc[0]
	attrs := make([]slog.Attr, 0, 3)
	if c.SQL != "" {
		attrs = append(attrs, slog.String("sql", c.SQL))
	}
	if len(c.Binds) > 0 {
		attrs = append(attrs, slog.Any("binds", c.Binds))
	}
	if c.Name != "" {
		attrs = append(attrs, slog.String("query_name", c.Name))
	}
	return attrs
}
