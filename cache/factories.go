package cache

import (
	"fmt"

	"go.uber.org/zap"
)

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

// Debug logs a debug message (no-op).
func (n *NoOpLogger) Debug(msg string, args ...any) {}

// Info logs an info message (no-op).
func (n *NoOpLogger) Info(msg string, args ...any) {}

// Warn logs a warning message (no-op).
func (n *NoOpLogger) Warn(msg string, args ...any) {}

// Error logs an error message (no-op).
func (n *NoOpLogger) Error(msg string, args ...any) {}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

// ConsoleLogger writes leveled lines to stdout with an optional prefix.
type ConsoleLogger struct {
	prefix string
}

func (cl *ConsoleLogger) print(level, msg string, args []any) {
	fmt.Printf("[%s] %s: %s", level, cl.prefix, msg)
	if len(args) > 0 {
		fmt.Printf(" %v", args)
	}
	fmt.Println()
}

// Debug logs a debug message to console.
func (cl *ConsoleLogger) Debug(msg string, args ...any) { cl.print("DEBUG", msg, args) }

// Info logs an info message to console.
func (cl *ConsoleLogger) Info(msg string, args ...any) { cl.print("INFO", msg, args) }

// Warn logs a warning message to console.
func (cl *ConsoleLogger) Warn(msg string, args ...any) { cl.print("WARN", msg, args) }

// Error logs an error message to console.
func (cl *ConsoleLogger) Error(msg string, args ...any) { cl.print("ERROR", msg, args) }

// NewConsoleLogger creates a new console logger.
func NewConsoleLogger(prefix string) Logger {
	return &ConsoleLogger{prefix: prefix}
}

// ZapLogger adapts a zap logger to Logger. Args are read as alternating
// key/value pairs, the same convention the other loggers print.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps l. A nil l yields a no-op zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{sugar: l.Sugar()}
}

// Debug logs a debug message.
func (z *ZapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }

// Info logs an info message.
func (z *ZapLogger) Info(msg string, args ...any) { z.sugar.Infow(msg, args...) }

// Warn logs a warning message.
func (z *ZapLogger) Warn(msg string, args ...any) { z.sugar.Warnw(msg, args...) }

// Error logs an error message.
func (z *ZapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }
