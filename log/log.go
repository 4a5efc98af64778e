// Package log provides a simple wrapper around logrus
// with a familiar API (Printf, Infof, Errorf, etc.)
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	reqctx "github.com/va6996/tokenagent/context"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance
var Logger = logrus.New()

// CustomFormatter implements logrus.Formatter for the desired output format
type CustomFormatter struct {
	TimestampFormat string
}

// Format formats a log entry as [<time>] [LEVEL] [file:line] <message>
func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format(f.TimestampFormat)
	fmt.Fprintf(b, "[%s] ", timestamp)

	level := strings.ToUpper(entry.Level.String())
	fmt.Fprintf(b, "[%s] ", level)

	// Walk the stack past logrus and this package to find the real caller
	if file, line := callerFrame(); file != "" {
		parts := strings.Split(file, "/")
		fmt.Fprintf(b, "[%s:%d] ", parts[len(parts)-1], line)
	}

	b.WriteString(entry.Message)

	if requestID, ok := entry.Data["request_id"].(string); ok && requestID != "" {
		fmt.Fprintf(b, " [req:%s]", requestID)
	}

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "request_id" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(b, " %s=%v", key, entry.Data[key])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func callerFrame() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		skip := strings.Contains(frame.File, "github.com/sirupsen/logrus") ||
			strings.HasSuffix(frame.File, "log/log.go") ||
			strings.Contains(frame.File, "runtime/")
		if !skip {
			return frame.File, frame.Line
		}
		if !more {
			return "", 0
		}
	}
}

// entry attaches request id, sender and msg id from ctx
func entry(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{"request_id": reqctx.RequestIDFromContext(ctx)}
	if sender := reqctx.SenderFromContext(ctx); sender != "" {
		fields["sender"] = sender
	}
	if msgID := reqctx.MessageIDFromContext(ctx); msgID != "" {
		fields["msg_id"] = msgID
	}
	return Logger.WithFields(fields)
}

// Infof logs formatted message at info level
func Infof(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Infof(format, args...)
}

// Info logs a message at info level
func Info(ctx context.Context, args ...interface{}) {
	entry(ctx).Info(args...)
}

// Debugf logs formatted message at debug level
func Debugf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Debugf(format, args...)
}

// Debug logs a message at debug level
func Debug(ctx context.Context, args ...interface{}) {
	entry(ctx).Debug(args...)
}

// Warnf logs formatted message at warning level
func Warnf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Warnf(format, args...)
}

// Warn logs a message at warning level
func Warn(ctx context.Context, args ...interface{}) {
	entry(ctx).Warn(args...)
}

// Errorf logs formatted message at error level
func Errorf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Errorf(format, args...)
}

// Error logs a message at error level
func Error(ctx context.Context, args ...interface{}) {
	entry(ctx).Error(args...)
}

// Fatalf logs formatted message at fatal level and exits
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	entry(ctx).Fatalf(format, args...)
}

// SetLevel sets the global log level
func SetLevel(level logrus.Level) {
	Logger.SetLevel(level)
}

// SetOutput sets the global log output
func SetOutput(out io.Writer) {
	Logger.SetOutput(out)
}

// Init configures the global logger. level is a logrus level name ("debug", "info", ...);
// format "json" selects logrus' JSON formatter, anything else the bracketed text format.
func Init(level, format string) {
	if strings.EqualFold(format, "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		Logger.SetFormatter(&CustomFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

// WithField creates a logger with predefined field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}
