// Package logger wraps logrus with a process-wide instance and
// key/value helpers that mask sensitive fields.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const timeFormat = "2006-01-02 15:04:05"

var (
	defaultLogger *logrus.Logger
	once          sync.Once
	mu            sync.RWMutex
)

// New builds a logger. format is "text" or "json".
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timeFormat,
			DisableColors:   true,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timeFormat})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return l, nil
}

// Init installs the global logger once. Later calls only return the
// existing instance.
func Init(level, format string) (*logrus.Logger, error) {
	var initErr error
	once.Do(func() {
		l, err := New(level, format, os.Stderr)
		if err != nil {
			initErr = err
			return
		}
		Set(l)
	})
	if initErr != nil {
		return nil, initErr
	}
	return GetLogger(), nil
}

// Set replaces the global logger. Tests use it to capture output.
func Set(l *logrus.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

func GetLogger() *logrus.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l != nil {
		return l
	}
	l, _ = New("info", "text", os.Stderr)
	mu.Lock()
	if defaultLogger == nil {
		defaultLogger = l
	}
	l = defaultLogger
	mu.Unlock()
	return l
}

// WithFields converts alternating key/value args into an entry.
func WithFields(args ...any) *logrus.Entry {
	return GetLogger().WithFields(toFields(args))
}

func Debug(msg string, args ...any) { WithFields(args...).Debug(msg) }

func Info(msg string, args ...any) { WithFields(args...).Info(msg) }

func Warn(msg string, args ...any) { WithFields(args...).Warn(msg) }

func Error(msg string, args ...any) { WithFields(args...).Error(msg) }

var sensitiveKeys = []string{"password", "passwd", "token", "secret", "key"}

func isSensitive(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

func toFields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			k = fmt.Sprint(args[i])
		}
		if i+1 >= len(args) {
			f["!BADKEY"] = k
			break
		}
		v := args[i+1]
		if isSensitive(k) {
			v = "***"
		}
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		f[k] = v
	}
	return f
}
