package logger

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger provides structured logging with automatic PII redaction
type Logger struct {
	mu    sync.RWMutex
	level LogLevel
	entry *logrus.Logger
	isDev bool
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New builds a logger writing to out. Development loggers use the text
// formatter, everything else emits JSON.
func New(out io.Writer, level LogLevel, isDev bool) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(toLogrus(level))
	if isDev {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	return &Logger{
		level: level,
		entry: l,
		isDev: isDev,
	}
}

// Initialize sets up the default logger instance
func Initialize(level LogLevel, isDev bool) {
	once.Do(func() {
		defaultLogger = New(os.Stdout, level, isDev)
	})
}

// GetLogger returns the default logger instance
func GetLogger() *Logger {
	if defaultLogger == nil {
		Initialize(INFO, false)
	}
	return defaultLogger
}

// SetLevel updates the log level
func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.entry.SetLevel(toLogrus(level))
	l.mu.Unlock()
}

// Logrus exposes the underlying logrus logger, e.g. for request logging.
func (l *Logger) Logrus() *logrus.Logger {
	return l.entry
}

func toLogrus(level LogLevel) logrus.Level {
	switch level {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// redactEmail redacts email addresses for privacy
func redactEmail(email string) string {
	if email == "" {
		return ""
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "****"
	}

	local := parts[0]
	domain := parts[1]

	if len(local) <= 2 {
		return "****@" + domain
	}

	return local[0:1] + "****" + local[len(local)-1:] + "@" + domain
}

// hashUserID creates a consistent hash for provider user ids
func hashUserID(userID interface{}) string {
	str := fmt.Sprintf("%v", userID)
	hash := sha256.Sum256([]byte(str))
	return fmt.Sprintf("user_%x", hash[:4])
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:4] + "****"
}

// redactValue redacts sensitive values based on the key name
func redactValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	valueStr := fmt.Sprintf("%v", value)

	if strings.Contains(keyLower, "secret") || strings.Contains(keyLower, "password") {
		return "[REDACTED]"
	}

	if strings.Contains(keyLower, "email") || strings.Contains(valueStr, "@") {
		return redactEmail(valueStr)
	}

	if strings.Contains(keyLower, "gplus_id") || strings.Contains(keyLower, "user_id") || strings.Contains(keyLower, "userid") {
		return hashUserID(value)
	}

	// session ids, state tokens, access tokens and one-time codes
	if strings.Contains(keyLower, "session") || strings.Contains(keyLower, "token") ||
		strings.Contains(keyLower, "state") || keyLower == "code" {
		return truncateID(valueStr)
	}

	return value
}

func (l *Logger) fields(keysAndValues ...interface{}) logrus.Fields {
	fields := logrus.Fields{}
	redact := !l.isDev || l.level > DEBUG

	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		var value interface{}
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		} else {
			value = ""
		}

		if err, ok := value.(error); ok {
			value = err.Error()
		}
		if redact {
			value = redactValue(key, value)
		}
		fields[key] = value
	}

	return fields
}

// shouldLog checks if a message should be logged based on level
func (l *Logger) shouldLog(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.entry.WithFields(l.fields(keysAndValues...)).Debug(msg)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	if l.shouldLog(INFO) {
		l.entry.WithFields(l.fields(keysAndValues...)).Info(msg)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	if l.shouldLog(WARN) {
		l.entry.WithFields(l.fields(keysAndValues...)).Warn(msg)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	if l.shouldLog(ERROR) {
		l.entry.WithFields(l.fields(keysAndValues...)).Error(msg)
	}
}

// Package-level convenience functions

func Debug(msg string, keysAndValues ...interface{}) {
	GetLogger().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...interface{}) {
	GetLogger().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...interface{}) {
	GetLogger().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...interface{}) {
	GetLogger().Error(msg, keysAndValues...)
}

// ParseLevel converts a string to a LogLevel
func ParseLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}
