package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps logrus with persistent fields
type Logger struct {
	*logrus.Logger
	fields logrus.Fields
}

// Options controls where and how log lines are written
type Options struct {
	Level      string
	Format     string // json, text
	File       string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// NewLogger creates a text logger at level, optionally mirrored to logFile
func NewLogger(level, logFile string) *Logger {
	return New(Options{Level: level, File: logFile})
}

// New creates a logger from options
func New(opts Options) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	l := &Logger{Logger: log, fields: make(logrus.Fields)}
	l.SetFormatter(opts.Format)

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			fmt.Printf("Failed to create log directory: %v\n", err)
		} else {
			fileLogger := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    orDefault(opts.MaxSize, 100),
				MaxBackups: orDefault(opts.MaxBackups, 3),
				MaxAge:     orDefault(opts.MaxAge, 28),
				Compress:   opts.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
		}
	}

	return l
}

// NewNop returns a logger that discards everything. Handy in tests.
func NewNop() *Logger {
	l := NewLogger("panic", "")
	l.SetOutput(io.Discard)
	return l
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// WithField adds a field to the logger context
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		Logger: l.Logger,
		fields: newFields,
	}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// WithError attaches err under the "error" key
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// entry builds a logrus entry. Even-length args are read as key/value pairs,
// anything else as printf arguments.
func (l *Logger) entry(msg string, args []interface{}) (*logrus.Entry, string) {
	entry := l.Logger.WithFields(l.fields)
	if len(args) == 0 {
		return entry, msg
	}
	if len(args)%2 == 0 {
		if _, ok := args[0].(string); ok {
			fields := make(logrus.Fields, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				if key, ok := args[i].(string); ok {
					fields[key] = args[i+1]
				}
			}
			return entry.WithFields(fields), msg
		}
	}
	return entry, fmt.Sprintf(msg, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Debug(text)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Info(text)
}

// Warning logs a warning message
func (l *Logger) Warning(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Warning(text)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Error(text)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, args ...interface{}) {
	entry, text := l.entry(msg, args)
	entry.Fatal(text)
}

// HTTPLogger logs one line per request with latency and status
func (l *Logger) HTTPLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := l.WithFields(map[string]interface{}{
			"method":      c.Request.Method,
			"path":        path,
			"status_code": status,
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
			"request_id":  c.GetString("request_id"),
		})

		switch {
		case status >= 500:
			entry.Error("HTTP request completed with server error")
		case status >= 400:
			entry.Warning("HTTP request completed with client error")
		default:
			entry.Info("HTTP request completed")
		}
	}
}

// SecurityLogger logs security-related events such as key failures or repeated casts
func (l *Logger) SecurityLogger(event, subject, details string) {
	l.WithFields(map[string]interface{}{
		"event_type": "security",
		"event":      event,
		"subject":    subject,
		"details":    details,
		"timestamp":  time.Now().Unix(),
	}).Warning("Security event logged")
}

// AuditLogger logs administrative mutations
func (l *Logger) AuditLogger(action, actor, resource, details string) {
	l.WithFields(map[string]interface{}{
		"event_type": "audit",
		"action":     action,
		"actor":      actor,
		"resource":   resource,
		"details":    details,
		"timestamp":  time.Now().Unix(),
	}).Info("Audit event logged")
}

// VotingLogger logs ballot events. Callers pass a hashed voter identity, never the choice.
func (l *Logger) VotingLogger(event, voterHash, electionID, details string) {
	l.WithFields(map[string]interface{}{
		"event_type":  "voting",
		"event":       event,
		"voter_hash":  voterHash,
		"election_id": electionID,
		"details":     details,
		"timestamp":   time.Now().Unix(),
	}).Info("Voting event logged")
}

// PerformanceLogger logs the duration of an operation
func (l *Logger) PerformanceLogger(operation string, duration time.Duration, success bool) {
	l.WithFields(map[string]interface{}{
		"event_type": "performance",
		"operation":  operation,
		"duration":   duration.Milliseconds(),
		"success":    success,
	}).Debug("Performance event logged")
}

// HashIdentity returns a short stable hash of an identity for log lines
func HashIdentity(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

// SetLogLevel dynamically sets the log level
func (l *Logger) SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(logLevel)
	return nil
}

// SetFormatter sets the log formatter
func (l *Logger) SetFormatter(format string) {
	switch format {
	case "json":
		l.Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		l.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}
