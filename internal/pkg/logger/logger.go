package logger

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const ginContextKey = "logger"

// Config controls logger construction.
type Config struct {
	Level string // logrus level name, defaults to info
	File  string // optional path; rotated by lumberjack
	JSON  bool
}

// New builds the application logger.
// Output always goes to stdout; when File is set it is duplicated into a rotated log file.
func New(cfg Config) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	l.SetOutput(out)

	return l
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// GinMiddleware logs one line per request and stores a request-scoped entry in the context.
func GinMiddleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		entry := log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})
		c.Set(ginContextKey, entry)

		c.Next()

		status := c.Writer.Status()
		done := entry.WithFields(logrus.Fields{
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})

		switch {
		case status >= 500:
			done.Error("request completed")
		case status >= 400:
			done.Warn("request completed")
		default:
			done.Info("request completed")
		}
	}
}

// FromGin returns the request-scoped logger, or the standard logger if none was set.
func FromGin(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(ginContextKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}
