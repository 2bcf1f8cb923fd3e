/*
Package logging builds the process logger and the HTTP request logger.

PURPOSE:
  One *logrus.Logger per process, configured from config.Config (level and
  text/json format). Components receive a logrus.FieldLogger tagged with a
  "component" field and never reach for a global.

REQUEST LOGGING:
  RequestLogger plugs into chi's middleware.RequestLogger so every request
  gets a "request started" / "request complete" pair carrying the request
  ID, method, URI, status and elapsed time.

SEE ALSO:
  - config/config.go: LogLevel, LogFormat
  - api/server.go: installs RequestLogger
*/
package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to out (stderr when nil).
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	logger.SetOutput(out)

	lvl := logrus.InfoLevel
	if level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return logger, nil
}

// ToFile redirects the logger to outputFile. On failure it keeps the current
// output and logs why.
func ToFile(logger *logrus.Logger, outputFile string) {
	if outputFile == "" {
		return
	}
	file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		logger.Infof("Failed to open output file %s. Will use stderr. %s", outputFile, err.Error())
		return
	}
	logger.SetOutput(file)
}

// Component tags a logger with the emitting component.
func Component(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	return logger.WithField("component", name)
}

// Discard is a logger that drops everything.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// =============================================================================
// HTTP REQUEST LOGGER
// =============================================================================

// RequestLogger returns chi middleware logging each request through logger.
func RequestLogger(logger logrus.FieldLogger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&structuredLogger{logger: logger})
}

type structuredLogger struct {
	logger logrus.FieldLogger
}

func (l *structuredLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := logrus.Fields{
		"http_method": r.Method,
		"http_proto":  r.Proto,
		"remote_addr": r.RemoteAddr,
		"uri":         r.RequestURI,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields["req_id"] = reqID
	}

	entry := &structuredLoggerEntry{logger: l.logger.WithFields(fields)}
	entry.logger.Debugln("request started")
	return entry
}

type structuredLoggerEntry struct {
	logger logrus.FieldLogger
}

func (l *structuredLoggerEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	l.logger.WithFields(logrus.Fields{
		"resp_status":       status,
		"resp_bytes_length": bytes,
		"resp_elapsed_ms":   float64(elapsed.Nanoseconds()) / 1000000.0,
	}).Infoln("request complete")
}

func (l *structuredLoggerEntry) Panic(v interface{}, stack []byte) {
	l.logger.WithFields(logrus.Fields{
		"stack": string(stack),
		"panic": fmt.Sprintf("%+v", v),
	}).Errorln("request panicked")
}
