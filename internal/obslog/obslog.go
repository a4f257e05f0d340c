// Package obslog provides the structured logging the icap-server
// runner wraps around the core icap package's plain *log.Logger
// surface. The core package stays dependency-free (it is meant to be
// importable the way net/http is); this package is where the runner
// upgrades to zerolog's JSON-structured event texture.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps a zerolog.Logger and also satisfies the minimal
// Printf-style interface the core icap package's Listener/session
// expects of an error logger, so one Logger value serves both the
// structured access log and the core package's plumbing errors.
type Logger struct {
	zl zerolog.Logger
}

// Config controls where and how the runner's logs are written.
type Config struct {
	// LogFile is the destination path. Empty means stderr.
	LogFile string
	// RotateSizeMB rotates LogFile once it exceeds this size. Zero
	// disables rotation (meaningful only when LogFile is set).
	RotateSizeMB int64
	// Debug enables zerolog's debug level; otherwise info and above.
	Debug bool
}

// New builds a Logger per cfg. When cfg.LogFile is set, writes go
// through a rotatingWriter; otherwise they go to stderr.
func New(cfg Config) (*Logger, error) {
	var w io.Writer = os.Stderr
	var rw *rotatingWriter
	if cfg.LogFile != "" {
		var err error
		rw, err = newRotatingWriter(cfg.LogFile, cfg.RotateSizeMB)
		if err != nil {
			return nil, err
		}
		w = rw
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	zl := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if rw != nil {
		rw.onRotate = func(rotatedTo string) {
			zl.Info().Str("rotated_to", rotatedTo).Msg("log file rotated")
		}
	}
	return &Logger{zl: zl}, nil
}

// Printf implements icap.Logger, so a *Logger can be assigned directly
// to Listener.ErrorLog in place of the default *log.Logger.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// LogAccess implements icap.AccessLogger, the optional capability the
// session loop probes for to emit one event per completed request.
// It mirrors the reference implementation's per-request log line
// (method, service name, status code) as a structured zerolog event
// instead of a formatted string.
func (l *Logger) LogAccess(remoteAddr, method, serviceName string, statusCode int, duration time.Duration) {
	l.zl.Info().
		Str("remote_addr", remoteAddr).
		Str("method", method).
		Str("service", serviceName).
		Int("status", statusCode).
		Dur("duration", duration).
		Msg("request handled")
}

// Errorf logs an error-level structured event, used for connection and
// handler failures that do not fit LogAccess's per-request shape.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// Infof logs an info-level structured event for bootstrap/shutdown
// messages (listening address, shutdown signal received, and so on).
func (l *Logger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}
