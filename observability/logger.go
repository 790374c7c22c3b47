// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry/Jaeger tracing, and health checks for a process embedding
// one or more protocols, using the same zerolog-based stack and shape
// uses for its own daemon.
package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new structured logger.
func NewLogger(service, version string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("host", getHostname()).
		Logger()

	return &Logger{logger: logger}
}

// WithProtocol adds protocol context (tcp/cloud) to the logger.
func (l *Logger) WithProtocol(name string) *Logger {
	return &Logger{logger: l.logger.With().Str("protocol", name).Logger()}
}

// WithVirtualFile adds virtual-file-id context, used by cloudproto.
func (l *Logger) WithVirtualFile(id string) *Logger {
	return &Logger{logger: l.logger.With().Str("virtualfile_id", id).Logger()}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.logger.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.logger.Warn().Msg(msg) }

func (l *Logger) Error(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

func (l *Logger) Fatal(err error, msg string) {
	l.logger.Fatal().Err(err).Msg(msg)
}

// Connected logs a successful Connect.
func (l *Logger) Connected(protocolName, addr string) {
	l.logger.Info().
		Str("protocol", protocolName).
		Str("addr", addr).
		Msg("protocol connected")
}

// ConnectFailed logs a failed connect/reconnect attempt.
func (l *Logger) ConnectFailed(protocolName, addr string, err error) {
	l.logger.Warn().
		Str("protocol", protocolName).
		Str("addr", addr).
		Err(err).
		Msg("protocol connect failed")
}

// ReconnectSkipped logs a reconnect attempt skipped because it fell within
// reconnect.interval of the previous one.
func (l *Logger) ReconnectSkipped(protocolName string, interval time.Duration) {
	l.logger.Debug().
		Str("protocol", protocolName).
		Dur("interval", interval).
		Msg("reconnect skipped: within reconnect.interval")
}

// BacklogFlushed logs a backlog flush, successful or not.
func (l *Logger) BacklogFlushed(protocolName string, packetCount int, err error) {
	ev := l.logger.Info()
	if err != nil {
		ev = l.logger.Warn().Err(err)
	}
	ev.Str("protocol", protocolName).Int("packet_count", packetCount).Msg("backlog flushed")
}

// ChunkFlushed logs a cloud chunk bundle flush.
func (l *Logger) ChunkFlushed(virtualFileID string, packetCount int, reason string) {
	l.logger.Debug().
		Str("virtualfile_id", virtualFileID).
		Int("packet_count", packetCount).
		Str("reason", reason).
		Msg("chunk flushed")
}

// VirtualFileRotated logs a cloud virtual-file rotation.
func (l *Logger) VirtualFileRotated(oldID, newID string) {
	l.logger.Info().
		Str("old_virtualfile_id", oldID).
		Str("new_virtualfile_id", newID).
		Msg("virtual file rotated")
}

// ReplyClassified logs a non-OK server reply.
func (l *Logger) ReplyClassified(kind, message string) {
	l.logger.Warn().
		Str("reply_kind", kind).
		Str("message", message).
		Msg("protocol reply classified")
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
