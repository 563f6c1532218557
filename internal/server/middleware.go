package server

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/raphaelgruber/profilechat/internal/protocol"
)

// maxArgLogLen is the maximum length for logged frame text before truncation.
const maxArgLogLen = 200

// slowRequestThreshold is the duration above which requests and non-submit
// frames are logged at WARN level. Submit frames wait on the model and are not
// held to it.
const slowRequestThreshold = 100 * time.Millisecond

// LoggingMiddleware returns middleware that logs all HTTP requests with timing.
// Slow requests (>100ms) are logged at WARN level.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
			}

			switch {
			case rec.hijacked:
				logger.Debug("connection closed", attrs...)
			case rec.status >= http.StatusInternalServerError:
				logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}
		})
	}
}

// logFrame logs one processed WebSocket frame.
func logFrame(logger *slog.Logger, sessionID, frameType, text string, duration time.Duration, err error) {
	attrs := []any{
		"session", sessionID,
		"frame", frameType,
		"duration_ms", duration.Milliseconds(),
	}
	if text != "" {
		attrs = append(attrs, "text", truncate(text, maxArgLogLen))
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		logger.Warn("frame failed", attrs...)
		return
	}
	if frameType != protocol.TypeSubmit && duration > slowRequestThreshold {
		logger.Warn("slow frame", attrs...)
		return
	}
	logger.Debug("frame completed", attrs...)
}

// statusRecorder captures the response status and keeps the writer hijackable
// for WebSocket upgrades.
type statusRecorder struct {
	http.ResponseWriter
	status   int
	hijacked bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(r.ResponseWriter).Hijack()
	if err == nil {
		r.hijacked = true
		r.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// truncate shortens a string to at most maxLen bytes, adding "..." if
// truncated. The cut never splits a UTF-8 sequence.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	suffix := "..."
	if maxLen < 3 {
		suffix = ""
	}
	cut := maxLen - len(suffix)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
