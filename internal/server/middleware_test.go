package server

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "ab"},
		{"héllo wörld", 6, "hé..."},
		{"🤖🤖🤖", 9, "🤖..."},
		{"🤖🤖", 2, ""},
	}

	for _, tt := range tests {
		got := truncate(tt.in, tt.maxLen)
		assert.Equal(t, tt.want, got)
		assert.True(t, utf8.ValidString(got), "invalid UTF-8 for %q", tt.in)
		assert.LessOrEqual(t, len(got), tt.maxLen)
	}
}

func TestLoggingMiddlewareLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], "level=DEBUG")
		assert.Contains(t, lines[0], "path=/health")
		assert.Contains(t, lines[1], "level=ERROR")
		assert.Contains(t, lines[1], "status=500")
	}
}

func TestLogFrameTruncatesText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logFrame(logger, "s1", "submit", strings.Repeat("x", 500), 0, nil)

	out := buf.String()
	assert.Contains(t, out, "frame=submit")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("x", maxArgLogLen))
}

func TestLogFrameSlowThreshold(t *testing.T) {
	tests := []struct {
		frame     string
		duration  time.Duration
		wantLevel string
	}{
		{"reset", time.Millisecond, "level=DEBUG"},
		{"export", slowRequestThreshold + time.Millisecond, "level=WARN"},
		{"submit", 10 * time.Second, "level=DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			logFrame(logger, "s1", tt.frame, "", tt.duration, nil)

			assert.Contains(t, buf.String(), tt.wantLevel)
		})
	}
}
