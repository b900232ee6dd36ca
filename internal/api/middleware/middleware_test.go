package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/health/live", want: "/health/live"},
		{path: "/health/ready", want: "/health/ready"},
		{path: "/metrics", want: "/metrics"},
		{path: "/telegram/webhook/s3cret", want: "/telegram/webhook/{secret}"},
		{path: "/wp-login.php", want: "other"},
		{path: "/", want: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestRequestLogger_HidesWebhookSecret(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook/s3cret", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "s3cret") {
		t.Errorf("секрет попал в лог: %s", out)
	}
	if !strings.Contains(out, `"path":"/telegram/webhook/{secret}"`) {
		t.Errorf("путь не нормализован: %s", out)
	}
	if !strings.Contains(out, `"level":"INFO"`) {
		t.Errorf("ожидался уровень INFO: %s", out)
	}
}

func TestRequestLogger_Levels(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{name: "health", path: "/health/live", status: http.StatusOK, want: "DEBUG"},
		{name: "неизвестный путь", path: "/x", status: http.StatusNotFound, want: "WARN"},
		{name: "ошибка", path: "/health/ready", status: http.StatusServiceUnavailable, want: "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if !strings.Contains(buf.String(), `"level":"`+tt.want+`"`) {
				t.Errorf("лог = %s, ожидался уровень %s", buf.String(), tt.want)
			}
		})
	}
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	handler := MetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/telegram/webhook/abc", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("статус = %d, ожидался 202", rec.Code)
	}
}
