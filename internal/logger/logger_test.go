package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelError, ParseLevel(" error "))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestSetupWithJSON(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWith(&buf, slog.LevelInfo, "json")
	require.Same(t, l, L())
	Component("carto").Info("boundaries_ready", "lines", 3)
	l.Debug("hidden")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "boundaries_ready", rec["msg"])
	require.Equal(t, "popmap", rec["app"])
	require.Equal(t, "carto", rec["component"])
	require.EqualValues(t, 3, rec["lines"])
}

func TestAccessMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := SetupWith(&buf, slog.LevelDebug, "json")
	h := AccessMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/population", nil))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "http_access", rec["msg"])
	require.Equal(t, "WARN", rec["level"])
	require.EqualValues(t, 503, rec["status"])
	require.EqualValues(t, 7, rec["bytes"])
	require.Equal(t, "/api/population", rec["path"])
}
