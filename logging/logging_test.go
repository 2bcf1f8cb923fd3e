package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", FormatJSON, &buf)
	require.NoError(t, err)

	Component(logger, "scheduler").WithField("alerts", 3).Info("evaluated")

	var fields logrus.Fields
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fields))
	assert.Equal(t, "scheduler", fields["component"])
	assert.Equal(t, float64(3), fields["alerts"])
	assert.Equal(t, "evaluated", fields["msg"])
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNew_Defaults(t *testing.T) {
	logger, err := New("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", FormatText, nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventdesk.log")
	logger, err := New("info", FormatText, nil)
	require.NoError(t, err)

	ToFile(logger, path)
	logger.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.True(t, strings.Contains(entry.Message, "request complete"))
	assert.Equal(t, http.StatusTeapot, entry.Data["resp_status"])
	assert.Equal(t, http.MethodGet, entry.Data["http_method"])
	assert.NotEmpty(t, entry.Data["req_id"])
}
