package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/forensic-case-api/models"
)

func TestNew(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	t.Setenv("NEAR_DEADLINE_DAYS", "5")
	t.Setenv("DEFAULT_DEADLINE_DAYS", "not-a-number")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "test", conf.DatabaseName)
	assert.Equal(t, 5*24*time.Hour, conf.NearDeadlineWindow)
	assert.Equal(t, 30, conf.DefaultDeadlineDays)
	assert.Equal(t, "3000", conf.Port)
	assert.Equal(t, []string{"http://localhost:4200"}, conf.AllowedOrigins)
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://pericia.example , ,http://localhost:4200")
	assert.Equal(t, []string{"https://pericia.example", "http://localhost:4200"}, New().AllowedOrigins)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("error it borked", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, models.ErrorMessageResponse{StatusCode: 400, Message: "error it borked", Error: "bad request"}, body)
}

func TestErrorStatusWithoutError(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("Já existe uma cidade com este nome.", http.StatusConflict, rr, nil)

	var body models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Já existe uma cidade com este nome.", body.Message)
	assert.Empty(t, body.Error)
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := SetLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := SetLogger("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))
	assert.True(t, l.Core().Enabled(0))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := SetLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
