package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/forensic-case-api/api/handlers"
	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases/mocks"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

func newTestApp() *handlers.App {
	return handlers.NewApp(config.Config{
		JWTSecret:           "secret",
		TokenTTL:            time.Hour,
		DefaultDeadlineDays: 30,
		NearDeadlineWindow:  72 * time.Hour,
		DeadlineRefreshCron: "0 * * * *",
		RequestTimeout:      5 * time.Second,
	}, &mocks.DatabaseHelper{})
}

func serve(a *handlers.App, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func tokenFor(t *testing.T, a *handlers.App, role string) string {
	t.Helper()
	token, err := a.Tokens.Issue(models.User{ID: primitive.NewObjectID(), Name: "Teste", Role: role})
	require.NoError(t, err)
	return token
}

func TestApp_HealthIsPublic(t *testing.T) {
	a := newTestApp()
	rr := serve(a, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestApp_ProtectedRoutesNeedToken(t *testing.T) {
	a := newTestApp()
	for _, target := range []string{"/general-occurrences", "/cities", "/occurrence-movements/deadline-status", "/auth/profile"} {
		rr := serve(a, "GET", target, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
}

func TestApp_RoleGates(t *testing.T) {
	a := newTestApp()
	delegateToken := tokenFor(t, a, policy.RoleDelegate)

	tests := []struct {
		method string
		target string
	}{
		{"GET", "/users"},
		{"POST", "/cities"},
		{"DELETE", "/forensic-services/" + primitive.NewObjectID().Hex()},
		{"POST", "/general-occurrences"},
		{"POST", "/occurrence-movements"},
		{"POST", "/occurrence-movements/update-deadline-flags"},
		{"PATCH", "/users/" + primitive.NewObjectID().Hex() + "/approve"},
	}
	for _, tt := range tests {
		rr := serve(a, tt.method, tt.target, delegateToken)
		assert.Equal(t, http.StatusForbidden, rr.Code, tt.method+" "+tt.target)
	}
}

func TestApp_MovementsAreImmutable(t *testing.T) {
	a := newTestApp()
	rr := serve(a, "DELETE", "/occurrence-movements/"+primitive.NewObjectID().Hex(), tokenFor(t, a, policy.RoleSuperAdmin))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestApp_HandlerAnswersCORSPreflight(t *testing.T) {
	a := handlers.NewApp(config.Config{
		JWTSecret:      "secret",
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"http://localhost:4200"},
	}, &mocks.DatabaseHelper{})

	req := httptest.NewRequest(http.MethodOptions, "/general-occurrences", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:4200", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rr = httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_LoginIsRateLimited(t *testing.T) {
	a := handlers.NewApp(config.Config{
		JWTSecret:          "secret",
		TokenTTL:           time.Hour,
		LoginRatePerMinute: 1,
		LoginBurst:         1,
	}, &mocks.DatabaseHelper{})

	var codes []int
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		rr := httptest.NewRecorder()
		a.Router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[1])
}
