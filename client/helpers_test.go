package client_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/forensic-case-api/client"
	"github.com/linesmerrill/forensic-case-api/models"
)

type recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Auth   string
	Body   []byte
}

// fakeAPI is an httptest server whose routes are set per test. Every request
// is recorded before it is routed.
type fakeAPI struct {
	*httptest.Server
	Router *mux.Router

	mu       sync.Mutex
	requests []recorded
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{Router: mux.NewRouter()}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body = readAll(r)
		}
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		f.mu.Unlock()
		r.Body = readCloser(body)
		f.Router.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) Requests() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recorded, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *fakeAPI) RequestsTo(path string) []recorded {
	var out []recorded
	for _, r := range f.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorMessageResponse{StatusCode: status, Message: message})
}

// notices collects what the screens post
type notices struct {
	mu   sync.Mutex
	list []string
}

func (n *notices) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, message)
}

func (n *notices) All() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.list...)
}

func (n *notices) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return ""
	}
	return n.list[len(n.list)-1]
}

func tokenFor(t *testing.T, userID, name, role string) string {
	claims := models.Claims{
		Name:  name,
		Email: name + "@pericia.local",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// newClient returns a client for api logged in as role, plus its notices
func newClient(t *testing.T, api *fakeAPI, userID, role string) (*client.Client, *notices) {
	n := &notices{}
	c, err := client.New(api.URL, client.WithNotifier(n))
	require.NoError(t, err)
	if role != "" {
		require.NoError(t, c.Session().Login(tokenFor(t, userID, "Tester", role)))
	}
	return c, n
}

func readAll(r *http.Request) []byte {
	b, _ := io.ReadAll(r.Body)
	return b
}

func readCloser(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}
