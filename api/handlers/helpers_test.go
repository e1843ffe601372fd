package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/models"
)

type recorder struct {
	events []models.LiveEvent
}

func (r *recorder) Publish(e models.LiveEvent) { r.events = append(r.events, e) }

// newRequest builds a request authenticated as the given caller with the
// route variables already set
func newRequest(method, target, body string, who api.UserInfo, vars map[string]string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req = req.WithContext(api.WithUser(req.Context(), who))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ErrorMessageResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Message
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}
