package api

import (
	"net/http"
	"time"
)

const timeoutBody = `{"statusCode":503,"message":"A requisição demorou demais para ser processada.","error":"request timeout"}`

// TimeoutMiddleware cancels the request context after timeout and answers
// with a JSON error if the handler has not written yet. It must not wrap the
// websocket route, since the timeout writer cannot be hijacked.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.ServeHTTP(jsonTimeoutWriter{w}, r)
		})
	}
}

// jsonTimeoutWriter labels the timeout body, which http.TimeoutHandler
// writes without a Content-Type
type jsonTimeoutWriter struct {
	http.ResponseWriter
}

func (w jsonTimeoutWriter) WriteHeader(code int) {
	if code == http.StatusServiceUnavailable && w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.ResponseWriter.WriteHeader(code)
}
