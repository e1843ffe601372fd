// Package client is a typed client for the forensic case API. Besides the
// plain resource services it carries the console behaviours: the session,
// route guards, the occurrence list and form controllers, the workflow dialogs
// and the user approval screen.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/logging"
	"github.com/linesmerrill/forensic-case-api/models"
)

// DefaultBaseURL is where the API listens in a local installation
const DefaultBaseURL = "http://localhost:3000"

// Client talks to the API on behalf of one session
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *Session
	log     *zap.SugaredLogger
	notify  Notifier

	Auth        *AuthService
	Users       *UserService
	Occurrences *OccurrenceService
	Movements   *MovementService
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithNotifier receives the transient notices the console screens post
func WithNotifier(n Notifier) Option {
	return func(c *Client) {
		c.notify = n
	}
}

// WithSession shares an existing session, e.g. one backed by a token file
func WithSession(s *Session) Option {
	return func(c *Client) {
		c.session = s
	}
}

// New creates a client for the API at baseURL. An empty baseURL means
// DefaultBaseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", baseURL)
	}

	c := &Client{baseURL: u, http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	if c.notify == nil {
		c.notify = NotifierFunc(func(string) {})
	}
	if c.session == nil {
		c.session = NewSession(NewMemoryTokenStore(), c.log)
	}

	c.Auth = &AuthService{c: c}
	c.Users = &UserService{c: c}
	c.Occurrences = &OccurrenceService{c: c}
	c.Movements = &MovementService{c: c}
	return c, nil
}

// Session returns the session whose token authenticates every request
func (c *Client) Session() *Session {
	return c.session
}

// Notifier is a sink for user-facing notices
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string)

// Notify calls f
func (f NotifierFunc) Notify(message string) {
	f(message)
}

// BaseURL returns the API root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Resources returns the service for one master-data kind
func (c *Client) Resources(kind ResourceKind) *ResourceService {
	return &ResourceService{c: c, kind: kind}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request. body, when not nil, is sent as JSON; out, when not
// nil, receives the decoded answer. Every failure comes back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debugw("request failed", "method", method, "path", path, "error", err)
		return &APIError{Status: 0, Message: connectionErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Status: 0, Message: connectionErrorMessage, Err: err}
	}
	c.log.Debugw("request done", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

func newAPIError(status int, data []byte) *APIError {
	var body models.ErrorMessageResponse
	e := &APIError{Status: status}
	if err := json.Unmarshal(data, &body); err == nil {
		e.Message = body.Message
		e.Detail = body.Error
	}
	return e
}
