package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/models"
)

var (
	// ErrRevokedToken is returned for a token revoked through logout
	ErrRevokedToken = errors.New("token has been revoked")
	// ErrMissingToken is returned when the request carries no bearer token
	ErrMissingToken = errors.New("missing bearer token")
	// ErrExpiredToken is returned for a cached token past its exp claim
	ErrExpiredToken = errors.New("token has expired")
)

const expiresAtExtension = "exp"

// Authenticator issues and verifies the HS256 access tokens. Verified tokens
// are cached by the go-guardian bearer strategy so repeated requests skip the
// signature check.
type Authenticator struct {
	secret        []byte
	ttl           time.Duration
	now           func() time.Time
	authenticator auth.Authenticator

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewAuthenticator sets up go-guardian with a cached bearer strategy whose
// entries live as long as a token
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	a := &Authenticator{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
	cache := store.NewFIFO(context.Background(), ttl)
	a.authenticator = auth.New()
	a.authenticator.EnableStrategy(bearer.CachedStrategyKey, bearer.New(a.validateToken, cache))
	return a
}

// Issue signs an access token for u
func (a *Authenticator) Issue(u models.User) (string, error) {
	now := a.now()
	claims := models.Claims{
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify checks the signature and expiry of token and returns its claims
func (a *Authenticator) Verify(token string) (*models.Claims, error) {
	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *Authenticator) validateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	if a.isRevoked(token) {
		return nil, ErrRevokedToken
	}
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	var exts map[string][]string
	if claims.ExpiresAt != nil {
		exts = map[string][]string{expiresAtExtension: {strconv.FormatInt(claims.ExpiresAt.Unix(), 10)}}
	}
	return auth.NewDefaultUser(claims.Name, claims.Subject, []string{claims.Role}, exts), nil
}

// expired reports whether a cached identity outlived the exp claim of its
// token. The cache TTL counts from the first request, not from issuance.
func (a *Authenticator) expired(info auth.Info) bool {
	values := info.Extensions()[expiresAtExtension]
	if len(values) == 0 {
		return false
	}
	exp, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return true
	}
	return !a.now().Before(time.Unix(exp, 0))
}

// Middleware rejects requests without a valid bearer token and stores the
// caller in the request context
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil && a.isRevoked(token) {
			err = ErrRevokedToken
		}
		var info auth.Info
		if err == nil {
			info, err = a.authenticator.Authenticate(r)
		}
		if err == nil && a.expired(info) {
			_ = auth.Revoke(a.authenticator.Strategy(bearer.CachedStrategyKey), token, r)
			err = ErrExpiredToken
		}
		if err != nil {
			zap.S().Debugw("unauthorized", "url", r.URL.Path, "error", err)
			config.ErrorStatus("Não autenticado.", http.StatusUnauthorized, w, err)
			return
		}
		u := UserInfo{ID: info.ID(), Name: info.UserName()}
		if groups := info.Groups(); len(groups) > 0 {
			u.Role = groups[0]
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// Revoke invalidates the bearer token of r until it would have expired
func (a *Authenticator) Revoke(r *http.Request) error {
	token, err := bearerToken(r)
	if err != nil {
		return err
	}
	until := a.now().Add(a.ttl)
	if claims, err := a.Verify(token); err == nil && claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	a.mu.Lock()
	a.revoked[token] = until
	a.mu.Unlock()
	return auth.Revoke(a.authenticator.Strategy(bearer.CachedStrategyKey), token, r)
}

func (a *Authenticator) isRevoked(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for t, until := range a.revoked {
		if now.After(until) {
			delete(a.revoked, t)
		}
	}
	_, ok := a.revoked[token]
	return ok
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// Require only lets callers whose role satisfies allowed through; the others
// get 403
func Require(allowed func(role string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok || !allowed(u.Role) {
				config.ErrorStatus("Você não tem permissão para realizar esta ação.", http.StatusForbidden, w,
					fmt.Errorf("role %q may not %s %s", u.Role, r.Method, r.URL.Path))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
