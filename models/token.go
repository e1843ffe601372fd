package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// Claims is the payload of the access token: sub, name, email, role, iat, exp
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// LiveEvent is pushed to websocket subscribers when an occurrence changes
type LiveEvent struct {
	Type         string `json:"type"`
	OccurrenceID string `json:"occurrenceId"`
}
