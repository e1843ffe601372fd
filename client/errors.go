package client

import (
	"errors"
	"fmt"
	"net/http"
)

// User-facing messages shared by the console screens
const (
	connectionErrorMessage   = "Erro de conexão com o servidor."
	permissionDeniedMessage  = "Você não tem permissão para essa ação."
	moduleDeniedMessage      = "Você não tem permissão para acessar este módulo."
	conflictFallbackMessage  = "Já existe um registro com estes dados."
	requiredFieldsMessage    = "Por favor, preencha todos os campos obrigatórios."
	movementImmutableMessage = "Movimentações não podem ser alteradas ou excluídas."
)

var (
	// ErrValidation is wrapped by every client side validation failure. No
	// request is sent when it is returned.
	ErrValidation = errors.New("validation failed")
	// ErrMovementImmutable is returned for any attempt to edit or delete a
	// movement; movements are append-only
	ErrMovementImmutable = errors.New(movementImmutableMessage)
	// ErrFieldDisabled is returned when setting a field the form shows as
	// read-only
	ErrFieldDisabled = errors.New("field is disabled")
	// ErrNotAllowed is returned without a request when the session role may
	// not perform the action
	ErrNotAllowed = errors.New(permissionDeniedMessage)
	// ErrNotLoggedIn is returned when an operation needs a session token
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is a failed API call. Status 0 means the server was never reached.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError names the input that failed and the notice to show
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StatusOf returns the HTTP status of err, 0 when err is not an API error
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message maps err to the notice the console shows:
// validation failures carry their own text, 403 is permission denied, 409
// shows the server text verbatim, 400 shows the server text when present,
// status 0 is a connection error and anything else gets fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Message
	}
	if errors.Is(err, ErrMovementImmutable) {
		return movementImmutableMessage
	}
	if errors.Is(err, ErrNotAllowed) {
		return permissionDeniedMessage
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fallback
	}
	switch apiErr.Status {
	case 0:
		return connectionErrorMessage
	case http.StatusForbidden:
		return permissionDeniedMessage
	case http.StatusConflict:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return conflictFallbackMessage
	case http.StatusBadRequest:
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return fallback
}

// ServerMessage is the save-form policy: the server text when there is one,
// otherwise fallback
func ServerMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status != 0 && apiErr.Message != "" {
		return apiErr.Message
	}
	return Message(err, fallback)
}
