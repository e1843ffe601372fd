package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/models"
)

// Auth exported for testing purposes
type Auth struct {
	DB     databases.UserDatabase
	Tokens *api.Authenticator
}

var inactiveMessages = map[string]string{
	models.UserPending:  "Seu cadastro está aguardando aprovação.",
	models.UserRejected: "Seu cadastro foi rejeitado.",
	models.UserInactive: "Sua conta está inativa. Procure um administrador.",
}

// LoginHandler exchanges credentials for an access token. Only active users
// may log in.
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		config.ErrorStatus("E-mail e senha são obrigatórios.", http.StatusBadRequest, w, nil)
		return
	}

	user, err := a.DB.FindOne(r.Context(), bson.M{"email": email})
	if errors.Is(err, mongo.ErrNoDocuments) {
		config.ErrorStatus("Credenciais inválidas.", http.StatusUnauthorized, w, nil)
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("Credenciais inválidas.", http.StatusUnauthorized, w, nil)
		return
	}
	if user.Status != models.UserActive {
		msg, ok := inactiveMessages[user.Status]
		if !ok {
			msg = "Sua conta não está ativa."
		}
		config.ErrorStatus(msg, http.StatusForbidden, w, nil)
		return
	}

	token, err := a.Tokens.Issue(*user)
	if err != nil {
		internalError(w, err)
		return
	}
	zap.S().Debugw("user logged in", "userId", user.ID.Hex(), "role", user.Role)
	writeJSON(w, http.StatusOK, models.LoginResponse{AccessToken: token})
}

// LogoutHandler revokes the bearer token of the request
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.Tokens.Revoke(r); err != nil {
		zap.S().Debugw("token revocation reported an error", "error", err)
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Sessão encerrada."})
}

// ProfileHandler returns the caller's own account
func (a Auth) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		config.ErrorStatus("Não autenticado.", http.StatusUnauthorized, w, err)
		return
	}
	user, err := a.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
