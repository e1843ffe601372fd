package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// MinPasswordLength is enforced on registration
const MinPasswordLength = 6

// AccountNotifier tells users about approval decisions
type AccountNotifier interface {
	UserApproved(ctx context.Context, u models.User) error
	UserRejected(ctx context.Context, u models.User) error
}

// User exported for testing purposes
type User struct {
	DB        databases.UserDatabase
	ServiceDB databases.ResourceDatabase
	Notifier  AccountNotifier
	Now       func() time.Time
}

func (u User) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// UsersHandler lists users, filtered by status, role and a name/e-mail search
func (u User) UsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := bson.M{}
	if status := q.Get("status"); status != "" {
		filter["status"] = status
	}
	if role := q.Get("role"); role != "" {
		filter["role"] = role
	}
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		re := databases.SearchRegex(search)
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"email": re}, bson.M{"cpf": re}}
	}
	page, limit := paging(r)

	total, err := u.DB.CountDocuments(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	users, err := u.DB.Find(r.Context(), filter, databases.PaginatedOpts(page, limit, databases.Newest("createdAt")))
	if err != nil {
		internalError(w, err)
		return
	}
	// the console expects an array even when nothing matches
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, models.Page[models.User]{Data: users, Total: total, Page: page, Limit: limit})
}

// RegisterHandler creates a pending external user. Registration is public.
func (u User) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.CPF = strings.TrimSpace(req.CPF)
	switch {
	case req.Name == "":
		config.ErrorStatus("O nome é obrigatório.", http.StatusBadRequest, w, nil)
		return
	case req.Email == "" || !strings.Contains(req.Email, "@"):
		config.ErrorStatus("Informe um e-mail válido.", http.StatusBadRequest, w, nil)
		return
	case req.CPF == "":
		config.ErrorStatus("O CPF é obrigatório.", http.StatusBadRequest, w, nil)
		return
	case len(req.Password) < MinPasswordLength:
		config.ErrorStatus(fmt.Sprintf("A senha deve ter pelo menos %d caracteres.", MinPasswordLength), http.StatusBadRequest, w, nil)
		return
	}

	_, err := u.DB.FindOne(r.Context(), bson.M{"$or": bson.A{bson.M{"email": req.Email}, bson.M{"cpf": req.CPF}}})
	if err == nil {
		config.ErrorStatus("Já existe um usuário com este e-mail ou CPF.", http.StatusConflict, w, nil)
		return
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		internalError(w, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	now := u.now()
	created, err := u.DB.InsertOne(r.Context(), models.User{
		Name:               req.Name,
		Email:              req.Email,
		CPF:                req.CPF,
		Phone:              strings.TrimSpace(req.Phone),
		Institution:        strings.TrimSpace(req.Institution),
		Role:               policy.RoleExternalUser,
		Status:             models.UserPending,
		Password:           string(hashedPassword),
		ForensicServiceIDs: []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	zap.S().Infow("user registered", "userId", created.ID.Hex())
	writeJSON(w, http.StatusCreated, created)
}

// UserHandler returns a user; non-admins may only read themselves
func (u User) UserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !u.selfOrAdmin(w, r, id) {
		return
	}
	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// unique reports whether no other user holds value in field. It answers 409
// on a match and 500 when the lookup itself fails.
func (u User) unique(w http.ResponseWriter, r *http.Request, id primitive.ObjectID, field, value, conflict string) bool {
	_, err := u.DB.FindOne(r.Context(), bson.M{field: value, "_id": bson.M{"$ne": id}})
	if err == nil {
		config.ErrorStatus(conflict, http.StatusConflict, w, nil)
		return false
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		internalError(w, err)
		return false
	}
	return true
}

// UpdateUserHandler edits profile fields, the role, and toggles active/inactive
func (u User) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	existing, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}

	set := bson.M{"updatedAt": u.now()}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			config.ErrorStatus("O nome é obrigatório.", http.StatusBadRequest, w, nil)
			return
		}
		set["name"] = name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != existing.Email && !u.unique(w, r, id, "email", email, "Já existe um usuário com este e-mail.") {
			return
		}
		set["email"] = email
	}
	if req.CPF != nil {
		cpf := strings.TrimSpace(*req.CPF)
		if cpf != existing.CPF && !u.unique(w, r, id, "cpf", cpf, "Já existe um usuário com este CPF.") {
			return
		}
		set["cpf"] = cpf
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Institution != nil {
		set["institution"] = strings.TrimSpace(*req.Institution)
	}
	if req.Role != nil {
		if !policy.IsKnownRole(*req.Role) {
			config.ErrorStatus("Perfil inválido.", http.StatusBadRequest, w, nil)
			return
		}
		if *req.Role == policy.RoleSuperAdmin && !policy.IsSuperAdmin(caller(r).Role) {
			config.ErrorStatus("Somente o super administrador pode conceder este perfil.", http.StatusForbidden, w, nil)
			return
		}
		set["role"] = *req.Role
	}
	if req.Status != nil {
		if *req.Status != models.UserActive && *req.Status != models.UserInactive {
			config.ErrorStatus("Status deve ser active ou inactive.", http.StatusBadRequest, w, nil)
			return
		}
		if existing.Status != models.UserActive && existing.Status != models.UserInactive {
			config.ErrorStatus("Usuários pendentes ou rejeitados não podem ser ativados por aqui.", http.StatusConflict, w, nil)
			return
		}
		set["status"] = *req.Status
	}

	u.applyAndRespond(w, r, id, bson.M{"$set": set}, http.StatusOK)
}

// ApproveUserHandler activates a pending user with the chosen role
func (u User) ApproveUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ApproveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if !policy.IsApprovableRole(req.Role) {
		config.ErrorStatus("Selecione um perfil válido para aprovar o usuário.", http.StatusBadRequest, w, nil)
		return
	}
	user, err := u.pending(w, r, id)
	if err != nil {
		return
	}
	ok = u.applyAndRespond(w, r, id, bson.M{"$set": bson.M{
		"status":    models.UserActive,
		"role":      req.Role,
		"updatedAt": u.now(),
	}}, http.StatusOK)
	if ok {
		user.Role = req.Role
		u.notify(r.Context(), *user, true)
	}
}

// RejectUserHandler refuses a pending registration
func (u User) RejectUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := u.pending(w, r, id)
	if err != nil {
		return
	}
	ok = u.applyAndRespond(w, r, id, bson.M{"$set": bson.M{
		"status":    models.UserRejected,
		"updatedAt": u.now(),
	}}, http.StatusOK)
	if ok {
		u.notify(r.Context(), *user, false)
	}
}

// UserForensicServicesHandler lists the services linked to a user
func (u User) UserForensicServicesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !u.selfOrAdmin(w, r, id) {
		return
	}
	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}
	u.writeServices(w, r, user, http.StatusOK)
}

// LinkForensicServicesHandler adds services to a user
func (u User) LinkForensicServicesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.LinkForensicServicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if len(req.ForensicServiceIDs) == 0 {
		config.ErrorStatus("Selecione ao menos um serviço pericial.", http.StatusBadRequest, w, nil)
		return
	}
	oids := make([]primitive.ObjectID, 0, len(req.ForensicServiceIDs))
	for _, s := range req.ForensicServiceIDs {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			config.ErrorStatus("Identificador inválido.", http.StatusBadRequest, w, err)
			return
		}
		oids = append(oids, oid)
	}
	found, err := u.ServiceDB.CountDocuments(r.Context(), bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		internalError(w, err)
		return
	}
	if found != int64(len(uniqueIDs(oids))) {
		config.ErrorStatus("Serviço pericial não encontrado.", http.StatusNotFound, w, nil)
		return
	}
	if _, err := u.DB.FindOne(r.Context(), bson.M{"_id": id}); err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}
	err = u.DB.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"forensicServiceIds": bson.M{"$each": req.ForensicServiceIDs}},
		"$set":      bson.M{"updatedAt": u.now()},
	})
	if err != nil {
		internalError(w, err)
		return
	}
	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}
	u.writeServices(w, r, user, http.StatusCreated)
}

// UnlinkForensicServiceHandler removes one service from a user
func (u User) UnlinkForensicServiceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	serviceID := mux.Vars(r)["serviceId"]
	if _, err := primitive.ObjectIDFromHex(serviceID); err != nil {
		config.ErrorStatus("Identificador inválido.", http.StatusBadRequest, w, err)
		return
	}
	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return
	}
	if !containsString(user.ForensicServiceIDs, serviceID) {
		config.ErrorStatus("Serviço pericial não vinculado a este usuário.", http.StatusNotFound, w, nil)
		return
	}
	err = u.DB.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"forensicServiceIds": serviceID},
		"$set":  bson.M{"updatedAt": u.now()},
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Serviço pericial desvinculado."})
}

func (u User) pending(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) (*models.User, error) {
	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return nil, err
	}
	if user.Status != models.UserPending {
		err := fmt.Errorf("user %s is %s", id.Hex(), user.Status)
		config.ErrorStatus("Usuário não está pendente de aprovação.", http.StatusConflict, w, err)
		return nil, err
	}
	return user, nil
}

func (u User) applyAndRespond(w http.ResponseWriter, r *http.Request, id primitive.ObjectID, update bson.M, status int) bool {
	if err := u.DB.UpdateOne(r.Context(), bson.M{"_id": id}, update); err != nil {
		internalError(w, err)
		return false
	}
	user, err := u.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, "Usuário não encontrado.")
		return false
	}
	writeJSON(w, status, user)
	return true
}

func (u User) notify(ctx context.Context, user models.User, approved bool) {
	if u.Notifier == nil {
		return
	}
	var err error
	if approved {
		err = u.Notifier.UserApproved(ctx, user)
	} else {
		err = u.Notifier.UserRejected(ctx, user)
	}
	if err != nil {
		zap.S().Warnw("failed to notify user about account status", "userId", user.ID.Hex(), "error", err)
	}
}

func (u User) selfOrAdmin(w http.ResponseWriter, r *http.Request, id primitive.ObjectID) bool {
	c := caller(r)
	if c.ID == id.Hex() || policy.IsAdmin(c.Role) {
		return true
	}
	config.ErrorStatus("Você não tem permissão para realizar esta ação.", http.StatusForbidden, w, nil)
	return false
}

func (u User) writeServices(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	services := []models.Resource{}
	if len(user.ForensicServiceIDs) > 0 {
		oids := make([]primitive.ObjectID, 0, len(user.ForensicServiceIDs))
		for _, s := range user.ForensicServiceIDs {
			if oid, err := primitive.ObjectIDFromHex(s); err == nil {
				oids = append(oids, oid)
			}
		}
		found, err := u.ServiceDB.Find(r.Context(), bson.M{"_id": bson.M{"$in": oids}}, databases.PaginatedOpts(1, databases.MaxLimit, databases.ByName()))
		if err != nil {
			internalError(w, err)
			return
		}
		if found != nil {
			services = found
		}
	}
	writeJSON(w, status, models.UserForensicServices{UserID: user.ID.Hex(), ForensicServices: services})
}

func uniqueIDs(ids []primitive.ObjectID) map[primitive.ObjectID]struct{} {
	set := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
