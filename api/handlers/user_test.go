package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/api/handlers"
	"github.com/linesmerrill/forensic-case-api/databases/mocks"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

type fakeNotifier struct {
	approved []models.User
	rejected []models.User
}

func (f *fakeNotifier) UserApproved(_ context.Context, u models.User) error {
	f.approved = append(f.approved, u)
	return nil
}

func (f *fakeNotifier) UserRejected(_ context.Context, u models.User) error {
	f.rejected = append(f.rejected, u)
	return nil
}

var (
	admin     = api.UserInfo{ID: primitive.NewObjectID().Hex(), Name: "Admin", Role: policy.RoleAdministrativeStaff}
	superUser = api.UserInfo{ID: primitive.NewObjectID().Hex(), Name: "Root", Role: policy.RoleSuperAdmin}
	expert    = api.UserInfo{ID: primitive.NewObjectID().Hex(), Name: "Perita", Role: policy.RoleOfficialExpert}
	delegate  = api.UserInfo{ID: primitive.NewObjectID().Hex(), Name: "Delegado", Role: policy.RoleDelegate}
	fixedNow  = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
)

func TestUser_RegisterHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(nil, mongo.ErrNoDocuments)
	db.On("InsertOne", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Status == models.UserPending &&
			u.Role == policy.RoleExternalUser &&
			u.Email == "joao@x.gov" &&
			bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("segredo1")) == nil
	})).Return(func(_ context.Context, u models.User) *models.User {
		u.ID = primitive.NewObjectID()
		return &u
	}, nil)

	u := handlers.User{DB: db, Now: func() time.Time { return fixedNow }}
	rr := httptest.NewRecorder()
	u.RegisterHandler(rr, newRequest("POST", "/users", `{"name":"João","email":"JOAO@x.gov","cpf":"123","password":"segredo1"}`, api.UserInfo{}, nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "segredo1")
	db.AssertExpectations(t)
}

func TestUser_RegisterHandlerDuplicate(t *testing.T) {
	db := &mocks.UserDatabase{}
	db.On("FindOne", mock.Anything, mock.Anything).Return(&models.User{}, nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.RegisterHandler(rr, newRequest("POST", "/users", `{"name":"João","email":"joao@x.gov","cpf":"123","password":"segredo1"}`, api.UserInfo{}, nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Já existe um usuário com este e-mail ou CPF.", errorMessage(t, rr))
	db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestUser_RegisterHandlerShortPassword(t *testing.T) {
	db := &mocks.UserDatabase{}
	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.RegisterHandler(rr, newRequest("POST", "/users", `{"name":"João","email":"joao@x.gov","cpf":"123","password":"123"}`, api.UserInfo{}, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}

func TestUser_UsersHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	filter := bson.M{"status": models.UserPending}
	db.On("CountDocuments", mock.Anything, filter).Return(int64(2), nil)
	db.On("Find", mock.Anything, filter, mock.Anything).Return([]models.User{{Name: "A"}, {Name: "B"}}, nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.UsersHandler(rr, newRequest("GET", "/users?status=pending&page=1&limit=10", "", admin, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var page models.Page[models.User]
	decode(t, rr, &page)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 10, page.Limit)
}

func TestUser_ApproveUserHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	notifier := &fakeNotifier{}
	id := primitive.NewObjectID()

	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Name: "Carla", Status: models.UserPending, Role: policy.RoleExternalUser}, nil).Once()
	db.On("UpdateOne", mock.Anything, bson.M{"_id": id}, mock.MatchedBy(func(update bson.M) bool {
		set := update["$set"].(bson.M)
		return set["status"] == models.UserActive && set["role"] == policy.RoleDelegate
	})).Return(nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Name: "Carla", Status: models.UserActive, Role: policy.RoleDelegate}, nil)

	u := handlers.User{DB: db, Notifier: notifier}
	rr := httptest.NewRecorder()
	u.ApproveUserHandler(rr, newRequest("PATCH", "/users/x/approve", `{"role":"delegado"}`, admin, map[string]string{"id": id.Hex()}))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, notifier.approved, 1)
	assert.Equal(t, policy.RoleDelegate, notifier.approved[0].Role)
	db.AssertExpectations(t)
}

func TestUser_ApproveUserHandlerRejectsSuperAdminRole(t *testing.T) {
	db := &mocks.UserDatabase{}
	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.ApproveUserHandler(rr, newRequest("PATCH", "/users/x/approve", `{"role":"super_admin"}`, superUser, map[string]string{"id": primitive.NewObjectID().Hex()}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}

func TestUser_ApproveUserHandlerNotPending(t *testing.T) {
	db := &mocks.UserDatabase{}
	id := primitive.NewObjectID()
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Status: models.UserActive}, nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.ApproveUserHandler(rr, newRequest("PATCH", "/users/x/approve", `{"role":"delegado"}`, admin, map[string]string{"id": id.Hex()}))

	assert.Equal(t, http.StatusConflict, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestUser_RejectUserHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	notifier := &fakeNotifier{}
	id := primitive.NewObjectID()
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Status: models.UserPending}, nil).Once()
	db.On("UpdateOne", mock.Anything, bson.M{"_id": id}, mock.Anything).Return(nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Status: models.UserRejected}, nil)

	u := handlers.User{DB: db, Notifier: notifier}
	rr := httptest.NewRecorder()
	u.RejectUserHandler(rr, newRequest("PATCH", "/users/x/reject", "", admin, map[string]string{"id": id.Hex()}))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, notifier.rejected, 1)
}

func TestUser_UserHandlerOnlySelfOrAdmin(t *testing.T) {
	db := &mocks.UserDatabase{}
	other := primitive.NewObjectID()

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.UserHandler(rr, newRequest("GET", "/users/x", "", delegate, map[string]string{"id": other.Hex()}))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	db.AssertNotCalled(t, "FindOne", mock.Anything, mock.Anything)
}

func TestUser_UpdateUserHandlerStatusToggle(t *testing.T) {
	db := &mocks.UserDatabase{}
	id := primitive.NewObjectID()
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Status: models.UserActive}, nil)
	db.On("UpdateOne", mock.Anything, bson.M{"_id": id}, mock.MatchedBy(func(update bson.M) bool {
		return update["$set"].(bson.M)["status"] == models.UserInactive
	})).Return(nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.UpdateUserHandler(rr, newRequest("PATCH", "/users/x", `{"status":"inactive"}`, admin, map[string]string{"id": id.Hex()}))

	assert.Equal(t, http.StatusOK, rr.Code)
	db.AssertExpectations(t)
}

func TestUser_UpdateUserHandlerDuplicates(t *testing.T) {
	id := primitive.NewObjectID()
	tests := []struct {
		name    string
		body    string
		filter  bson.M
		message string
	}{
		{"email", `{"email":"Outra@X.gov"}`, bson.M{"email": "outra@x.gov", "_id": bson.M{"$ne": id}}, "Já existe um usuário com este e-mail."},
		{"cpf", `{"cpf":" 999 "}`, bson.M{"cpf": "999", "_id": bson.M{"$ne": id}}, "Já existe um usuário com este CPF."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mocks.UserDatabase{}
			db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Email: "ana@x.gov", CPF: "123", Status: models.UserActive}, nil)
			db.On("FindOne", mock.Anything, tt.filter).Return(&models.User{ID: primitive.NewObjectID()}, nil)

			u := handlers.User{DB: db}
			rr := httptest.NewRecorder()
			u.UpdateUserHandler(rr, newRequest("PATCH", "/users/x", tt.body, admin, map[string]string{"id": id.Hex()}))

			assert.Equal(t, http.StatusConflict, rr.Code)
			assert.Equal(t, tt.message, errorMessage(t, rr))
			db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUser_UpdateUserHandlerUniquenessLookupFails(t *testing.T) {
	db := &mocks.UserDatabase{}
	id := primitive.NewObjectID()
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, CPF: "123", Status: models.UserActive}, nil)
	db.On("FindOne", mock.Anything, bson.M{"cpf": "999", "_id": bson.M{"$ne": id}}).Return(nil, errors.New("connection reset"))

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.UpdateUserHandler(rr, newRequest("PATCH", "/users/x", `{"cpf":"999"}`, admin, map[string]string{"id": id.Hex()}))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestUser_UpdateUserHandlerOnlySuperAdminGrantsSuperAdmin(t *testing.T) {
	db := &mocks.UserDatabase{}
	id := primitive.NewObjectID()
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, Status: models.UserActive}, nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.UpdateUserHandler(rr, newRequest("PATCH", "/users/x", `{"role":"super_admin"}`, admin, map[string]string{"id": id.Hex()}))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUser_LinkForensicServicesHandler(t *testing.T) {
	db := &mocks.UserDatabase{}
	services := &mocks.ResourceDatabase{}
	id := primitive.NewObjectID()
	svc := primitive.NewObjectID()

	services.On("CountDocuments", mock.Anything, bson.M{"_id": bson.M{"$in": []primitive.ObjectID{svc}}}).Return(int64(1), nil)
	services.On("Find", mock.Anything, bson.M{"_id": bson.M{"$in": []primitive.ObjectID{svc}}}, mock.Anything).Return([]models.Resource{{ID: svc, Name: "Balística"}}, nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id}, nil).Once()
	db.On("UpdateOne", mock.Anything, bson.M{"_id": id}, mock.Anything).Return(nil)
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, ForensicServiceIDs: []string{svc.Hex()}}, nil)

	u := handlers.User{DB: db, ServiceDB: services}
	rr := httptest.NewRecorder()
	u.LinkForensicServicesHandler(rr, newRequest("POST", "/users/x/forensic-services", `{"forensicServiceIds":["`+svc.Hex()+`"]}`, admin, map[string]string{"id": id.Hex()}))

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp models.UserForensicServices
	decode(t, rr, &resp)
	require.Len(t, resp.ForensicServices, 1)
	assert.Equal(t, "Balística", resp.ForensicServices[0].Name)
}

func TestUser_UnlinkForensicServiceHandlerNotLinked(t *testing.T) {
	db := &mocks.UserDatabase{}
	id := primitive.NewObjectID()
	db.On("FindOne", mock.Anything, bson.M{"_id": id}).Return(&models.User{ID: id, ForensicServiceIDs: []string{}}, nil)

	u := handlers.User{DB: db}
	rr := httptest.NewRecorder()
	u.UnlinkForensicServiceHandler(rr, newRequest("DELETE", "/users/x/forensic-services/y", "", admin,
		map[string]string{"id": id.Hex(), "serviceId": primitive.NewObjectID().Hex()}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
