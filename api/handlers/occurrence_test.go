package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/forensic-case-api/api/handlers"
	"github.com/linesmerrill/forensic-case-api/databases/mocks"
	"github.com/linesmerrill/forensic-case-api/models"
)

type occurrenceFixture struct {
	h         handlers.Occurrence
	db        *mocks.OccurrenceDatabase
	movements *mocks.MovementDatabase
	users     *mocks.UserDatabase
	cities    *mocks.ResourceDatabase
	services  *mocks.ResourceDatabase
	classes   *mocks.ResourceDatabase
	live      *recorder
}

func newOccurrenceFixture() occurrenceFixture {
	f := occurrenceFixture{
		db:        &mocks.OccurrenceDatabase{},
		movements: &mocks.MovementDatabase{},
		users:     &mocks.UserDatabase{},
		cities:    &mocks.ResourceDatabase{},
		services:  &mocks.ResourceDatabase{},
		classes:   &mocks.ResourceDatabase{},
		live:      &recorder{},
	}
	f.h = handlers.Occurrence{
		DB:         f.db,
		MovementDB: f.movements,
		UserDB:     f.users,
		Lookups: handlers.Lookups{
			Cities:           f.cities,
			ForensicServices: f.services,
			Classifications:  f.classes,
			Procedures:       &mocks.ResourceDatabase{},
			Authorities:      &mocks.ResourceDatabase{},
			RequestingUnits:  &mocks.ResourceDatabase{},
			ExamTypes:        &mocks.ResourceDatabase{},
		},
		DeadlineDays: 30,
		Window:       72 * time.Hour,
		Live:         f.live,
		Now:          func() time.Time { return fixedNow },
	}
	return f
}

func (f occurrenceFixture) expectLookups(city, service, class primitive.ObjectID) {
	f.cities.On("FindOne", mock.Anything, bson.M{"_id": city}).Return(&models.Resource{ID: city, Name: "Campinas", State: "SP"}, nil)
	f.services.On("FindOne", mock.Anything, bson.M{"_id": service}).Return(&models.Resource{ID: service, Name: "Balística"}, nil)
	f.classes.On("FindOne", mock.Anything, bson.M{"_id": class}).Return(&models.Resource{ID: class, Name: "Homicídio"}, nil)
}

func TestOccurrence_CreateOccurrenceHandler(t *testing.T) {
	f := newOccurrenceFixture()
	city, service, class := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	f.expectLookups(city, service, class)
	f.db.On("NextCaseNumber", mock.Anything, 2025).Return("2025.000007", nil)
	created := primitive.NewObjectID()
	f.db.On("InsertOne", mock.Anything, mock.MatchedBy(func(o models.GeneralOccurrence) bool {
		return *o.CaseNumber == "2025.000007" && o.City.Name == "Campinas" && o.Status == models.StatusOpen && o.ResponsibleExpert == nil
	})).Return(func(_ context.Context, o models.GeneralOccurrence) *models.GeneralOccurrence {
		o.ID = created
		return &o
	}, nil)
	f.movements.On("InsertOne", mock.Anything, mock.MatchedBy(func(m models.OccurrenceMovement) bool {
		return m.IsSystemGenerated && m.OccurrenceID == created.Hex() && m.Deadline.Equal(fixedNow.AddDate(0, 0, 30))
	})).Return(&models.OccurrenceMovement{}, nil)

	body := `{"history":"Disparo de arma de fogo em via pública","cityId":"` + city.Hex() +
		`","forensicServiceId":"` + service.Hex() + `","occurrenceClassificationId":"` + class.Hex() + `","additionalFields":{"lacre":"A-12"}}`
	rr := httptest.NewRecorder()
	f.h.CreateOccurrenceHandler(rr, newRequest("POST", "/general-occurrences", body, expert, nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	var o models.GeneralOccurrence
	decode(t, rr, &o)
	assert.Equal(t, "2025.000007", *o.CaseNumber)
	assert.Equal(t, map[string]string{"lacre": "A-12"}, o.AdditionalFields)
	assert.Equal(t, expert.ID, o.CreatedBy.ID)
	assert.Equal(t, []models.LiveEvent{{Type: handlers.EventOccurrenceCreated, OccurrenceID: created.Hex()}}, f.live.events)
	f.movements.AssertExpectations(t)
}

func TestOccurrence_CreateOccurrenceHandlerValidation(t *testing.T) {
	f := newOccurrenceFixture()

	rr := httptest.NewRecorder()
	f.h.CreateOccurrenceHandler(rr, newRequest("POST", "/general-occurrences", `{"history":"curto"}`, expert, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O histórico deve ter pelo menos 10 caracteres.", errorMessage(t, rr))

	rr = httptest.NewRecorder()
	f.h.CreateOccurrenceHandler(rr, newRequest("POST", "/general-occurrences", `{"history":"histórico suficiente"}`, expert, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "A cidade é obrigatória.", errorMessage(t, rr))

	f.db.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestOccurrence_CreateOccurrenceHandlerInactiveExpert(t *testing.T) {
	f := newOccurrenceFixture()
	city, service, class := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	f.expectLookups(city, service, class)
	expertID := primitive.NewObjectID()
	f.users.On("FindOne", mock.Anything, bson.M{"_id": expertID}).Return(&models.User{ID: expertID, Status: models.UserInactive}, nil)

	body := `{"history":"Disparo de arma de fogo","cityId":"` + city.Hex() + `","forensicServiceId":"` + service.Hex() +
		`","occurrenceClassificationId":"` + class.Hex() + `","responsibleExpertId":"` + expertID.Hex() + `"}`
	rr := httptest.NewRecorder()
	f.h.CreateOccurrenceHandler(rr, newRequest("POST", "/general-occurrences", body, admin, nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "O perito responsável precisa estar ativo.", errorMessage(t, rr))
}

func existingOccurrence() *models.GeneralOccurrence {
	number := "2025.000001"
	return &models.GeneralOccurrence{
		ID:               primitive.NewObjectID(),
		CaseNumber:       &number,
		History:          "Histórico original do caso",
		Status:           models.StatusOpen,
		OccurrenceDate:   time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC),
		AdditionalFields: map[string]string{"lacre": "A-12"},
	}
}

func (f occurrenceFixture) expectExisting(o *models.GeneralOccurrence) {
	f.db.On("FindOne", mock.Anything, bson.M{"deletedAt": bson.M{"$exists": false}, "_id": o.ID}).Return(o, nil)
}

func TestOccurrence_UpdateOccurrenceHandlerLocked(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	o.IsLocked = true
	f.expectExisting(o)

	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"history":"Novo histórico do caso"}`, admin, map[string]string{"id": o.ID.Hex()}))

	assert.Equal(t, http.StatusConflict, rr.Code)
	f.db.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestOccurrence_UpdateOccurrenceHandlerUnlockByAdmin(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	o.IsLocked = true
	f.expectExisting(o)
	f.db.On("UpdateOne", mock.Anything, bson.M{"_id": o.ID}, mock.MatchedBy(func(update bson.M) bool {
		return update["$set"].(bson.M)["isLocked"] == false
	})).Return(nil)

	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"isLocked":false}`, admin, map[string]string{"id": o.ID.Hex()}))

	assert.Equal(t, http.StatusOK, rr.Code)
	f.db.AssertExpectations(t)
}

func TestOccurrence_UpdateOccurrenceHandlerLockRequiresAdmin(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	f.expectExisting(o)

	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"isLocked":true}`, expert, map[string]string{"id": o.ID.Hex()}))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestOccurrence_UpdateOccurrenceHandlerOccurrenceDate(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	f.expectExisting(o)
	f.db.On("UpdateOne", mock.Anything, bson.M{"_id": o.ID}, mock.Anything).Return(nil)

	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"occurrenceDate":"2025-02-01T10:00:00Z"}`, expert, map[string]string{"id": o.ID.Hex()}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "A data da ocorrência não pode ser alterada.", errorMessage(t, rr))

	// the unchanged value round-trips
	rr = httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"occurrenceDate":"2025-01-05T14:30:00Z"}`, expert, map[string]string{"id": o.ID.Hex()}))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOccurrence_UpdateOccurrenceHandlerEmptyAdditionalFieldsKeepsStored(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	f.expectExisting(o)
	f.db.On("UpdateOne", mock.Anything, bson.M{"_id": o.ID}, mock.MatchedBy(func(update bson.M) bool {
		fields := update["$set"].(bson.M)["additionalFields"].(map[string]string)
		return fields["lacre"] == "A-12"
	})).Return(nil)

	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"history":"Histórico revisado do caso","additionalFields":{}}`, expert, map[string]string{"id": o.ID.Hex()}))

	assert.Equal(t, http.StatusOK, rr.Code)
	f.db.AssertExpectations(t)
}

func TestOccurrence_UpdateOccurrenceHandlerRemovingAdditionalField(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	f.expectExisting(o)
	f.db.On("UpdateOne", mock.Anything, bson.M{"_id": o.ID}, mock.Anything).Return(nil)

	body := `{"additionalFields":{"arma":"pistola"}}`
	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", body, admin, map[string]string{"id": o.ID.Hex()}))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", body, superUser, map[string]string{"id": o.ID.Hex()}))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOccurrence_UpdateOccurrenceHandlerStatusChange(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	f.expectExisting(o)
	f.db.On("UpdateOne", mock.Anything, bson.M{"_id": o.ID}, mock.Anything).Return(nil)
	f.movements.On("InsertOne", mock.Anything, mock.MatchedBy(func(m models.OccurrenceMovement) bool {
		return m.IsSystemGenerated &&
			m.Description == "Status alterado de ABERTA para CONCLUIDA. Observações: Laudo entregue" &&
			m.PerformedBy.ID == expert.ID
	})).Return(&models.OccurrenceMovement{}, nil)

	rr := httptest.NewRecorder()
	f.h.UpdateOccurrenceHandler(rr, newRequest("PATCH", "/general-occurrences/x", `{"status":"CONCLUIDA","statusChangeObservations":" Laudo entregue "}`, expert, map[string]string{"id": o.ID.Hex()}))

	require.Equal(t, http.StatusOK, rr.Code)
	var updated models.GeneralOccurrence
	decode(t, rr, &updated)
	assert.Equal(t, models.StatusConcluded, updated.Status)
	f.movements.AssertExpectations(t)
}

func TestOccurrence_DeleteOccurrenceHandler(t *testing.T) {
	f := newOccurrenceFixture()
	o := existingOccurrence()
	f.expectExisting(o)
	f.db.On("UpdateOne", mock.Anything, bson.M{"_id": o.ID}, bson.M{"$set": bson.M{"deletedAt": fixedNow, "updatedAt": fixedNow}}).Return(nil)

	rr := httptest.NewRecorder()
	f.h.DeleteOccurrenceHandler(rr, newRequest("DELETE", "/general-occurrences/x", "", admin, map[string]string{"id": o.ID.Hex()}))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, handlers.EventOccurrenceDeleted, f.live.events[0].Type)
	f.db.AssertExpectations(t)
}

func TestOccurrence_OccurrencesHandlerOnlyMine(t *testing.T) {
	f := newOccurrenceFixture()
	filter := bson.M{"deletedAt": bson.M{"$exists": false}, "responsibleExpert.id": expert.ID, "forensicService.id": "svc"}
	f.db.On("CountDocuments", mock.Anything, filter).Return(int64(1), nil)
	f.db.On("Find", mock.Anything, filter, mock.Anything).Return([]models.GeneralOccurrence{*existingOccurrence()}, nil)

	rr := httptest.NewRecorder()
	f.h.OccurrencesHandler(rr, newRequest("GET", "/general-occurrences?onlyMine=true&forensicServiceId=svc&page=1&limit=10", "", expert, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var page models.Page[models.GeneralOccurrence]
	decode(t, rr, &page)
	assert.Equal(t, int64(1), page.Total)
}

func TestOccurrence_StatsHandler(t *testing.T) {
	f := newOccurrenceFixture()
	notDeleted := func(extra bson.M) bson.M {
		m := bson.M{"deletedAt": bson.M{"$exists": false}}
		for k, v := range extra {
			m[k] = v
		}
		return m
	}
	f.db.On("CountDocuments", mock.Anything, notDeleted(nil)).Return(int64(10), nil)
	f.db.On("CountDocuments", mock.Anything, notDeleted(bson.M{"status": models.StatusOpen})).Return(int64(6), nil)
	f.db.On("CountDocuments", mock.Anything, notDeleted(bson.M{"status": models.StatusConcluded})).Return(int64(3), nil)
	f.db.On("CountDocuments", mock.Anything, notDeleted(bson.M{"status": models.StatusCancelled})).Return(int64(1), nil)
	f.db.On("CountDocuments", mock.Anything, notDeleted(bson.M{"$or": bson.A{bson.M{"responsibleExpert": nil}, bson.M{"responsibleExpert.id": ""}}})).Return(int64(4), nil)

	rr := httptest.NewRecorder()
	f.h.StatsHandler(rr, newRequest("GET", "/general-occurrences/stats/summary", "", delegate, nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var stats models.OccurrenceStats
	decode(t, rr, &stats)
	assert.Equal(t, models.OccurrenceStats{Total: 10, Pool: 4, Assigned: 6, ByStatus: map[string]int64{"ABERTA": 6, "CONCLUIDA": 3, "CANCELADA": 1}}, stats)
}

func TestOccurrence_ByStatusHandlerInvalid(t *testing.T) {
	f := newOccurrenceFixture()
	rr := httptest.NewRecorder()
	f.h.ByStatusHandler(rr, newRequest("GET", "/general-occurrences/filter/by-status?status=FECHADA", "", delegate, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
