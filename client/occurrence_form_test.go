package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/forensic-case-api/client"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

var dropdownKinds = []client.ResourceKind{
	client.Cities, client.Authorities, client.RequestingUnits, client.Procedures,
	client.OccurrenceClassifications, client.ForensicServices, client.ExamTypes,
}

// withDropdowns serves one record for every dropdown, except the kinds in
// failing which answer 500
func withDropdowns(api *fakeAPI, failing ...client.ResourceKind) {
	broken := map[client.ResourceKind]bool{}
	for _, k := range failing {
		broken[k] = true
	}
	for _, k := range dropdownKinds {
		k := k
		api.Router.HandleFunc("/"+string(k), func(w http.ResponseWriter, r *http.Request) {
			if broken[k] {
				writeError(w, http.StatusInternalServerError, "")
				return
			}
			writeJSON(w, http.StatusOK, models.Page[models.Resource]{Data: []models.Resource{{ID: primitive.NewObjectID(), Name: string(k)}}, Total: 1})
		}).Methods(http.MethodGet)
	}
	api.Router.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.Page[models.User]{Data: []models.User{{ID: primitive.NewObjectID(), Name: "Bia", Role: policy.RoleOfficialExpert}}, Total: 1})
	}).Methods(http.MethodGet)
}

func storedOccurrence() models.GeneralOccurrence {
	id, _ := primitive.ObjectIDFromHex("65f1c0ffee00000000000001")
	number := "2025.000007"
	return models.GeneralOccurrence{
		ID:                       id,
		CaseNumber:               &number,
		History:                  "Vítima encontrada no local às 14h.",
		City:                     &models.Reference{ID: "city1", Name: "Recife"},
		ForensicService:          &models.Reference{ID: "svc1", Name: "Balística"},
		OccurrenceClassification: &models.Reference{ID: "cls1", Name: "Homicídio"},
		ResponsibleExpert:        &models.UserReference{ID: "u1", Name: "Bia"},
		ExamTypes:                []models.Reference{{ID: "ex1", Name: "Necropsia"}},
		OccurrenceDate:           time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC),
		Status:                   models.StatusOpen,
		AdditionalFields:         map[string]string{"lacre": "A-12", "box": "3"},
	}
}

func TestDropdownFailureDegradesOnlyThatList(t *testing.T) {
	api := newFakeAPI(t)
	withDropdowns(api, client.Cities)
	c, _ := newClient(t, api, "u1", policy.RoleOfficialExpert)

	opts := client.LoadFormOptions(context.Background(), c)
	assert.NotNil(t, opts.Cities)
	assert.Empty(t, opts.Cities)
	assert.Len(t, opts.Authorities, 1)
	assert.Len(t, opts.ExamTypes, 1)
	assert.Len(t, opts.Classifications, 1)
	assert.Len(t, opts.Experts, 1)

	experts := api.RequestsTo("/users")
	require.Len(t, experts, 1)
	assert.Equal(t, []string{"active"}, experts[0].Query["status"])
	assert.Equal(t, []string{policy.RoleOfficialExpert}, experts[0].Query["role"])
}

func TestCreateFormDefaultsToNow(t *testing.T) {
	api := newFakeAPI(t)
	withDropdowns(api)
	c, _ := newClient(t, api, "u1", policy.RoleOfficialExpert)
	now := time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC)

	form := client.NewOccurrenceForm(context.Background(), c, now)
	assert.False(t, form.IsEdit())
	assert.Equal(t, now, form.Date())
	assert.Equal(t, "09:05", form.Time())
	require.NoError(t, form.SetTime("23:59"))
	require.NoError(t, form.SetDate(now.AddDate(0, 0, -1)))
}

func TestCreateSubmitsMergedDateAndOmitsEmptyFields(t *testing.T) {
	api := newFakeAPI(t)
	withDropdowns(api)
	api.Router.HandleFunc("/general-occurrences", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, storedOccurrence())
	}).Methods(http.MethodPost)
	c, n := newClient(t, api, "u1", policy.RoleOfficialExpert)

	form := client.NewOccurrenceForm(context.Background(), c, time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC))
	require.NoError(t, form.SetTime("18:45"))
	form.History = "  Disparo de arma de fogo em via pública.  "
	form.CityID = "city1"
	form.ForensicServiceID = "svc1"
	form.OccurrenceClassificationID = "cls1"
	form.AddField("", "sem chave")
	form.AddField("  ", "só espaços")

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ocorrência criada com sucesso!", n.Last())

	reqs := api.RequestsTo("/general-occurrences")
	require.Len(t, reqs, 1)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.NotContains(t, body, "additionalFields")
	assert.Equal(t, "2025-03-10T18:45:00Z", body["occurrenceDate"])
	assert.Equal(t, "Disparo de arma de fogo em via pública.", body["history"])
	assert.Nil(t, body["procedureId"])
	assert.Equal(t, []interface{}{}, body["examTypeIds"])
}

func TestEditKeepsDateAndTimeUnchanged(t *testing.T) {
	api := newFakeAPI(t)
	withDropdowns(api)
	stored := storedOccurrence()
	path := "/general-occurrences/" + stored.ID.Hex()
	api.Router.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stored)
	}).Methods(http.MethodGet, http.MethodPatch)
	c, n := newClient(t, api, "u1", policy.RoleOfficialExpert)

	form, err := client.EditOccurrenceForm(context.Background(), c, stored.ID.Hex())
	require.NoError(t, err)
	assert.True(t, form.DateTimeDisabled())
	assert.Equal(t, "14:30", form.Time())
	assert.ErrorIs(t, form.SetDate(time.Now()), client.ErrFieldDisabled)
	assert.ErrorIs(t, form.SetTime("08:00"), client.ErrFieldDisabled)
	assert.Equal(t, []client.AdditionalField{{Key: "box", Value: "3"}, {Key: "lacre", Value: "A-12"}}, form.AdditionalFields)

	form.History = "Histórico revisado após perícia complementar."
	_, err = form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ocorrência atualizada com sucesso!", n.Last())

	var patch []recorded
	for _, r := range api.RequestsTo(path) {
		if r.Method == http.MethodPatch {
			patch = append(patch, r)
		}
	}
	require.Len(t, patch, 1)
	var body models.OccurrencePayload
	require.NoError(t, json.Unmarshal(patch[0].Body, &body))
	require.NotNil(t, body.OccurrenceDate)
	assert.True(t, stored.OccurrenceDate.Equal(*body.OccurrenceDate))
	assert.Equal(t, map[string]string{"lacre": "A-12", "box": "3"}, body.AdditionalFields)
	assert.Equal(t, []string{"ex1"}, body.ExamTypeIDs)
	require.NotNil(t, body.ResponsibleExpertID)
	assert.Equal(t, "u1", *body.ResponsibleExpertID)
}

func TestEditFormLoadFailure(t *testing.T) {
	api := newFakeAPI(t)
	withDropdowns(api)
	api.Router.HandleFunc("/general-occurrences/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Ocorrência não encontrada.")
	})
	c, n := newClient(t, api, "u1", policy.RoleOfficialExpert)

	_, err := client.EditOccurrenceForm(context.Background(), c, "65f1c0ffee00000000000009")
	assert.Error(t, err)
	assert.Equal(t, "Falha ao carregar dados da ocorrência.", n.Last())
}

func TestInvalidFormSendsNothing(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(f *client.OccurrenceForm)
		field string
	}{
		{"missing city", func(f *client.OccurrenceForm) { f.CityID = "" }, "CityID"},
		{"missing service", func(f *client.OccurrenceForm) { f.ForensicServiceID = " " }, "ForensicServiceID"},
		{"missing classification", func(f *client.OccurrenceForm) { f.OccurrenceClassificationID = "" }, "OccurrenceClassificationID"},
		{"short history", func(f *client.OccurrenceForm) { f.History = "curto" }, "History"},
		{"bad time", func(f *client.OccurrenceForm) { _ = f.SetTime("24:00") }, "OccurrenceTime"},
		{"no date", func(f *client.OccurrenceForm) { _ = f.SetDate(time.Time{}) }, "OccurrenceDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			withDropdowns(api)
			c, n := newClient(t, api, "u1", policy.RoleOfficialExpert)
			form := client.NewOccurrenceForm(context.Background(), c, time.Now())
			form.History = "Disparo de arma de fogo em via pública."
			form.CityID = "city1"
			form.ForensicServiceID = "svc1"
			form.OccurrenceClassificationID = "cls1"
			tt.edit(form)

			_, err := form.Submit(context.Background())
			require.ErrorIs(t, err, client.ErrValidation)
			var v *client.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Equal(t, tt.field, v.Field)
			assert.Equal(t, "Por favor, preencha todos os campos obrigatórios.", n.Last())
			assert.Empty(t, api.RequestsTo("/general-occurrences"))
		})
	}
}

func TestSaveFailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
		want    string
	}{
		{"server text", http.StatusBadRequest, "Cidade não encontrada.", "Cidade não encontrada."},
		{"locked", http.StatusConflict, "Esta ocorrência está bloqueada para edição.", "Esta ocorrência está bloqueada para edição."},
		{"no text", http.StatusInternalServerError, "", "Falha ao salvar a ocorrência."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(t)
			withDropdowns(api)
			api.Router.HandleFunc("/general-occurrences", func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status, tt.message)
			}).Methods(http.MethodPost)
			c, n := newClient(t, api, "u1", policy.RoleOfficialExpert)
			form := client.NewOccurrenceForm(context.Background(), c, time.Now())
			form.History = "Disparo de arma de fogo em via pública."
			form.CityID = "city1"
			form.ForensicServiceID = "svc1"
			form.OccurrenceClassificationID = "cls1"

			_, err := form.Submit(context.Background())
			assert.Error(t, err)
			assert.Equal(t, tt.want, n.Last())
		})
	}
}

func TestFieldsMap(t *testing.T) {
	assert.Nil(t, client.FieldsMap(nil))
	assert.Nil(t, client.FieldsMap([]client.AdditionalField{{Key: "", Value: "x"}}))
	assert.Equal(t, map[string]string{"lacre": "A-12", "cor": ""}, client.FieldsMap([]client.AdditionalField{
		{Key: " lacre ", Value: "A-12"},
		{Key: "", Value: "perdido"},
		{Key: "cor", Value: ""},
	}))
}

func TestMergeDateTime(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	date := time.Date(2025, 1, 5, 0, 0, 17, 0, loc)

	merged, err := client.MergeDateTime(date, "07:09")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 5, 7, 9, 17, 0, loc), merged)

	for _, bad := range []string{"7:09", "24:00", "12:60", "12h30", ""} {
		_, err := client.MergeDateTime(date, bad)
		assert.Error(t, err, bad)
	}
}

func TestRemoveField(t *testing.T) {
	f := &client.OccurrenceForm{}
	f.AddField("a", "1")
	f.AddField("b", "2")
	f.AddField("c", "3")
	f.RemoveField(1)
	f.RemoveField(7)
	assert.Equal(t, []client.AdditionalField{{Key: "a", Value: "1"}, {Key: "c", Value: "3"}}, f.AdditionalFields)
}
