package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/models"
)

// ResourceKind describes one master-data collection and how it is named in
// user-facing messages
type ResourceKind struct {
	Path       string
	Collection string
	// Noun carries its indefinite article, e.g. "uma cidade"
	Noun     string
	NotFound string
	// Grouped kinds accept the group filter
	Grouped bool
}

// ResourceKinds lists every master-data resource exposed by the API
var ResourceKinds = []ResourceKind{
	{Path: "cities", Collection: databases.CityCollection, Noun: "uma cidade", NotFound: "Cidade não encontrada."},
	{Path: "procedures", Collection: databases.ProcedureCollection, Noun: "um procedimento", NotFound: "Procedimento não encontrado."},
	{Path: "authorities", Collection: databases.AuthorityCollection, Noun: "uma autoridade", NotFound: "Autoridade não encontrada."},
	{Path: "exam-types", Collection: databases.ExamTypeCollection, Noun: "um tipo de exame", NotFound: "Tipo de exame não encontrado."},
	{Path: "forensic-services", Collection: databases.ForensicServiceCollection, Noun: "um serviço pericial", NotFound: "Serviço pericial não encontrado."},
	{Path: "requesting-units", Collection: databases.RequestingUnitCollection, Noun: "uma unidade solicitante", NotFound: "Unidade solicitante não encontrada."},
	{Path: "occurrence-classifications", Collection: databases.OccurrenceClassificationCollection, Noun: "uma classificação", NotFound: "Classificação não encontrada.", Grouped: true},
	{Path: "locations", Collection: databases.LocationCollection, Noun: "um local", NotFound: "Local não encontrado."},
}

// ConflictMessage is shown when a record with the same name already exists
func (k ResourceKind) ConflictMessage() string {
	return fmt.Sprintf("Já existe %s com este nome.", k.Noun)
}

// Resource exported for testing purposes
type Resource struct {
	DB   databases.ResourceDatabase
	Kind ResourceKind
	Now  func() time.Time
}

func (res Resource) now() time.Time {
	if res.Now != nil {
		return res.Now()
	}
	return time.Now()
}

// ListHandler pages through the collection ordered by name
func (res Resource) ListHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := bson.M{}
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		re := databases.SearchRegex(search)
		filter["$or"] = bson.A{bson.M{"name": re}, bson.M{"acronym": re}}
	}
	if res.Kind.Grouped {
		if group := q.Get("group"); group != "" {
			filter["group"] = group
		}
	}
	page, limit := paging(r)

	total, err := res.DB.CountDocuments(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	items, err := res.DB.Find(r.Context(), filter, databases.PaginatedOpts(page, limit, databases.ByName()))
	if err != nil {
		internalError(w, err)
		return
	}
	if items == nil {
		items = []models.Resource{}
	}
	writeJSON(w, http.StatusOK, models.Page[models.Resource]{Data: items, Total: total, Page: page, Limit: limit})
}

// GetHandler returns one record
func (res Resource) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := res.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, res.Kind.NotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateHandler inserts a record; names are unique ignoring case
func (res Resource) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		config.ErrorStatus("O nome é obrigatório.", http.StatusBadRequest, w, nil)
		return
	}
	name := strings.TrimSpace(*req.Name)
	if !res.nameAvailable(w, r, name, primitive.NilObjectID) {
		return
	}

	now := res.now()
	item := models.Resource{Name: name, CreatedAt: now, UpdatedAt: now}
	applyResourceFields(&item, req)
	created, err := res.DB.InsertOne(r.Context(), item)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateHandler changes the fields present in the body
func (res Resource) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	item, err := res.DB.FindOne(r.Context(), bson.M{"_id": id})
	if err != nil {
		lookupError(w, err, res.Kind.NotFound)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			config.ErrorStatus("O nome é obrigatório.", http.StatusBadRequest, w, nil)
			return
		}
		if !strings.EqualFold(name, item.Name) && !res.nameAvailable(w, r, name, id) {
			return
		}
		item.Name = name
	}
	applyResourceFields(item, req)
	item.UpdatedAt = res.now()

	err = res.DB.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":        item.Name,
		"acronym":     item.Acronym,
		"state":       item.State,
		"group":       item.Group,
		"description": item.Description,
		"address":     item.Address,
		"updatedAt":   item.UpdatedAt,
	}})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteHandler removes a record
func (res Resource) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := res.DB.FindOne(r.Context(), bson.M{"_id": id}); err != nil {
		lookupError(w, err, res.Kind.NotFound)
		return
	}
	if err := res.DB.DeleteOne(r.Context(), bson.M{"_id": id}); err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Registro excluído."})
}

func (res Resource) nameAvailable(w http.ResponseWriter, r *http.Request, name string, self primitive.ObjectID) bool {
	filter := bson.M{"name": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}}
	if !self.IsZero() {
		filter["_id"] = bson.M{"$ne": self}
	}
	_, err := res.DB.FindOne(r.Context(), filter)
	if err == nil {
		config.ErrorStatus(res.Kind.ConflictMessage(), http.StatusConflict, w, nil)
		return false
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		internalError(w, err)
		return false
	}
	return true
}

func applyResourceFields(item *models.Resource, req models.ResourceRequest) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&item.Acronym, req.Acronym)
	set(&item.State, req.State)
	set(&item.Group, req.Group)
	set(&item.Description, req.Description)
	set(&item.Address, req.Address)
}
