package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/deadlines"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// MinHistoryLength is the minimum number of characters of an occurrence history
const MinHistoryLength = 10

// Live event types
const (
	EventOccurrenceCreated = "occurrence.created"
	EventOccurrenceUpdated = "occurrence.updated"
	EventOccurrenceDeleted = "occurrence.deleted"
	EventMovementCreated   = "movement.created"
)

// Lookups are the master-data collections an occurrence references
type Lookups struct {
	Cities           databases.ResourceDatabase
	Procedures       databases.ResourceDatabase
	Authorities      databases.ResourceDatabase
	RequestingUnits  databases.ResourceDatabase
	ForensicServices databases.ResourceDatabase
	Classifications  databases.ResourceDatabase
	ExamTypes        databases.ResourceDatabase
}

// Occurrence exported for testing purposes
type Occurrence struct {
	DB           databases.OccurrenceDatabase
	MovementDB   databases.MovementDatabase
	UserDB       databases.UserDatabase
	Lookups      Lookups
	DeadlineDays int
	Window       time.Duration
	Live         Publisher
	Now          func() time.Time
}

// badRequest is a validation failure answered with 400
type badRequest struct {
	message string
	err     error
}

func (e badRequest) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (o Occurrence) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func activeOccurrence(id primitive.ObjectID) bson.M {
	filter := databases.NotDeleted()
	filter["_id"] = id
	return filter
}

func (o Occurrence) listFilter(r *http.Request) bson.M {
	q := r.URL.Query()
	filter := databases.NotDeleted()
	if search := strings.TrimSpace(q.Get("search")); search != "" {
		re := databases.SearchRegex(search)
		filter["$or"] = bson.A{
			bson.M{"caseNumber": re},
			bson.M{"history": re},
			bson.M{"procedureNumber": re},
			bson.M{"responsibleExpert.name": re},
		}
	}
	if serviceID := q.Get("forensicServiceId"); serviceID != "" {
		filter["forensicService.id"] = serviceID
	}
	if status := q.Get("status"); status != "" {
		filter["status"] = status
	}
	if queryBool(r, "onlyMine") {
		filter["responsibleExpert.id"] = caller(r).ID
	}
	return filter
}

// OccurrencesHandler pages through occurrences, newest first
func (o Occurrence) OccurrencesHandler(w http.ResponseWriter, r *http.Request) {
	filter := o.listFilter(r)
	page, limit := paging(r)

	total, err := o.DB.CountDocuments(r.Context(), filter)
	if err != nil {
		internalError(w, err)
		return
	}
	items, err := o.DB.Find(r.Context(), filter, databases.PaginatedOpts(page, limit, databases.Newest("createdAt")))
	if err != nil {
		internalError(w, err)
		return
	}
	if items == nil {
		items = []models.GeneralOccurrence{}
	}
	writeJSON(w, http.StatusOK, models.Page[models.GeneralOccurrence]{Data: items, Total: total, Page: page, Limit: limit})
}

// MyOccurrencesHandler lists the occurrences assigned to the caller
func (o Occurrence) MyOccurrencesHandler(w http.ResponseWriter, r *http.Request) {
	filter := databases.NotDeleted()
	filter["responsibleExpert.id"] = caller(r).ID
	o.writeList(w, r, filter)
}

// ByStatusHandler lists the occurrences in one status
func (o Occurrence) ByStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !models.IsValidOccurrenceStatus(status) {
		config.ErrorStatus("Status inválido.", http.StatusBadRequest, w, nil)
		return
	}
	filter := databases.NotDeleted()
	filter["status"] = status
	o.writeList(w, r, filter)
}

func (o Occurrence) writeList(w http.ResponseWriter, r *http.Request, filter bson.M) {
	items, err := o.DB.Find(r.Context(), filter, databases.PaginatedOpts(1, databases.MaxLimit, databases.Newest("createdAt")))
	if err != nil {
		internalError(w, err)
		return
	}
	if items == nil {
		items = []models.GeneralOccurrence{}
	}
	writeJSON(w, http.StatusOK, items)
}

// StatsHandler summarizes occurrences by status and assignment
func (o Occurrence) StatsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := models.OccurrenceStats{ByStatus: map[string]int64{}}

	total, err := o.DB.CountDocuments(ctx, databases.NotDeleted())
	if err != nil {
		internalError(w, err)
		return
	}
	stats.Total = total
	for _, status := range []string{models.StatusOpen, models.StatusConcluded, models.StatusCancelled} {
		filter := databases.NotDeleted()
		filter["status"] = status
		n, err := o.DB.CountDocuments(ctx, filter)
		if err != nil {
			internalError(w, err)
			return
		}
		stats.ByStatus[status] = n
	}
	pool := databases.NotDeleted()
	pool["$or"] = bson.A{bson.M{"responsibleExpert": nil}, bson.M{"responsibleExpert.id": ""}}
	stats.Pool, err = o.DB.CountDocuments(ctx, pool)
	if err != nil {
		internalError(w, err)
		return
	}
	stats.Assigned = stats.Total - stats.Pool
	writeJSON(w, http.StatusOK, stats)
}

// OccurrenceHandler returns one occurrence
func (o Occurrence) OccurrenceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := o.DB.FindOne(r.Context(), activeOccurrence(id))
	if err != nil {
		lookupError(w, err, "Ocorrência não encontrada.")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// CreateOccurrenceHandler registers an occurrence, assigns its case number
// and opens its initial deadline
func (o Occurrence) CreateOccurrenceHandler(w http.ResponseWriter, r *http.Request) {
	var p models.OccurrencePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	ctx := r.Context()
	c := caller(r)
	now := o.now()

	item := models.GeneralOccurrence{
		History:         strings.TrimSpace(p.History),
		ProcedureNumber: trimmedOrNil(p.ProcedureNumber),
		Status:          models.StatusOpen,
		CreatedBy:       &models.UserReference{ID: c.ID, Name: c.Name},
		OccurrenceDate:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(p.AdditionalFields) > 0 {
		item.AdditionalFields = p.AdditionalFields
	}
	if p.OccurrenceDate != nil {
		item.OccurrenceDate = *p.OccurrenceDate
	}
	if runeLen(item.History) < MinHistoryLength {
		config.ErrorStatus(fmt.Sprintf("O histórico deve ter pelo menos %d caracteres.", MinHistoryLength), http.StatusBadRequest, w, nil)
		return
	}
	if err := o.resolveAll(ctx, &item, p, allFields()); err != nil {
		o.resolveError(w, err)
		return
	}

	caseNumber, err := o.DB.NextCaseNumber(ctx, now.Year())
	if err != nil {
		internalError(w, err)
		return
	}
	item.CaseNumber = &caseNumber

	created, err := o.DB.InsertOne(ctx, item)
	if err != nil {
		internalError(w, err)
		return
	}

	deadline := deadlines.Initial(now, o.DeadlineDays)
	overdue, near := deadlines.Flags(&deadline, now, o.Window)
	_, err = o.MovementDB.InsertOne(ctx, models.OccurrenceMovement{
		OccurrenceID:      created.ID.Hex(),
		Description:       fmt.Sprintf("Ocorrência registrada. Prazo inicial de %d dias.", o.DeadlineDays),
		Deadline:          &deadline,
		OriginalDeadline:  &deadline,
		IsOverdue:         overdue,
		IsNearDeadline:    near,
		PerformedBy:       models.PerformedBy{ID: c.ID, Name: c.Name, Role: c.Role},
		PerformedAt:       now,
		IsSystemGenerated: true,
	})
	if err != nil {
		zap.S().Errorw("failed to record initial deadline", "occurrenceId", created.ID.Hex(), "error", err)
	}

	publisherOrNop(o.Live).Publish(models.LiveEvent{Type: EventOccurrenceCreated, OccurrenceID: created.ID.Hex()})
	writeJSON(w, http.StatusCreated, created)
}

// UpdateOccurrenceHandler applies the fields present in the body. Absent
// fields are left alone; an empty additionalFields object leaves the stored
// map unchanged.
func (o Occurrence) UpdateOccurrenceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		config.ErrorStatus("failed to read request", http.StatusBadRequest, w, err)
		return
	}
	keys, err := present(body)
	if err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	var p models.OccurrencePayload
	if err := json.Unmarshal(body, &p); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}

	ctx := r.Context()
	c := caller(r)
	existing, err := o.DB.FindOne(ctx, activeOccurrence(id))
	if err != nil {
		lookupError(w, err, "Ocorrência não encontrada.")
		return
	}

	if _, ok := keys["isLocked"]; ok && !policy.IsAdmin(c.Role) {
		config.ErrorStatus("Somente administradores podem bloquear ou desbloquear ocorrências.", http.StatusForbidden, w, nil)
		return
	}
	if existing.IsLocked && hasOtherKeys(keys, "isLocked") {
		config.ErrorStatus("Esta ocorrência está bloqueada para edição.", http.StatusConflict, w, nil)
		return
	}
	if p.OccurrenceDate != nil && !p.OccurrenceDate.Equal(existing.OccurrenceDate) {
		config.ErrorStatus("A data da ocorrência não pode ser alterada.", http.StatusBadRequest, w, nil)
		return
	}

	updated := *existing
	now := o.now()
	if _, ok := keys["history"]; ok {
		updated.History = strings.TrimSpace(p.History)
		if runeLen(updated.History) < MinHistoryLength {
			config.ErrorStatus(fmt.Sprintf("O histórico deve ter pelo menos %d caracteres.", MinHistoryLength), http.StatusBadRequest, w, nil)
			return
		}
	}
	if _, ok := keys["procedureNumber"]; ok {
		updated.ProcedureNumber = trimmedOrNil(p.ProcedureNumber)
	}
	if len(p.AdditionalFields) > 0 {
		if !policy.IsSuperAdmin(c.Role) {
			for k := range existing.AdditionalFields {
				if _, kept := p.AdditionalFields[k]; !kept {
					config.ErrorStatus("Somente o super administrador pode remover campos adicionais.", http.StatusForbidden, w, nil)
					return
				}
			}
		}
		updated.AdditionalFields = p.AdditionalFields
	}
	if err := o.resolveAll(ctx, &updated, p, keys); err != nil {
		o.resolveError(w, err)
		return
	}

	statusChanged := false
	if _, ok := keys["status"]; ok && p.Status != existing.Status {
		if !models.IsValidOccurrenceStatus(p.Status) {
			config.ErrorStatus("Status inválido.", http.StatusBadRequest, w, nil)
			return
		}
		updated.Status = p.Status
		statusChanged = true
	}
	if _, ok := keys["statusChangeObservations"]; ok {
		updated.StatusChangeObservations = trimmedOrNil(p.StatusChangeObservations)
	}
	if p.IsLocked != nil {
		updated.IsLocked = *p.IsLocked
	}
	updated.UpdatedAt = now

	err = o.DB.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"history":                  updated.History,
		"procedureNumber":          updated.ProcedureNumber,
		"additionalFields":         updated.AdditionalFields,
		"procedure":                updated.Procedure,
		"city":                     updated.City,
		"requestingUnit":           updated.RequestingUnit,
		"requestingAuthority":      updated.RequestingAuthority,
		"responsibleExpert":        updated.ResponsibleExpert,
		"forensicService":          updated.ForensicService,
		"occurrenceClassification": updated.OccurrenceClassification,
		"examTypes":                updated.ExamTypes,
		"status":                   updated.Status,
		"statusChangeObservations": updated.StatusChangeObservations,
		"isLocked":                 updated.IsLocked,
		"updatedAt":                updated.UpdatedAt,
	}})
	if err != nil {
		internalError(w, err)
		return
	}

	if statusChanged {
		description := fmt.Sprintf("Status alterado de %s para %s.", existing.Status, updated.Status)
		if updated.StatusChangeObservations != nil {
			description += " Observações: " + *updated.StatusChangeObservations
		}
		_, err = o.MovementDB.InsertOne(ctx, models.OccurrenceMovement{
			OccurrenceID:      id.Hex(),
			Description:       description,
			PerformedBy:       models.PerformedBy{ID: c.ID, Name: c.Name, Role: c.Role},
			PerformedAt:       now,
			IsSystemGenerated: true,
			AdditionalData:    map[string]interface{}{"previousStatus": existing.Status, "newStatus": updated.Status},
		})
		if err != nil {
			zap.S().Errorw("failed to record status change", "occurrenceId", id.Hex(), "error", err)
		}
	}

	publisherOrNop(o.Live).Publish(models.LiveEvent{Type: EventOccurrenceUpdated, OccurrenceID: id.Hex()})
	writeJSON(w, http.StatusOK, updated)
}

// DeleteOccurrenceHandler soft deletes an occurrence
func (o Occurrence) DeleteOccurrenceHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := o.DB.FindOne(r.Context(), activeOccurrence(id)); err != nil {
		lookupError(w, err, "Ocorrência não encontrada.")
		return
	}
	now := o.now()
	if err := o.DB.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{"$set": bson.M{"deletedAt": now, "updatedAt": now}}); err != nil {
		internalError(w, err)
		return
	}
	publisherOrNop(o.Live).Publish(models.LiveEvent{Type: EventOccurrenceDeleted, OccurrenceID: id.Hex()})
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Ocorrência excluída."})
}

func allFields() map[string]json.RawMessage {
	keys := map[string]json.RawMessage{}
	for _, k := range []string{"procedureId", "cityId", "requestingAuthorityId", "requestingUnitId",
		"responsibleExpertId", "forensicServiceId", "occurrenceClassificationId", "examTypeIds"} {
		keys[k] = nil
	}
	return keys
}

// resolveAll turns the ids of p that appear in keys into references on item
func (o Occurrence) resolveAll(ctx context.Context, item *models.GeneralOccurrence, p models.OccurrencePayload, keys map[string]json.RawMessage) error {
	var err error
	has := func(k string) bool { _, ok := keys[k]; return ok }

	if has("cityId") {
		if item.City, err = o.required(ctx, o.Lookups.Cities, p.CityID, "A cidade é obrigatória.", "Cidade não encontrada."); err != nil {
			return err
		}
	}
	if has("forensicServiceId") {
		if item.ForensicService, err = o.required(ctx, o.Lookups.ForensicServices, p.ForensicServiceID, "O serviço pericial é obrigatório.", "Serviço pericial não encontrado."); err != nil {
			return err
		}
	}
	if has("occurrenceClassificationId") {
		if item.OccurrenceClassification, err = o.required(ctx, o.Lookups.Classifications, p.OccurrenceClassificationID, "A classificação é obrigatória.", "Classificação não encontrada."); err != nil {
			return err
		}
	}
	if has("procedureId") {
		if item.Procedure, err = o.optional(ctx, o.Lookups.Procedures, p.ProcedureID, "Procedimento não encontrado."); err != nil {
			return err
		}
	}
	if has("requestingAuthorityId") {
		if item.RequestingAuthority, err = o.optional(ctx, o.Lookups.Authorities, p.RequestingAuthorityID, "Autoridade não encontrada."); err != nil {
			return err
		}
	}
	if has("requestingUnitId") {
		if item.RequestingUnit, err = o.optional(ctx, o.Lookups.RequestingUnits, p.RequestingUnitID, "Unidade solicitante não encontrada."); err != nil {
			return err
		}
	}
	if has("responsibleExpertId") {
		if item.ResponsibleExpert, err = o.expert(ctx, p.ResponsibleExpertID); err != nil {
			return err
		}
	}
	if has("examTypeIds") {
		item.ExamTypes = []models.Reference{}
		seen := map[string]bool{}
		for _, examID := range p.ExamTypeIDs {
			if seen[examID] {
				continue
			}
			seen[examID] = true
			ref, err := o.required(ctx, o.Lookups.ExamTypes, examID, "Tipo de exame inválido.", "Tipo de exame não encontrado.")
			if err != nil {
				return err
			}
			item.ExamTypes = append(item.ExamTypes, *ref)
		}
	}
	return nil
}

func (o Occurrence) required(ctx context.Context, db databases.ResourceDatabase, id, missing, notFound string) (*models.Reference, error) {
	if strings.TrimSpace(id) == "" {
		return nil, badRequest{message: missing}
	}
	return o.lookup(ctx, db, id, notFound)
}

func (o Occurrence) optional(ctx context.Context, db databases.ResourceDatabase, id *string, notFound string) (*models.Reference, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	return o.lookup(ctx, db, *id, notFound)
}

func (o Occurrence) lookup(ctx context.Context, db databases.ResourceDatabase, id, notFound string) (*models.Reference, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, badRequest{message: notFound, err: err}
	}
	item, err := db.FindOne(ctx, bson.M{"_id": oid})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, badRequest{message: notFound, err: err}
	}
	if err != nil {
		return nil, err
	}
	return item.Reference(), nil
}

// expert resolves the responsible expert; nil or empty means a pool case
func (o Occurrence) expert(ctx context.Context, id *string) (*models.UserReference, error) {
	if id == nil || strings.TrimSpace(*id) == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(*id)
	if err != nil {
		return nil, badRequest{message: "Perito responsável não encontrado.", err: err}
	}
	u, err := o.UserDB.FindOne(ctx, bson.M{"_id": oid})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, badRequest{message: "Perito responsável não encontrado.", err: err}
	}
	if err != nil {
		return nil, err
	}
	if u.Status != models.UserActive {
		return nil, badRequest{message: "O perito responsável precisa estar ativo."}
	}
	return u.Reference(), nil
}

func (o Occurrence) resolveError(w http.ResponseWriter, err error) {
	var br badRequest
	if errors.As(err, &br) {
		config.ErrorStatus(br.message, http.StatusBadRequest, w, br.err)
		return
	}
	internalError(w, err)
}

func hasOtherKeys(keys map[string]json.RawMessage, allowed ...string) bool {
	for k := range keys {
		if !containsString(allowed, k) {
			return true
		}
	}
	return false
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
