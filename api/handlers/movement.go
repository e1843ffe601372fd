package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/forensic-case-api/config"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/deadlines"
	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// MinMovementDescriptionLength applies to movements entered by people
const MinMovementDescriptionLength = 10

// FlagRefresher recomputes the deadline flags of open occurrences
type FlagRefresher interface {
	Refresh(ctx context.Context) (models.RefreshFlagsResponse, error)
}

// Movement exported for testing purposes
type Movement struct {
	DB           databases.MovementDatabase
	OccurrenceDB databases.OccurrenceDatabase
	Refresher    FlagRefresher
	Window       time.Duration
	Live         Publisher
	Now          func() time.Time
}

func (m Movement) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// CreateMovementHandler appends a note to an occurrence history. Deadlines
// only move through ExtendDeadlineHandler.
func (m Movement) CreateMovementHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		models.CreateMovementRequest
		Deadline               *time.Time `json:"deadline"`
		WasExtended            *bool      `json:"wasExtended"`
		ExtensionJustification *string    `json:"extensionJustification"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if req.Deadline != nil || (req.WasExtended != nil && *req.WasExtended) || req.ExtensionJustification != nil {
		config.ErrorStatus("Use a prorrogação de prazo para alterar o prazo.", http.StatusBadRequest, w,
			errors.New("deadline fields are not accepted on movement creation"))
		return
	}
	description := strings.TrimSpace(req.Description)
	if runeLen(description) < MinMovementDescriptionLength {
		config.ErrorStatus(fmt.Sprintf("A descrição deve ter pelo menos %d caracteres.", MinMovementDescriptionLength), http.StatusBadRequest, w, nil)
		return
	}
	oid, err := primitive.ObjectIDFromHex(req.OccurrenceID)
	if err != nil {
		config.ErrorStatus("Identificador inválido.", http.StatusBadRequest, w, err)
		return
	}
	ctx := r.Context()
	if _, err := m.OccurrenceDB.FindOne(ctx, activeOccurrence(oid)); err != nil {
		lookupError(w, err, "Ocorrência não encontrada.")
		return
	}

	c := caller(r)
	movement := models.OccurrenceMovement{
		OccurrenceID:   req.OccurrenceID,
		Description:    description,
		PerformedBy:    models.PerformedBy{ID: c.ID, Name: c.Name, Role: c.Role},
		PerformedAt:    m.now(),
		AdditionalData: req.AdditionalData,
	}

	created, err := m.DB.InsertOne(ctx, movement)
	if err != nil {
		internalError(w, err)
		return
	}
	publisherOrNop(m.Live).Publish(models.LiveEvent{Type: EventMovementCreated, OccurrenceID: req.OccurrenceID})
	writeJSON(w, http.StatusCreated, created)
}

// OccurrenceMovementsHandler lists the history of an occurrence, newest first
func (m Movement) OccurrenceMovementsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	movements, err := m.DB.Find(r.Context(), bson.M{"occurrenceId": id.Hex()},
		databases.PaginatedOpts(1, databases.MaxLimit, bson.D{{Key: "performedAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		internalError(w, err)
		return
	}
	if movements == nil {
		movements = []models.OccurrenceMovement{}
	}
	writeJSON(w, http.StatusOK, movements)
}

// DeadlineStatusHandler reports the current deadline of every open
// occurrence. The answer is a plain array unless page is given.
func (m Movement) DeadlineStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := databases.NotDeleted()
	filter["status"] = models.StatusOpen
	if serviceID := r.URL.Query().Get("forensicServiceId"); serviceID != "" {
		filter["forensicService.id"] = serviceID
	}
	paged := r.URL.Query().Has("page")
	page, limit := 1, databases.MaxLimit
	if paged {
		page, limit = paging(r)
	}

	occurrences, err := m.OccurrenceDB.Find(ctx, filter, databases.PaginatedOpts(page, limit, databases.Newest("createdAt")))
	if err != nil {
		internalError(w, err)
		return
	}
	rows := make([]models.DeadlineStatus, 0, len(occurrences))
	for _, o := range occurrences {
		row := models.DeadlineStatus{
			ID:                o.ID.Hex(),
			CaseNumber:        o.CaseNumber,
			ForensicService:   o.ForensicService,
			ResponsibleExpert: o.ResponsibleExpert,
			Status:            o.Status,
		}
		latest, err := m.DB.LatestDeadline(ctx, o.ID.Hex())
		if err != nil {
			internalError(w, err)
			return
		}
		if latest != nil {
			row.Deadline = latest.Deadline
			row.OriginalDeadline = latest.OriginalDeadline
			row.IsOverdue = latest.IsOverdue
			row.IsNearDeadline = latest.IsNearDeadline
			row.WasExtended = latest.WasExtended
		}
		rows = append(rows, row)
	}

	if !paged {
		writeJSON(w, http.StatusOK, rows)
		return
	}
	total, err := m.OccurrenceDB.CountDocuments(ctx, filter)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Page[models.DeadlineStatus]{Data: rows, Total: total, Page: page, Limit: limit})
}

// ExtendDeadlineHandler pushes the deadline of an open occurrence. Admins may
// extend any deadline; an official expert only those of their own cases.
func (m Movement) ExtendDeadlineHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ExtendDeadlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	justification := strings.TrimSpace(req.Justification)
	if err := deadlines.ValidateExtension(req.ExtensionDays, justification); err != nil {
		config.ErrorStatus(extensionMessage(err), http.StatusBadRequest, w, err)
		return
	}

	ctx := r.Context()
	occurrence, err := m.OccurrenceDB.FindOne(ctx, activeOccurrence(id))
	if err != nil {
		lookupError(w, err, "Ocorrência não encontrada.")
		return
	}
	c := caller(r)
	if !policy.CanExtendDeadline(c.Role, c.ID, occurrence.ResponsibleExpertID()) {
		config.ErrorStatus("Você não tem permissão para prorrogar o prazo desta ocorrência.", http.StatusForbidden, w, nil)
		return
	}
	if occurrence.Status != models.StatusOpen {
		config.ErrorStatus("Não é possível prorrogar o prazo de uma ocorrência encerrada.", http.StatusConflict, w, nil)
		return
	}

	latest, err := m.DB.LatestDeadline(ctx, id.Hex())
	if err != nil {
		internalError(w, err)
		return
	}
	now := m.now()
	ext, err := deadlines.Extend(latest, req.ExtensionDays, now)
	if err != nil {
		config.ErrorStatus(extensionMessage(err), http.StatusBadRequest, w, err)
		return
	}
	overdue, near := deadlines.Flags(&ext.Deadline, now, m.Window)
	created, err := m.DB.InsertOne(ctx, models.OccurrenceMovement{
		OccurrenceID:           id.Hex(),
		Description:            fmt.Sprintf("Prazo prorrogado por %d dia(s). Justificativa: %s", req.ExtensionDays, justification),
		Deadline:               &ext.Deadline,
		OriginalDeadline:       &ext.OriginalDeadline,
		IsOverdue:              overdue,
		IsNearDeadline:         near,
		WasExtended:            true,
		ExtensionJustification: &justification,
		PerformedBy:            models.PerformedBy{ID: c.ID, Name: c.Name, Role: c.Role},
		PerformedAt:            now,
		AdditionalData:         map[string]interface{}{"extensionDays": req.ExtensionDays},
	})
	if err != nil {
		internalError(w, err)
		return
	}
	publisherOrNop(m.Live).Publish(models.LiveEvent{Type: EventMovementCreated, OccurrenceID: id.Hex()})
	writeJSON(w, http.StatusCreated, created)
}

// DeleteMovementHandler always refuses: movements are append-only
func (m Movement) DeleteMovementHandler(w http.ResponseWriter, r *http.Request) {
	config.ErrorStatus("Movimentações não podem ser alteradas ou excluídas.", http.StatusNotImplemented, w, nil)
}

// RefreshFlagsHandler recomputes the deadline flags on demand
func (m Movement) RefreshFlagsHandler(w http.ResponseWriter, r *http.Request) {
	res, err := m.Refresher.Refresh(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func extensionMessage(err error) string {
	switch {
	case errors.Is(err, deadlines.ErrInvalidExtension):
		return fmt.Sprintf("A prorrogação deve ser entre %d e %d dias.", deadlines.MinExtensionDays, deadlines.MaxExtensionDays)
	case errors.Is(err, deadlines.ErrShortJustification):
		return fmt.Sprintf("A justificativa deve ter pelo menos %d caracteres.", deadlines.MinJustificationLength)
	case errors.Is(err, deadlines.ErrNoDeadline):
		return "A ocorrência não possui prazo para prorrogar."
	default:
		return "Prorrogação inválida."
	}
}
