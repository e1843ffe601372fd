package client

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

const (
	saveFailedMessage = "Falha ao salvar a ocorrência."
	timeLayout        = "15:04"
	dropdownLimit     = 1000
)

// FormOptions are the dropdown lists of the occurrence form
type FormOptions struct {
	Cities           []models.Resource
	Authorities      []models.Resource
	RequestingUnits  []models.Resource
	Procedures       []models.Resource
	Classifications  []models.Resource
	ForensicServices []models.Resource
	ExamTypes        []models.Resource
	Experts          []models.User
}

// LoadFormOptions fetches every dropdown list in parallel. A list that fails
// to load is left empty; the others are still shown.
func LoadFormOptions(ctx context.Context, c *Client) FormOptions {
	var opts FormOptions
	all := ListQuery{Page: 1, Limit: dropdownLimit}

	resources := []struct {
		kind ResourceKind
		dst  *[]models.Resource
	}{
		{Cities, &opts.Cities},
		{Authorities, &opts.Authorities},
		{RequestingUnits, &opts.RequestingUnits},
		{Procedures, &opts.Procedures},
		{OccurrenceClassifications, &opts.Classifications},
		{ForensicServices, &opts.ForensicServices},
		{ExamTypes, &opts.ExamTypes},
	}

	var g errgroup.Group
	for _, r := range resources {
		r := r
		g.Go(func() error {
			page, err := c.Resources(r.kind).List(ctx, all, "")
			if err != nil {
				c.log.Warnw("failed to load dropdown", "kind", r.kind, "error", err)
				*r.dst = []models.Resource{}
				return nil
			}
			*r.dst = nonNil(page.Data)
			return nil
		})
	}
	g.Go(func() error {
		page, err := c.Users.List(ctx, UserQuery{ListQuery: all, Status: models.UserActive, Role: policy.RoleOfficialExpert})
		if err != nil {
			c.log.Warnw("failed to load dropdown", "kind", "experts", "error", err)
			opts.Experts = []models.User{}
			return nil
		}
		opts.Experts = nonNil(page.Data)
		return nil
	})
	_ = g.Wait()
	return opts
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// AdditionalField is one key/value row of the additional fields editor
type AdditionalField struct {
	Key   string
	Value string
}

// OccurrenceForm holds the state of the create and edit occurrence screen
type OccurrenceForm struct {
	c       *Client
	id      string
	Options FormOptions

	date      time.Time
	timeOfDay string

	History                    string
	ProcedureID                string
	ProcedureNumber            string
	CityID                     string
	RequestingAuthorityID      string
	RequestingUnitID           string
	ResponsibleExpertID        string
	ForensicServiceID          string
	OccurrenceClassificationID string
	ExamTypeIDs                []string
	AdditionalFields           []AdditionalField
}

// NewOccurrenceForm opens the create form with date and time set to now
func NewOccurrenceForm(ctx context.Context, c *Client, now time.Time) *OccurrenceForm {
	return &OccurrenceForm{
		c:         c,
		Options:   LoadFormOptions(ctx, c),
		date:      now,
		timeOfDay: now.Format(timeLayout),
	}
}

// EditOccurrenceForm opens the edit form of occurrence id. Date and time are
// loaded but cannot be changed.
func EditOccurrenceForm(ctx context.Context, c *Client, id string) (*OccurrenceForm, error) {
	f := &OccurrenceForm{c: c, id: id, Options: LoadFormOptions(ctx, c)}
	o, err := c.Occurrences.Get(ctx, id)
	if err != nil {
		c.notify.Notify(Message(err, "Falha ao carregar dados da ocorrência."))
		return nil, err
	}
	f.fill(*o)
	return f, nil
}

func (f *OccurrenceForm) fill(o models.GeneralOccurrence) {
	f.date = o.OccurrenceDate
	f.timeOfDay = o.OccurrenceDate.Format(timeLayout)
	f.History = o.History
	f.ProcedureNumber = deref(o.ProcedureNumber)
	f.ProcedureID = refID(o.Procedure)
	f.CityID = refID(o.City)
	f.RequestingAuthorityID = refID(o.RequestingAuthority)
	f.RequestingUnitID = refID(o.RequestingUnit)
	f.ResponsibleExpertID = o.ResponsibleExpertID()
	f.ForensicServiceID = refID(o.ForensicService)
	f.OccurrenceClassificationID = refID(o.OccurrenceClassification)
	f.ExamTypeIDs = make([]string, 0, len(o.ExamTypes))
	for _, et := range o.ExamTypes {
		f.ExamTypeIDs = append(f.ExamTypeIDs, et.ID)
	}
	keys := make([]string, 0, len(o.AdditionalFields))
	for k := range o.AdditionalFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	f.AdditionalFields = make([]AdditionalField, 0, len(keys))
	for _, k := range keys {
		f.AdditionalFields = append(f.AdditionalFields, AdditionalField{Key: k, Value: o.AdditionalFields[k]})
	}
}

func refID(r *models.Reference) string {
	if r == nil {
		return ""
	}
	return r.ID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// IsEdit reports whether the form edits an existing occurrence
func (f *OccurrenceForm) IsEdit() bool {
	return f.id != ""
}

// DateTimeDisabled reports whether date and time are read-only
func (f *OccurrenceForm) DateTimeDisabled() bool {
	return f.IsEdit()
}

// Date returns the occurrence date, including in edit mode
func (f *OccurrenceForm) Date() time.Time {
	return f.date
}

// Time returns the HH:mm time, including in edit mode
func (f *OccurrenceForm) Time() string {
	return f.timeOfDay
}

// SetDate changes the date; only its calendar day is used
func (f *OccurrenceForm) SetDate(d time.Time) error {
	if f.DateTimeDisabled() {
		return ErrFieldDisabled
	}
	f.date = d
	return nil
}

// SetTime changes the HH:mm time
func (f *OccurrenceForm) SetTime(clock string) error {
	if f.DateTimeDisabled() {
		return ErrFieldDisabled
	}
	f.timeOfDay = clock
	return nil
}

// AddField appends a row to the additional fields editor
func (f *OccurrenceForm) AddField(key, value string) {
	f.AdditionalFields = append(f.AdditionalFields, AdditionalField{Key: key, Value: value})
}

// RemoveField drops row i of the additional fields editor
func (f *OccurrenceForm) RemoveField(i int) {
	if i < 0 || i >= len(f.AdditionalFields) {
		return
	}
	f.AdditionalFields = append(f.AdditionalFields[:i], f.AdditionalFields[i+1:]...)
}

type occurrenceInput struct {
	CityID                     string `validate:"required"`
	ForensicServiceID          string `validate:"required"`
	OccurrenceClassificationID string `validate:"required"`
	History                    string `validate:"required,min=10"`
	OccurrenceTime             string `validate:"required,hhmm"`
}

// Validate checks the required fields. The error carries the notice the
// screen shows.
func (f *OccurrenceForm) Validate() error {
	if f.date.IsZero() {
		return invalid("OccurrenceDate", requiredFieldsMessage)
	}
	return check(occurrenceInput{
		CityID:                     strings.TrimSpace(f.CityID),
		ForensicServiceID:          strings.TrimSpace(f.ForensicServiceID),
		OccurrenceClassificationID: strings.TrimSpace(f.OccurrenceClassificationID),
		History:                    strings.TrimSpace(f.History),
		OccurrenceTime:             f.timeOfDay,
	}, nil, requiredFieldsMessage)
}

// MergeDateTime sets the hours and minutes of date from an HH:mm string,
// keeping the rest of date as is
func MergeDateTime(date time.Time, clock string) (time.Time, error) {
	if !hhmm.MatchString(clock) {
		return time.Time{}, fmt.Errorf("invalid time %q", clock)
	}
	h, _ := strconv.Atoi(clock[:2])
	m, _ := strconv.Atoi(clock[3:])
	return time.Date(date.Year(), date.Month(), date.Day(), h, m, date.Second(), date.Nanosecond(), date.Location()), nil
}

// FieldsMap turns the editor rows into the stored map. Rows without a key are
// dropped; nil means there is nothing to send.
func FieldsMap(rows []AdditionalField) map[string]string {
	out := map[string]string{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		out[key] = row.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Payload validates the form and builds the request body. Date and time are
// read even when disabled so an edit sends the stored value back unchanged.
func (f *OccurrenceForm) Payload() (models.OccurrencePayload, error) {
	if err := f.Validate(); err != nil {
		return models.OccurrencePayload{}, err
	}
	when, err := MergeDateTime(f.date, f.timeOfDay)
	if err != nil {
		return models.OccurrencePayload{}, invalid("OccurrenceTime", requiredFieldsMessage)
	}
	examTypes := f.ExamTypeIDs
	if examTypes == nil {
		examTypes = []string{}
	}
	return models.OccurrencePayload{
		ProcedureID:                optional(f.ProcedureID),
		ProcedureNumber:            optional(f.ProcedureNumber),
		OccurrenceDate:             &when,
		History:                    strings.TrimSpace(f.History),
		CityID:                     strings.TrimSpace(f.CityID),
		RequestingAuthorityID:      optional(f.RequestingAuthorityID),
		RequestingUnitID:           optional(f.RequestingUnitID),
		ResponsibleExpertID:        optional(f.ResponsibleExpertID),
		ForensicServiceID:          strings.TrimSpace(f.ForensicServiceID),
		OccurrenceClassificationID: strings.TrimSpace(f.OccurrenceClassificationID),
		ExamTypeIDs:                examTypes,
		AdditionalFields:           FieldsMap(f.AdditionalFields),
	}, nil
}

// Submit validates and saves the form, posting the outcome as a notice.
// Validation failures send nothing.
func (f *OccurrenceForm) Submit(ctx context.Context) (*models.GeneralOccurrence, error) {
	p, err := f.Payload()
	if err != nil {
		f.c.notify.Notify(Message(err, requiredFieldsMessage))
		return nil, err
	}

	var saved *models.GeneralOccurrence
	if f.IsEdit() {
		saved, err = f.c.Occurrences.Update(ctx, f.id, p)
	} else {
		saved, err = f.c.Occurrences.Create(ctx, p)
	}
	if err != nil {
		f.c.notify.Notify(ServerMessage(err, saveFailedMessage))
		return nil, err
	}
	if f.IsEdit() {
		f.c.notify.Notify("Ocorrência atualizada com sucesso!")
	} else {
		f.c.notify.Notify("Ocorrência criada com sucesso!")
	}
	return saved, nil
}
