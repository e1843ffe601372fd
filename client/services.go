package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/linesmerrill/forensic-case-api/models"
)

// ResourceKind is the API path of a master-data collection
type ResourceKind string

// Master-data kinds
const (
	Cities                    ResourceKind = "cities"
	Procedures                ResourceKind = "procedures"
	Authorities               ResourceKind = "authorities"
	ExamTypes                 ResourceKind = "exam-types"
	ForensicServices          ResourceKind = "forensic-services"
	RequestingUnits           ResourceKind = "requesting-units"
	OccurrenceClassifications ResourceKind = "occurrence-classifications"
	Locations                 ResourceKind = "locations"
)

// ListQuery holds the paging and search parameters common to the listings.
// Zero values are left out of the query string.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// AuthService logs the session in and out
type AuthService struct {
	c *Client
}

// Login exchanges credentials for a token and stores it in the session
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	var resp models.LoginResponse
	err := s.c.do(ctx, http.MethodPost, "/auth/login", nil, models.LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return err
	}
	return s.c.session.Login(resp.AccessToken)
}

// Logout revokes the token server side and always clears the session, even
// when the server cannot be reached
func (s *AuthService) Logout(ctx context.Context) error {
	var err error
	if s.c.session.IsLoggedIn() {
		err = s.c.do(ctx, http.MethodDelete, "/auth/logout", nil, nil, nil)
	}
	s.c.session.Logout()
	return err
}

// Register asks for a new account; it stays pending until approved
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	var user models.User
	if err := s.c.do(ctx, http.MethodPost, "/users", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Profile returns the logged in account
func (s *AuthService) Profile(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := s.c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserQuery filters the user listing
type UserQuery struct {
	ListQuery
	Status string
	Role   string
}

// UserService manages accounts
type UserService struct {
	c *Client
}

// List pages through users
func (s *UserService) List(ctx context.Context, q UserQuery) (*models.Page[models.User], error) {
	v := q.values()
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	var page models.Page[models.User]
	if err := s.c.do(ctx, http.MethodGet, "/users", v, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one user
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Update changes profile fields, role or the active/inactive status
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := s.c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Approve activates a pending user with role
func (s *UserService) Approve(ctx context.Context, id, role string) (*models.User, error) {
	var user models.User
	err := s.c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/approve", nil, models.ApproveUserRequest{Role: role}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Reject refuses a pending user
func (s *UserService) Reject(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id)+"/reject", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ForensicServices lists the services linked to a user
func (s *UserService) ForensicServices(ctx context.Context, id string) (*models.UserForensicServices, error) {
	var out models.UserForensicServices
	if err := s.c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id)+"/forensic-services", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LinkForensicServices adds services to a user
func (s *UserService) LinkForensicServices(ctx context.Context, id string, serviceIDs ...string) (*models.UserForensicServices, error) {
	var out models.UserForensicServices
	req := models.LinkForensicServicesRequest{ForensicServiceIDs: serviceIDs}
	if err := s.c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(id)+"/forensic-services", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnlinkForensicService removes one service from a user
func (s *UserService) UnlinkForensicService(ctx context.Context, id, serviceID string) error {
	path := "/users/" + url.PathEscape(id) + "/forensic-services/" + url.PathEscape(serviceID)
	return s.c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// ResourceService manages one master-data kind
type ResourceService struct {
	c    *Client
	kind ResourceKind
}

func (s *ResourceService) path(id string) string {
	if id == "" {
		return "/" + string(s.kind)
	}
	return "/" + string(s.kind) + "/" + url.PathEscape(id)
}

// Kind returns the collection this service works on
func (s *ResourceService) Kind() ResourceKind {
	return s.kind
}

// List pages through the records. group only applies to classifications.
func (s *ResourceService) List(ctx context.Context, q ListQuery, group string) (*models.Page[models.Resource], error) {
	v := q.values()
	if group != "" {
		v.Set("group", group)
	}
	var page models.Page[models.Resource]
	if err := s.c.do(ctx, http.MethodGet, s.path(""), v, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one record
func (s *ResourceService) Get(ctx context.Context, id string) (*models.Resource, error) {
	var out models.Resource
	if err := s.c.do(ctx, http.MethodGet, s.path(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a record; a duplicate name answers 409
func (s *ResourceService) Create(ctx context.Context, req models.ResourceRequest) (*models.Resource, error) {
	var out models.Resource
	if err := s.c.do(ctx, http.MethodPost, s.path(""), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches a record
func (s *ResourceService) Update(ctx context.Context, id string, req models.ResourceRequest) (*models.Resource, error) {
	var out models.Resource
	if err := s.c.do(ctx, http.MethodPatch, s.path(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a record
func (s *ResourceService) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, s.path(id), nil, nil, nil)
}

// OccurrenceQuery filters the occurrence listing
type OccurrenceQuery struct {
	ListQuery
	ForensicServiceID string
	OnlyMine          bool
}

func (q OccurrenceQuery) values() url.Values {
	v := q.ListQuery.values()
	if q.ForensicServiceID != "" {
		v.Set("forensicServiceId", q.ForensicServiceID)
	}
	if q.OnlyMine {
		v.Set("onlyMine", "true")
	}
	return v
}

// OccurrenceService manages occurrences
type OccurrenceService struct {
	c *Client
}

// List pages through occurrences, newest first
func (s *OccurrenceService) List(ctx context.Context, q OccurrenceQuery) (*models.Page[models.GeneralOccurrence], error) {
	var page models.Page[models.GeneralOccurrence]
	if err := s.c.do(ctx, http.MethodGet, "/general-occurrences", q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Mine lists the occurrences assigned to the logged in user
func (s *OccurrenceService) Mine(ctx context.Context) ([]models.GeneralOccurrence, error) {
	var out []models.GeneralOccurrence
	if err := s.c.do(ctx, http.MethodGet, "/general-occurrences/my-occurrences", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByStatus lists the occurrences in status
func (s *OccurrenceService) ByStatus(ctx context.Context, status string) ([]models.GeneralOccurrence, error) {
	var out []models.GeneralOccurrence
	v := url.Values{"status": {status}}
	if err := s.c.do(ctx, http.MethodGet, "/general-occurrences/filter/by-status", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns the dashboard summary
func (s *OccurrenceService) Stats(ctx context.Context) (*models.OccurrenceStats, error) {
	var out models.OccurrenceStats
	if err := s.c.do(ctx, http.MethodGet, "/general-occurrences/stats/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one occurrence
func (s *OccurrenceService) Get(ctx context.Context, id string) (*models.GeneralOccurrence, error) {
	var out models.GeneralOccurrence
	if err := s.c.do(ctx, http.MethodGet, "/general-occurrences/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create registers an occurrence
func (s *OccurrenceService) Create(ctx context.Context, p models.OccurrencePayload) (*models.GeneralOccurrence, error) {
	var out models.GeneralOccurrence
	if err := s.c.do(ctx, http.MethodPost, "/general-occurrences", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update patches an occurrence with every field of p
func (s *OccurrenceService) Update(ctx context.Context, id string, p models.OccurrencePayload) (*models.GeneralOccurrence, error) {
	return s.patch(ctx, id, p)
}

type statusChange struct {
	Status       string  `json:"status"`
	Observations *string `json:"statusChangeObservations,omitempty"`
}

// ChangeStatus moves an occurrence to status; the API records the change as a
// movement
func (s *OccurrenceService) ChangeStatus(ctx context.Context, id, status string, observations *string) (*models.GeneralOccurrence, error) {
	return s.patch(ctx, id, statusChange{Status: status, Observations: observations})
}

type lockChange struct {
	IsLocked bool `json:"isLocked"`
}

// SetLocked locks or unlocks an occurrence for editing. Only administrators
// may do it.
func (s *OccurrenceService) SetLocked(ctx context.Context, id string, locked bool) (*models.GeneralOccurrence, error) {
	return s.patch(ctx, id, lockChange{IsLocked: locked})
}

func (s *OccurrenceService) patch(ctx context.Context, id string, body interface{}) (*models.GeneralOccurrence, error) {
	var out models.GeneralOccurrence
	if err := s.c.do(ctx, http.MethodPatch, "/general-occurrences/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an occurrence
func (s *OccurrenceService) Delete(ctx context.Context, id string) error {
	return s.c.do(ctx, http.MethodDelete, "/general-occurrences/"+url.PathEscape(id), nil, nil, nil)
}

// MovementService reads and appends occurrence movements
type MovementService struct {
	c *Client
}

// Create appends a movement
func (s *MovementService) Create(ctx context.Context, req models.CreateMovementRequest) (*models.OccurrenceMovement, error) {
	var out models.OccurrenceMovement
	if err := s.c.do(ctx, http.MethodPost, "/occurrence-movements", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForOccurrence lists the movements of one occurrence, newest first
func (s *MovementService) ForOccurrence(ctx context.Context, occurrenceID string) ([]models.OccurrenceMovement, error) {
	var out []models.OccurrenceMovement
	path := "/occurrence-movements/occurrence/" + url.PathEscape(occurrenceID)
	if err := s.c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeadlineStatus lists the deadline state of every open occurrence
func (s *MovementService) DeadlineStatus(ctx context.Context) ([]models.DeadlineStatus, error) {
	var out []models.DeadlineStatus
	if err := s.c.do(ctx, http.MethodGet, "/occurrence-movements/deadline-status", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeadlineStatusPage is the paged variant of DeadlineStatus
func (s *MovementService) DeadlineStatusPage(ctx context.Context, q ListQuery) (*models.Page[models.DeadlineStatus], error) {
	if q.Page < 1 {
		q.Page = 1
	}
	var page models.Page[models.DeadlineStatus]
	if err := s.c.do(ctx, http.MethodGet, "/occurrence-movements/deadline-status", q.values(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ExtendDeadline pushes the deadline of an occurrence
func (s *MovementService) ExtendDeadline(ctx context.Context, occurrenceID string, req models.ExtendDeadlineRequest) (*models.OccurrenceMovement, error) {
	var out models.OccurrenceMovement
	path := "/occurrence-movements/extend-deadline/" + url.PathEscape(occurrenceID)
	if err := s.c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshDeadlineFlags asks the API to recompute the overdue and near
// deadline flags now
func (s *MovementService) RefreshDeadlineFlags(ctx context.Context) (*models.RefreshFlagsResponse, error) {
	var out models.RefreshFlagsResponse
	if err := s.c.do(ctx, http.MethodPost, "/occurrence-movements/update-deadline-flags", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update is not supported: movements are append-only. No request is sent.
func (s *MovementService) Update(ctx context.Context, id string, req models.CreateMovementRequest) error {
	return ErrMovementImmutable
}

// Delete is not supported: movements are append-only. No request is sent.
func (s *MovementService) Delete(ctx context.Context, id string) error {
	return ErrMovementImmutable
}
