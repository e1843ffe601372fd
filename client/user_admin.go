package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/linesmerrill/forensic-case-api/models"
)

// UserAdmin drives the user management screen. Every successful action
// reloads the list.
type UserAdmin struct {
	c *Client

	mu    sync.Mutex
	query UserQuery
	users models.Page[models.User]
}

// NewUserAdmin creates the screen filtered by status; "" lists everyone
func NewUserAdmin(c *Client, status string) *UserAdmin {
	return &UserAdmin{c: c, query: UserQuery{ListQuery: ListQuery{Page: 1, Limit: DefaultPageSize}, Status: status}}
}

// SetFilter replaces the list filter; Load applies it
func (a *UserAdmin) SetFilter(q UserQuery) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.query = q
}

// Users returns the page currently shown
func (a *UserAdmin) Users() models.Page[models.User] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.users
}

// Load fetches the list. On failure the list is emptied and a notice posted.
func (a *UserAdmin) Load(ctx context.Context) error {
	a.mu.Lock()
	q := a.query
	a.mu.Unlock()

	page, err := a.c.Users.List(ctx, q)
	if err != nil {
		if StatusOf(err) == http.StatusForbidden {
			a.c.notify.Notify(moduleDeniedMessage)
		} else {
			a.c.notify.Notify(Message(err, "Falha ao carregar a lista de usuários."))
		}
		page = &models.Page[models.User]{Data: []models.User{}}
	}
	if page.Data == nil {
		page.Data = []models.User{}
	}
	a.mu.Lock()
	a.users = *page
	a.mu.Unlock()
	return err
}

func (a *UserAdmin) done(ctx context.Context, notice string) error {
	a.c.notify.Notify(notice)
	_ = a.Load(ctx)
	return nil
}

func (a *UserAdmin) fail(err error, fallback string) error {
	a.c.notify.Notify(Message(err, fallback))
	return err
}

// Approve activates a pending user with the role chosen in the dialog
func (a *UserAdmin) Approve(ctx context.Context, user models.User, in ApproveUserInput) error {
	if err := in.Validate(); err != nil {
		return a.fail(err, requiredFieldsMessage)
	}
	if _, err := a.c.Users.Approve(ctx, user.ID.Hex(), in.Role); err != nil {
		return a.fail(err, "Falha ao aprovar usuário.")
	}
	return a.done(ctx, fmt.Sprintf("Usuário %s aprovado!", user.Name))
}

// Reject refuses a pending user
func (a *UserAdmin) Reject(ctx context.Context, user models.User) error {
	if _, err := a.c.Users.Reject(ctx, user.ID.Hex()); err != nil {
		return a.fail(err, "Falha ao rejeitar usuário.")
	}
	return a.done(ctx, fmt.Sprintf("Usuário %s rejeitado.", user.Name))
}

// ToggleStatus switches an account between active and inactive. Pending and
// rejected accounts go through Approve and Reject instead.
func (a *UserAdmin) ToggleStatus(ctx context.Context, user models.User) error {
	var next string
	switch user.Status {
	case models.UserActive:
		next = models.UserInactive
	case models.UserInactive:
		next = models.UserActive
	default:
		return a.fail(invalid("status", "Usuários pendentes ou rejeitados não podem ser ativados por aqui."), requiredFieldsMessage)
	}
	if _, err := a.c.Users.Update(ctx, user.ID.Hex(), models.UpdateUserRequest{Status: &next}); err != nil {
		return a.fail(err, "Falha ao atualizar status.")
	}
	return a.done(ctx, fmt.Sprintf("Status de %s atualizado!", user.Name))
}

// LinkService links one forensic service to user
func (a *UserAdmin) LinkService(ctx context.Context, user models.User, service models.Resource) error {
	if _, err := a.c.Users.LinkForensicServices(ctx, user.ID.Hex(), service.ID.Hex()); err != nil {
		return a.fail(err, "Erro ao vincular serviço")
	}
	return a.done(ctx, fmt.Sprintf("%s vinculado a %s", user.Name, service.Name))
}

// UnlinkService removes one forensic service from user
func (a *UserAdmin) UnlinkService(ctx context.Context, user models.User, service models.Resource) error {
	if err := a.c.Users.UnlinkForensicService(ctx, user.ID.Hex(), service.ID.Hex()); err != nil {
		return a.fail(err, "Erro ao desvincular serviço")
	}
	return a.done(ctx, fmt.Sprintf("%s desvinculado de %s", user.Name, service.Name))
}
