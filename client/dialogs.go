package client

import (
	"context"
	"strings"

	"github.com/linesmerrill/forensic-case-api/models"
	"github.com/linesmerrill/forensic-case-api/policy"
)

// ExtendDeadlineInput is the extend deadline dialog
type ExtendDeadlineInput struct {
	ExtensionDays int    `validate:"min=1,max=365"`
	Justification string `validate:"min=20"`
}

// Validate trims the justification and checks the limits
func (in *ExtendDeadlineInput) Validate() error {
	in.Justification = strings.TrimSpace(in.Justification)
	return check(*in, map[string]string{
		"ExtensionDays": "A prorrogação deve ser de 1 a 365 dias.",
		"Justification": "A justificativa deve ter pelo menos 20 caracteres.",
	}, requiredFieldsMessage)
}

// AddMovementInput is the add movement dialog
type AddMovementInput struct {
	OccurrenceID string `validate:"required"`
	Description  string `validate:"min=10"`
}

// Validate trims the description and checks its length
func (in *AddMovementInput) Validate() error {
	in.Description = strings.TrimSpace(in.Description)
	return check(*in, map[string]string{
		"Description": "A descrição deve ter pelo menos 10 caracteres.",
	}, requiredFieldsMessage)
}

// ChangeStatusInput is the change status dialog. Only the closing statuses
// are offered.
type ChangeStatusInput struct {
	Status       string `validate:"oneof=CONCLUIDA CANCELADA"`
	Observations string
}

// Validate trims the observations and checks the status
func (in *ChangeStatusInput) Validate() error {
	in.Observations = strings.TrimSpace(in.Observations)
	return check(*in, map[string]string{
		"Status": "Selecione um status válido.",
	}, requiredFieldsMessage)
}

// ApproveUserInput is the approve user dialog
type ApproveUserInput struct {
	Role string `validate:"approvable"`
}

// Validate checks the role is one that approval may grant
func (in *ApproveUserInput) Validate() error {
	return check(*in, map[string]string{
		"Role": "Selecione um perfil antes de aprovar o usuário.",
	}, requiredFieldsMessage)
}

// Workflow runs the movement dialogs of one occurrence and posts their
// outcome as notices
type Workflow struct {
	c *Client
}

// Workflow returns the movement workflow of the client session
func (c *Client) Workflow() *Workflow {
	return &Workflow{c: c}
}

func (w *Workflow) fail(err error, fallback string) error {
	w.c.notify.Notify(Message(err, fallback))
	return err
}

// AddMovement appends a note to the history of an occurrence. It changes
// neither status nor deadline.
func (w *Workflow) AddMovement(ctx context.Context, in AddMovementInput) (*models.OccurrenceMovement, error) {
	if err := in.Validate(); err != nil {
		return nil, w.fail(err, requiredFieldsMessage)
	}
	if !w.c.session.Capabilities().CanAddMovement {
		return nil, w.fail(ErrNotAllowed, permissionDeniedMessage)
	}
	m, err := w.c.Movements.Create(ctx, models.CreateMovementRequest{
		OccurrenceID: in.OccurrenceID,
		Description:  in.Description,
	})
	if err != nil {
		return nil, w.fail(err, "Erro ao adicionar movimentação")
	}
	w.c.notify.Notify("Movimentação adicionada com sucesso!")
	return m, nil
}

// ExtendDeadline pushes the deadline of o. Experts may only extend their own
// occurrences; the check runs before any request.
func (w *Workflow) ExtendDeadline(ctx context.Context, o models.GeneralOccurrence, in ExtendDeadlineInput) (*models.OccurrenceMovement, error) {
	if err := in.Validate(); err != nil {
		return nil, w.fail(err, requiredFieldsMessage)
	}
	if !w.c.session.CanExtendDeadline(o) {
		return nil, w.fail(ErrNotAllowed, permissionDeniedMessage)
	}
	m, err := w.c.Movements.ExtendDeadline(ctx, o.ID.Hex(), models.ExtendDeadlineRequest{
		ExtensionDays: in.ExtensionDays,
		Justification: in.Justification,
	})
	if err != nil {
		return nil, w.fail(err, "Falha ao prorrogar o prazo.")
	}
	w.c.notify.Notify("Prazo prorrogado com sucesso!")
	return m, nil
}

// ChangeStatus closes o as concluded or cancelled
func (w *Workflow) ChangeStatus(ctx context.Context, o models.GeneralOccurrence, in ChangeStatusInput) (*models.GeneralOccurrence, error) {
	if err := in.Validate(); err != nil {
		return nil, w.fail(err, requiredFieldsMessage)
	}
	if !w.c.session.Capabilities().CanChangeStatus {
		return nil, w.fail(ErrNotAllowed, permissionDeniedMessage)
	}
	updated, err := w.c.Occurrences.ChangeStatus(ctx, o.ID.Hex(), in.Status, optional(in.Observations))
	if err != nil {
		return nil, w.fail(err, "Falha ao alterar o status.")
	}
	w.c.notify.Notify("Status atualizado com sucesso!")
	return updated, nil
}

// EditMovement is not supported; no request is sent
func (w *Workflow) EditMovement(ctx context.Context, m models.OccurrenceMovement) error {
	return w.fail(ErrMovementImmutable, movementImmutableMessage)
}

// DeleteMovement is not supported; no request is sent
func (w *Workflow) DeleteMovement(ctx context.Context, m models.OccurrenceMovement) error {
	return w.fail(ErrMovementImmutable, movementImmutableMessage)
}

// RefreshDeadlineFlags asks the API to recompute the deadline flags
func (w *Workflow) RefreshDeadlineFlags(ctx context.Context) (*models.RefreshFlagsResponse, error) {
	res, err := w.c.Movements.RefreshDeadlineFlags(ctx)
	if err != nil {
		return nil, w.fail(err, "Erro ao atualizar flags")
	}
	w.c.notify.Notify("Flags de prazo atualizadas!")
	return res, nil
}

// ApprovableRoles are the roles offered by the approve dialog
func ApprovableRoles() []string {
	return policy.ApprovableRoles()
}
