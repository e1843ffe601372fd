// Package deadlines implements the occurrence deadline rules: overdue and
// near-deadline flags, extensions and the periodic flag refresh.
package deadlines

import (
	"errors"
	"fmt"
	"time"

	"github.com/linesmerrill/forensic-case-api/models"
)

// Extension limits
const (
	MinExtensionDays       = 1
	MaxExtensionDays       = 365
	MinJustificationLength = 20
)

var (
	// ErrInvalidExtension is returned when the extension is outside [1, 365] days
	ErrInvalidExtension = fmt.Errorf("extension days must be between %d and %d", MinExtensionDays, MaxExtensionDays)
	// ErrShortJustification is returned when the justification is too short
	ErrShortJustification = fmt.Errorf("justification must have at least %d characters", MinJustificationLength)
	// ErrNoDeadline is returned by Extend when the base movement has no deadline
	ErrNoDeadline = errors.New("occurrence has no deadline to extend")
)

// SystemActor performs every system generated movement
var SystemActor = models.PerformedBy{ID: "system", Name: "Sistema", Role: "system"}

// State is the derived deadline state of an open occurrence
type State int

const (
	// OnTrack means the deadline is further away than the near window
	OnTrack State = iota
	// Near means the deadline falls inside the near window
	Near
	// Overdue means the deadline has passed
	Overdue
)

// Flags computes the overdue and near-deadline flags for deadline at now.
// A nil deadline is neither.
func Flags(deadline *time.Time, now time.Time, window time.Duration) (overdue, near bool) {
	if deadline == nil {
		return false, false
	}
	if now.After(*deadline) {
		return true, false
	}
	return false, deadline.Sub(now) <= window
}

// StateOf maps the stored flags to a State; overdue wins over near
func StateOf(isOverdue, isNearDeadline bool) State {
	switch {
	case isOverdue:
		return Overdue
	case isNearDeadline:
		return Near
	default:
		return OnTrack
	}
}

// Icon is the material icon name shown for the state
func (s State) Icon() string {
	switch s {
	case Overdue:
		return "error"
	case Near:
		return "warning"
	default:
		return "schedule"
	}
}

// Color is the theme palette shown for the state
func (s State) Color() string {
	switch s {
	case Overdue:
		return "warn"
	case Near:
		return "accent"
	default:
		return "primary"
	}
}

// Tooltip is the hover text shown for the state
func (s State) Tooltip() string {
	switch s {
	case Overdue:
		return "Prazo esgotado!"
	case Near:
		return "Prazo próximo do vencimento"
	default:
		return "Prazo dentro do normal"
	}
}

func (s State) String() string {
	switch s {
	case Overdue:
		return "overdue"
	case Near:
		return "warning"
	default:
		return "normal"
	}
}

// Initial is the deadline given to a newly registered occurrence
func Initial(createdAt time.Time, days int) time.Time {
	return createdAt.AddDate(0, 0, days)
}

// ValidateExtension checks the extension input limits
func ValidateExtension(days int, justification string) error {
	if days < MinExtensionDays || days > MaxExtensionDays {
		return ErrInvalidExtension
	}
	if len([]rune(justification)) < MinJustificationLength {
		return ErrShortJustification
	}
	return nil
}

// Extension is the outcome of extending a deadline
type Extension struct {
	Deadline         time.Time
	OriginalDeadline time.Time
}

// Extend pushes the deadline of current by days. The original deadline is
// kept across repeated extensions. A nil current movement means the
// occurrence never had a deadline, in which case the extension counts from now.
func Extend(current *models.OccurrenceMovement, days int, now time.Time) (Extension, error) {
	if days < MinExtensionDays || days > MaxExtensionDays {
		return Extension{}, ErrInvalidExtension
	}
	if current == nil {
		d := now.AddDate(0, 0, days)
		return Extension{Deadline: d, OriginalDeadline: now}, nil
	}
	if current.Deadline == nil {
		return Extension{}, ErrNoDeadline
	}
	original := *current.Deadline
	if current.OriginalDeadline != nil {
		original = *current.OriginalDeadline
	}
	return Extension{
		Deadline:         current.Deadline.AddDate(0, 0, days),
		OriginalDeadline: original,
	}, nil
}

// Latest returns, per occurrence id, the most recent movement that carries a
// deadline.
func Latest(movements []models.OccurrenceMovement) map[string]models.OccurrenceMovement {
	latest := make(map[string]models.OccurrenceMovement)
	for _, m := range movements {
		if m.Deadline == nil {
			continue
		}
		cur, ok := latest[m.OccurrenceID]
		if !ok || isNewer(m, cur) {
			latest[m.OccurrenceID] = m
		}
	}
	return latest
}

func isNewer(a, b models.OccurrenceMovement) bool {
	if a.PerformedAt.Equal(b.PerformedAt) {
		return a.ID.Hex() > b.ID.Hex()
	}
	return a.PerformedAt.After(b.PerformedAt)
}

// FlagUpdate is a flag change for one stored movement
type FlagUpdate struct {
	Movement       models.OccurrenceMovement
	IsOverdue      bool
	IsNearDeadline bool
}

// Plan lists what a refresh must write
type Plan struct {
	Updates []FlagUpdate
	Expired []models.OccurrenceMovement
}

// PlanRefresh recomputes the flags of the latest deadline movements of open
// occurrences. The first time an occurrence turns overdue a system generated
// movement is planned so the history records the expiry.
func PlanRefresh(latest map[string]models.OccurrenceMovement, now time.Time, window time.Duration) Plan {
	var plan Plan
	for occurrenceID, m := range latest {
		overdue, near := Flags(m.Deadline, now, window)
		if overdue == m.IsOverdue && near == m.IsNearDeadline {
			continue
		}
		plan.Updates = append(plan.Updates, FlagUpdate{Movement: m, IsOverdue: overdue, IsNearDeadline: near})
		if overdue && !m.IsOverdue {
			plan.Expired = append(plan.Expired, models.OccurrenceMovement{
				OccurrenceID:      occurrenceID,
				Description:       "Prazo esgotado sem conclusão da ocorrência.",
				Deadline:          m.Deadline,
				OriginalDeadline:  m.OriginalDeadline,
				IsOverdue:         true,
				PerformedBy:       SystemActor,
				PerformedAt:       now,
				IsSystemGenerated: true,
			})
		}
	}
	return plan
}
