package deadlines

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/forensic-case-api/models"
)

var (
	now    = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	window = 72 * time.Hour
)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestFlags(t *testing.T) {
	tests := []struct {
		name     string
		deadline *time.Time
		overdue  bool
		near     bool
	}{
		{"no deadline", nil, false, false},
		{"passed", at(-time.Minute), true, false},
		{"exactly now", at(0), false, true},
		{"inside window", at(48 * time.Hour), false, true},
		{"window edge", at(72 * time.Hour), false, true},
		{"far away", at(10 * 24 * time.Hour), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overdue, near := Flags(tt.deadline, now, window)
			assert.Equal(t, tt.overdue, overdue)
			assert.Equal(t, tt.near, near)
		})
	}
}

func TestStateDisplay(t *testing.T) {
	s := StateOf(true, true)
	assert.Equal(t, Overdue, s)
	assert.Equal(t, "error", s.Icon())
	assert.Equal(t, "warn", s.Color())
	assert.Equal(t, "Prazo esgotado!", s.Tooltip())

	s = StateOf(false, true)
	assert.Equal(t, "warning", s.Icon())
	assert.Equal(t, "accent", s.Color())

	s = StateOf(false, false)
	assert.Equal(t, "schedule", s.Icon())
	assert.Equal(t, "primary", s.Color())
	assert.Equal(t, "normal", s.String())
}

func TestValidateExtension(t *testing.T) {
	long := strings.Repeat("j", 20)
	assert.NoError(t, ValidateExtension(1, long))
	assert.NoError(t, ValidateExtension(365, long))
	assert.ErrorIs(t, ValidateExtension(0, long), ErrInvalidExtension)
	assert.ErrorIs(t, ValidateExtension(366, long), ErrInvalidExtension)
	assert.ErrorIs(t, ValidateExtension(10, long[:19]), ErrShortJustification)
	// accented characters count once
	assert.NoError(t, ValidateExtension(10, strings.Repeat("ç", 20)))
}

func TestExtendKeepsOriginalDeadline(t *testing.T) {
	first := models.OccurrenceMovement{Deadline: at(24 * time.Hour)}
	ext, err := Extend(&first, 10, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour).AddDate(0, 0, 10), ext.Deadline)
	assert.Equal(t, *first.Deadline, ext.OriginalDeadline)

	second := models.OccurrenceMovement{Deadline: &ext.Deadline, OriginalDeadline: &ext.OriginalDeadline, WasExtended: true}
	ext2, err := Extend(&second, 5, now)
	require.NoError(t, err)
	assert.Equal(t, ext.Deadline.AddDate(0, 0, 5), ext2.Deadline)
	assert.Equal(t, *first.Deadline, ext2.OriginalDeadline)
}

func TestExtendWithoutDeadline(t *testing.T) {
	ext, err := Extend(nil, 3, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 3), ext.Deadline)

	_, err = Extend(&models.OccurrenceMovement{}, 3, now)
	assert.ErrorIs(t, err, ErrNoDeadline)

	_, err = Extend(nil, 0, now)
	assert.ErrorIs(t, err, ErrInvalidExtension)
}

func TestLatestPicksNewestDeadlineMovement(t *testing.T) {
	older := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o1", Deadline: at(time.Hour), PerformedAt: now.Add(-2 * time.Hour)}
	newer := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o1", Deadline: at(5 * time.Hour), PerformedAt: now.Add(-time.Hour)}
	note := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o1", PerformedAt: now}
	other := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o2", Deadline: at(time.Hour), PerformedAt: now}

	latest := Latest([]models.OccurrenceMovement{older, note, newer, other})
	assert.Len(t, latest, 2)
	assert.Equal(t, newer.ID, latest["o1"].ID)
	assert.Equal(t, other.ID, latest["o2"].ID)
}

func TestPlanRefresh(t *testing.T) {
	expiring := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o1", Deadline: at(-time.Hour)}
	alreadyExpired := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o2", Deadline: at(-time.Hour), IsOverdue: true}
	approaching := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o3", Deadline: at(time.Hour)}
	calm := models.OccurrenceMovement{ID: primitive.NewObjectID(), OccurrenceID: "o4", Deadline: at(30 * 24 * time.Hour)}

	plan := PlanRefresh(map[string]models.OccurrenceMovement{
		"o1": expiring, "o2": alreadyExpired, "o3": approaching, "o4": calm,
	}, now, window)

	assert.Len(t, plan.Updates, 2)
	require.Len(t, plan.Expired, 1)
	exp := plan.Expired[0]
	assert.Equal(t, "o1", exp.OccurrenceID)
	assert.True(t, exp.IsSystemGenerated)
	assert.True(t, exp.IsOverdue)
	assert.Equal(t, SystemActor, exp.PerformedBy)
	assert.Equal(t, expiring.Deadline, exp.Deadline)

	for _, u := range plan.Updates {
		switch u.Movement.OccurrenceID {
		case "o1":
			assert.True(t, u.IsOverdue)
		case "o3":
			assert.True(t, u.IsNearDeadline)
		default:
			t.Errorf("unexpected update for %s", u.Movement.OccurrenceID)
		}
	}
}

func TestInitial(t *testing.T) {
	assert.Equal(t, time.Date(2025, 4, 9, 12, 0, 0, 0, time.UTC), Initial(now, 30))
}
