package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/forensic-case-api/api"
	"github.com/linesmerrill/forensic-case-api/databases"
	"github.com/linesmerrill/forensic-case-api/deadlines"
	"github.com/linesmerrill/forensic-case-api/models"
)

const refreshJob = "deadline_flags_job"

// Publisher receives the change events produced by a refresh
type Publisher interface {
	Publish(models.LiveEvent)
}

// Refresher recomputes the overdue and near-deadline flags of every open
// occurrence
type Refresher struct {
	Occurrences databases.OccurrenceDatabase
	Movements   databases.MovementDatabase
	Window      time.Duration
	Live        Publisher
	Now         func() time.Time
}

// Refresh loads the latest deadline movement of each open occurrence, writes
// the flag changes and records the expiry of newly overdue occurrences
func (rf *Refresher) Refresh(ctx context.Context) (models.RefreshFlagsResponse, error) {
	now := time.Now()
	if rf.Now != nil {
		now = rf.Now()
	}

	filter := databases.NotDeleted()
	filter["status"] = models.StatusOpen
	open, err := rf.Occurrences.Find(ctx, filter)
	if err != nil {
		return models.RefreshFlagsResponse{}, fmt.Errorf("failed to load open occurrences: %w", err)
	}

	latest := make(map[string]models.OccurrenceMovement, len(open))
	for _, o := range open {
		m, err := rf.Movements.LatestDeadline(ctx, o.ID.Hex())
		if err != nil {
			return models.RefreshFlagsResponse{}, fmt.Errorf("failed to load deadline of %s: %w", o.ID.Hex(), err)
		}
		if m != nil {
			latest[o.ID.Hex()] = *m
		}
	}

	plan := deadlines.PlanRefresh(latest, now, rf.Window)
	for _, u := range plan.Updates {
		if err := rf.Movements.UpdateFlags(ctx, u.Movement, u.IsOverdue, u.IsNearDeadline); err != nil {
			return models.RefreshFlagsResponse{}, fmt.Errorf("failed to update flags of %s: %w", u.Movement.ID.Hex(), err)
		}
	}
	for _, e := range plan.Expired {
		if _, err := rf.Movements.InsertOne(ctx, e); err != nil {
			return models.RefreshFlagsResponse{}, fmt.Errorf("failed to record expiry of %s: %w", e.OccurrenceID, err)
		}
		if rf.Live != nil {
			rf.Live.Publish(models.LiveEvent{Type: "movement.created", OccurrenceID: e.OccurrenceID})
		}
	}

	api.RecordDeadlineRefresh(len(plan.Updates), len(plan.Expired))
	return models.RefreshFlagsResponse{
		Message: fmt.Sprintf("Flags de prazo atualizados: %d alterados, %d vencidos.", len(plan.Updates), len(plan.Expired)),
		Updated: len(plan.Updates),
		Expired: len(plan.Expired),
	}, nil
}

// Scheduler runs the deadline flag refresh on a cron schedule
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	Refresher  *Refresher
	LockDB     databases.LockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance. lockDB may be nil when a
// single instance runs.
func NewScheduler(refresher *Refresher, schedule string, lockDB databases.LockDatabase) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		schedule:   schedule,
		Refresher:  refresher,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start registers the refresh job and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.refreshDeadlineFlags); err != nil {
		zap.S().Errorw("failed to register deadline refresh job", "schedule", s.schedule, "error", err)
		return err
	}
	s.cron.Start()
	zap.S().Infow("deadline scheduler started", "schedule", s.schedule, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("deadline scheduler stopped")
}

func (s *Scheduler) refreshDeadlineFlags() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if s.LockDB != nil {
		acquired, err := s.LockDB.TryAcquireLock(ctx, refreshJob, s.instanceID, 10*time.Minute)
		if err != nil {
			zap.S().Errorw("failed to acquire lock for deadline refresh", "error", err)
			return
		}
		if !acquired {
			zap.S().Debug("deadline refresh already running on another instance, skipping")
			return
		}
		defer func() {
			if err := s.LockDB.ReleaseLock(ctx, refreshJob, s.instanceID); err != nil {
				zap.S().Warnw("failed to release deadline refresh lock", "error", err)
			}
		}()
	}

	res, err := s.Refresher.Refresh(ctx)
	if err != nil {
		zap.S().Errorw("deadline refresh failed", "error", err)
		return
	}
	zap.S().Infow("deadline refresh complete", "updated", res.Updated, "expired", res.Expired, "instance", s.instanceID)
}
