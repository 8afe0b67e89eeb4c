package service

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/util"
	"edu_bridge_backend/pkg/logger"
	"edu_bridge_backend/pkg/monitoring"
	"edu_bridge_backend/pkg/tracing"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressWriter persists progress rows under last-write-wins on sync_token.
type ProgressWriter interface {
	UpsertIfNotOlder(ctx context.Context, rec *model.ProgressRecord) (*model.ProgressRecord, bool, error)
}

// AssignmentFeed lists assignments created at or after a cursor, oldest first.
type AssignmentFeed interface {
	ListSince(ctx context.Context, since time.Time, classID *string) ([]model.Assignment, error)
}

type ProfileReader interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// changeApplier applies one client change of a given entity kind.
type changeApplier func(ctx context.Context, userID string, index int, change model.ChangeRecord) (model.ChangeResult, *model.Conflict)

// SyncService reconciles a batch of offline client changes with the server
// and returns the server changes the client has not seen yet.
type SyncService struct {
	Progress    ProgressWriter
	Assignments AssignmentFeed
	Profiles    ProfileReader

	settings atomic.Pointer[config.SyncConfig]
	appliers map[string]changeApplier
	now      func() time.Time
}

func NewSyncService(progress ProgressWriter, assignments AssignmentFeed, profiles ProfileReader, cfg config.SyncConfig) *SyncService {
	s := &SyncService{
		Progress:    progress,
		Assignments: assignments,
		Profiles:    profiles,
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.appliers = map[string]changeApplier{
		model.EntityProgress: s.applyProgress,
	}
	s.UpdateSettings(cfg)
	return s
}

// UpdateSettings swaps the limits used by subsequent calls.
func (s *SyncService) UpdateSettings(cfg config.SyncConfig) {
	s.settings.Store(&cfg)
}

func (s *SyncService) Settings() config.SyncConfig {
	return *s.settings.Load()
}

// Sync applies req.Changes on behalf of userID in input order, then returns
// every assignment at or after req.LastSync.
//
// A failing change never aborts the batch; it is reported in Results.
// Already applied changes stay committed if the catch-up query fails, and
// that failure is returned to the caller.
func (s *SyncService) Sync(ctx context.Context, userID string, req *model.SyncRequest) (*model.SyncResult, error) {
	settings := s.Settings()
	if len(req.Changes) > settings.MaxChanges {
		return nil, fmt.Errorf("%w: got %d, limit is %d", util.ErrTooManyChanges, len(req.Changes), settings.MaxChanges)
	}

	cursor, err := util.ParseCursor(req.LastSync)
	if err != nil {
		return nil, err
	}

	results, conflicts := s.apply(ctx, userID, req.Changes)

	// Taken before the catch-up read so rows landing during the read are
	// returned again next time rather than skipped. Millisecond precision
	// matches the datetime(3) columns on mysql.
	syncToken := s.now().Truncate(time.Millisecond)

	serverChanges, err := s.catchUp(ctx, userID, cursor, settings)
	if err != nil {
		logger.Log.Error("sync catch-up failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	counts := lo.CountValuesBy(results, func(r model.ChangeResult) model.ChangeStatus { return r.Status })
	logger.Log.Info("sync completed",
		zap.String("user_id", userID),
		zap.Time("cursor", cursor),
		zap.Int("synced", counts[model.ChangeSynced]),
		zap.Int("rejected", counts[model.ChangeRejected]),
		zap.Int("conflicts", counts[model.ChangeConflict]),
		zap.Int("server_changes", len(serverChanges)),
	)

	return &model.SyncResult{
		SyncToken: util.FormatTimestamp(syncToken),
		Changes:   serverChanges,
		Results:   results,
		Conflicts: conflicts,
	}, nil
}

func (s *SyncService) apply(ctx context.Context, userID string, changes []model.ChangeRecord) ([]model.ChangeResult, []model.Conflict) {
	ctx, span := tracing.Tracer.Start(ctx, "sync.apply")
	defer span.End()
	span.SetAttributes(attribute.Int("sync.changes", len(changes)))

	results := make([]model.ChangeResult, 0, len(changes))
	conflicts := make([]model.Conflict, 0)

	for i, change := range changes {
		applier, ok := s.appliers[change.Entity]
		var (
			result   model.ChangeResult
			conflict *model.Conflict
		)
		switch {
		case change.Malformed != "":
			result = rejected(i, change.Entity, fmt.Errorf("%w: %s", util.ErrInvalidChange, change.Malformed))
		case ok:
			result, conflict = applier(ctx, userID, i, change)
		default:
			result = rejected(i, change.Entity, fmt.Errorf("%w %q", util.ErrUnknownEntity, change.Entity))
		}

		if result.Status == model.ChangeRejected {
			logger.Log.Warn("sync change rejected",
				zap.String("user_id", userID),
				zap.Int("index", i),
				zap.String("entity", change.Entity),
				zap.String("reason", result.Reason),
			)
		}
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
		}
		monitoring.SyncChanges.WithLabelValues(metricEntity(change.Entity, ok), string(result.Status)).Inc()
		results = append(results, result)
	}
	return results, conflicts
}

// metricEntity keeps client-controlled entity names out of metric labels.
func metricEntity(entity string, known bool) string {
	if known {
		return entity
	}
	return "unknown"
}

func (s *SyncService) catchUp(ctx context.Context, userID string, cursor time.Time, settings config.SyncConfig) ([]model.ServerChange, error) {
	ctx, span := tracing.Tracer.Start(ctx, "sync.catch_up")
	defer span.End()

	var classID *string
	if settings.ClassScopedCatchUp {
		profile, err := s.Profiles.FindByID(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load profile for catch-up: %w", err)
		}
		if profile == nil || profile.ClassID == nil {
			monitoring.SyncServerChanges.Observe(0)
			return []model.ServerChange{}, nil
		}
		classID = profile.ClassID
	}

	assignments, err := s.Assignments.ListSince(ctx, cursor, classID)
	if err != nil {
		return nil, fmt.Errorf("catch-up query: %w", err)
	}

	changes := assignmentChanges(assignments, cursor)
	span.SetAttributes(attribute.Int("sync.server_changes", len(changes)))
	monitoring.SyncServerChanges.Observe(float64(len(changes)))
	return changes, nil
}

// assignmentChanges maps assignments to server changes ordered by
// (assigned_at, id), dropping anything before the cursor.
func assignmentChanges(assignments []model.Assignment, cursor time.Time) []model.ServerChange {
	visible := lo.Filter(assignments, func(a model.Assignment, _ int) bool {
		return !a.AssignedAt.Before(cursor)
	})
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].AssignedAt.Equal(visible[j].AssignedAt) {
			return visible[i].ID < visible[j].ID
		}
		return visible[i].AssignedAt.Before(visible[j].AssignedAt)
	})
	return lo.Map(visible, func(a model.Assignment, _ int) model.ServerChange {
		assignment := a
		return model.ServerChange{
			Entity:    model.EntityAssignment,
			ID:        a.ID,
			Data:      &assignment,
			Timestamp: a.AssignedAt.UTC(),
		}
	})
}
