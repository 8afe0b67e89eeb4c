package service

import (
	"context"
	"edu_bridge_backend/internal/config"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/util"
	"errors"
	"testing"
	"time"
)

func newTestSyncService(store *testStore, cfg config.SyncConfig) *SyncService {
	if cfg.MaxChanges == 0 {
		cfg.MaxChanges = 100
	}
	return NewSyncService(store.Progress, store.Assignments, store.Users, cfg)
}

func progress(lessonID string, percent interface{}, timestamp string) model.ChangeRecord {
	return model.ChangeRecord{
		Entity:    model.EntityProgress,
		Data:      map[string]interface{}{"lesson_id": lessonID, "progress_percent": percent},
		Timestamp: timestamp,
	}
}

func TestSyncAppliesCompletedProgress(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{
		Changes: []model.ChangeRecord{progress("L1", 100, "2024-01-01T00:00:00Z")},
	})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if len(result.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(result.Results))
	}
	res := result.Results[0]
	if res.Entity != model.EntityProgress || res.Status != model.ChangeSynced || res.ID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	rec, err := store.Progress.FindByStudentAndLesson(context.Background(), "U1", "L1")
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if rec.ID != res.ID {
		t.Fatalf("result id %s does not match record %s", res.ID, rec.ID)
	}
	if rec.Status != model.ProgressCompleted || rec.CompletedAt == nil {
		t.Fatalf("expected completed record with completed_at, got %+v", rec)
	}
	if !rec.CompletedAt.Equal(mustTime(t, "2024-01-01T00:00:00Z")) {
		t.Fatalf("completed_at should default to the change timestamp, got %v", rec.CompletedAt)
	}
	if rec.SyncToken == nil || !rec.SyncToken.Equal(mustTime(t, "2024-01-01T00:00:00Z")) {
		t.Fatalf("sync_token should be the change timestamp, got %v", rec.SyncToken)
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(result.Conflicts))
	}
}

func TestSyncStartedProgressHasNoCompletion(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})

	change := progress("L1", 40, "2024-01-01T00:00:00Z")
	change.Data["completed_at"] = "2024-01-01T00:00:00Z"
	if _, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{change}}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	rec, err := store.Progress.FindByStudentAndLesson(context.Background(), "U1", "L1")
	if err != nil {
		t.Fatalf("find record: %v", err)
	}
	if rec.Status != model.ProgressStarted || rec.CompletedAt != nil {
		t.Fatalf("expected started record without completed_at, got %+v", rec)
	}
}

func TestSyncReturnsAssignmentsSinceCursor(t *testing.T) {
	store := setupStore(t)
	store.addLesson(t, "L1", map[string]interface{}{"en": "Intro"})
	store.addAssignment(t, "A-feb", "C1", "L1", mustTime(t, "2024-02-01T00:00:00Z"))
	store.addAssignment(t, "A-mar", "C1", "L1", mustTime(t, "2024-03-01T00:00:00Z"))
	svc := newTestSyncService(store, config.SyncConfig{})

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{LastSync: strPtr("2024-02-15")})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if len(result.Changes) != 1 {
		t.Fatalf("expected 1 server change, got %d", len(result.Changes))
	}
	change := result.Changes[0]
	if change.Entity != model.EntityAssignment || change.ID != "A-mar" {
		t.Fatalf("unexpected server change: %+v", change)
	}
	if !change.Timestamp.Equal(mustTime(t, "2024-03-01T00:00:00Z")) {
		t.Fatalf("timestamp should be assigned_at, got %v", change.Timestamp)
	}
	assignment, ok := change.Data.(*model.Assignment)
	if !ok || assignment.Lesson == nil || assignment.Lesson.ID != "L1" {
		t.Fatalf("expected assignment with lesson joined, got %#v", change.Data)
	}
	if len(result.Results) != 0 {
		t.Fatalf("expected no results for an empty batch, got %d", len(result.Results))
	}
}

func TestSyncCatchUpFromEpochIsOrdered(t *testing.T) {
	store := setupStore(t)
	store.addLesson(t, "L1", nil)
	store.addAssignment(t, "z", "C1", "L1", mustTime(t, "2024-01-01T00:00:00Z"))
	store.addAssignment(t, "b", "C1", "L1", mustTime(t, "2024-03-01T00:00:00Z"))
	store.addAssignment(t, "a", "C2", "L1", mustTime(t, "2024-03-01T00:00:00Z"))
	svc := newTestSyncService(store, config.SyncConfig{})

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	want := []string{"z", "a", "b"}
	if len(result.Changes) != len(want) {
		t.Fatalf("expected %d changes, got %d", len(want), len(result.Changes))
	}
	for i, id := range want {
		if result.Changes[i].ID != id {
			t.Fatalf("change %d: expected %s, got %s", i, id, result.Changes[i].ID)
		}
	}

	token, err := util.ParseTimestamp(result.SyncToken)
	if err != nil {
		t.Fatalf("sync_token is not a timestamp: %v", err)
	}
	if time.Since(token) > time.Minute {
		t.Fatalf("sync_token should be the current server time, got %v", token)
	}
}

func TestSyncForcesOwnershipToCaller(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})

	change := progress("L1", 60, "2024-01-01T00:00:00Z")
	change.Data["student_id"] = "U2"
	if _, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{change}}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if _, err := store.Progress.FindByStudentAndLesson(context.Background(), "U1", "L1"); err != nil {
		t.Fatalf("expected record for caller: %v", err)
	}
	var count int64
	store.DB.Model(&model.ProgressRecord{}).Where("student_id = ?", "U2").Count(&count)
	if count != 0 {
		t.Fatalf("expected no record for U2, got %d", count)
	}
}

func TestSyncResubmittedBatchIsIdempotent(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})
	req := &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 30, "2024-01-01T00:00:00Z"),
		progress("L2", 100, "2024-01-01T00:00:00Z"),
	}}

	first, err := svc.Sync(context.Background(), "U1", req)
	if err != nil {
		t.Fatalf("first sync: %v", err)
	}
	second, err := svc.Sync(context.Background(), "U1", req)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	for i := range first.Results {
		if second.Results[i].Status != model.ChangeSynced || second.Results[i].ID != first.Results[i].ID {
			t.Fatalf("result %d differs on resubmit: %+v vs %+v", i, first.Results[i], second.Results[i])
		}
	}

	var count int64
	store.DB.Model(&model.ProgressRecord{}).Where("student_id = ?", "U1").Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
}

func TestSyncReportsStaleChangeAsConflict(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})
	ctx := context.Background()

	if _, err := svc.Sync(ctx, "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 80, "2024-01-02T00:00:00Z"),
	}}); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	result, err := svc.Sync(ctx, "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 20, "2024-01-01T00:00:00Z"),
	}})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}

	if result.Results[0].Status != model.ChangeConflict {
		t.Fatalf("expected conflict, got %+v", result.Results[0])
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %d", len(result.Conflicts))
	}
	conflict := result.Conflicts[0]
	if conflict.LessonID != "L1" || conflict.ServerData == nil || conflict.ServerData.ProgressPercent != 80 {
		t.Fatalf("unexpected conflict: %+v", conflict)
	}
	if !conflict.ServerTimestamp.Equal(mustTime(t, "2024-01-02T00:00:00Z")) ||
		!conflict.ClientTimestamp.Equal(mustTime(t, "2024-01-01T00:00:00Z")) {
		t.Fatalf("unexpected conflict timestamps: %+v", conflict)
	}

	rec, _ := store.Progress.FindByStudentAndLesson(ctx, "U1", "L1")
	if rec.ProgressPercent != 80 {
		t.Fatalf("stale change must not be written, got %d%%", rec.ProgressPercent)
	}
}

func TestSyncRejectsInvalidChangesWithoutAbortingBatch(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})

	missingLesson := progress("", 50, "2024-01-01T00:00:00Z")
	noPercent := model.ChangeRecord{Entity: model.EntityProgress, Data: map[string]interface{}{"lesson_id": "L3"}, Timestamp: "2024-01-01T00:00:00Z"}

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 150, "2024-01-01T00:00:00Z"),
		{Entity: "quiz", Data: map[string]interface{}{"id": "q1"}, Timestamp: "2024-01-01T00:00:00Z"},
		progress("L2", 50, "not a time"),
		missingLesson,
		noPercent,
		{Entity: model.EntityProgress, Timestamp: "2024-01-01T00:00:00Z"},
		progress("L5", 100.7, "2024-01-01T00:00:00Z"),
		progress("L6", 99.9, "2024-01-01T00:00:00Z"),
		progress("L7", -0.5, "2024-01-01T00:00:00Z"),
		{Entity: model.EntityProgress, Malformed: "timestamp must be an ISO8601 string"},
		progress("L4", "75", "2024-01-01T00:00:00Z"),
	}})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if len(result.Results) != 11 {
		t.Fatalf("expected a result per change, got %d", len(result.Results))
	}
	for i := 0; i < 10; i++ {
		if result.Results[i].Status != model.ChangeRejected || result.Results[i].Reason == "" {
			t.Fatalf("change %d should be rejected with a reason, got %+v", i, result.Results[i])
		}
		if result.Results[i].Index != i {
			t.Fatalf("result %d carries index %d", i, result.Results[i].Index)
		}
	}
	if result.Results[10].Status != model.ChangeSynced {
		t.Fatalf("valid change after rejections should sync, got %+v", result.Results[10])
	}

	var count int64
	store.DB.Model(&model.ProgressRecord{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected only the valid change to be stored, got %d rows", count)
	}
}

func TestSyncBatchLimitAndCursorValidation(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{MaxChanges: 1})

	_, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 10, "2024-01-01T00:00:00Z"),
		progress("L2", 10, "2024-01-01T00:00:00Z"),
	}})
	if !errors.Is(err, util.ErrTooManyChanges) {
		t.Fatalf("expected ErrTooManyChanges, got %v", err)
	}

	_, err = svc.Sync(context.Background(), "U1", &model.SyncRequest{LastSync: strPtr("not-a-date")})
	if !errors.Is(err, util.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}

	svc.UpdateSettings(config.SyncConfig{MaxChanges: 5})
	if _, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 10, "2024-01-01T00:00:00Z"),
		progress("L2", 10, "2024-01-01T00:00:00Z"),
	}}); err != nil {
		t.Fatalf("sync after raising the limit: %v", err)
	}
}

func TestSyncClassScopedCatchUp(t *testing.T) {
	store := setupStore(t)
	store.addLesson(t, "L1", nil)
	store.addUser(t, "U1", model.Student, strPtr("C1"))
	store.addUser(t, "U2", model.Student, nil)
	store.addAssignment(t, "mine", "C1", "L1", mustTime(t, "2024-03-01T00:00:00Z"))
	store.addAssignment(t, "theirs", "C2", "L1", mustTime(t, "2024-03-01T00:00:00Z"))
	svc := newTestSyncService(store, config.SyncConfig{ClassScopedCatchUp: true})

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(result.Changes) != 1 || result.Changes[0].ID != "mine" {
		t.Fatalf("expected only the caller's class, got %+v", result.Changes)
	}

	result, err = svc.Sync(context.Background(), "U2", &model.SyncRequest{})
	if err != nil {
		t.Fatalf("sync without class: %v", err)
	}
	if len(result.Changes) != 0 {
		t.Fatalf("expected nothing for a student without class, got %d", len(result.Changes))
	}
}

type flakyProgress struct {
	failLesson string
	written    []string
}

func (f *flakyProgress) UpsertIfNotOlder(ctx context.Context, rec *model.ProgressRecord) (*model.ProgressRecord, bool, error) {
	if rec.LessonID == f.failLesson {
		return nil, false, errors.New("connection reset")
	}
	f.written = append(f.written, rec.LessonID)
	stored := *rec
	stored.ID = "id-" + rec.LessonID
	return &stored, true, nil
}

type brokenFeed struct{}

func (brokenFeed) ListSince(ctx context.Context, since time.Time, classID *string) ([]model.Assignment, error) {
	return nil, errors.New("relation \"assignments\" does not exist")
}

type staticFeed []model.Assignment

func (f staticFeed) ListSince(ctx context.Context, since time.Time, classID *string) ([]model.Assignment, error) {
	return f, nil
}

func TestSyncPersistenceFailureIsPerChange(t *testing.T) {
	writer := &flakyProgress{failLesson: "L2"}
	svc := NewSyncService(writer, staticFeed(nil), nil, config.SyncConfig{MaxChanges: 10})

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 10, "2024-01-01T00:00:00Z"),
		progress("L2", 10, "2024-01-01T00:00:00Z"),
		progress("L3", 10, "2024-01-01T00:00:00Z"),
	}})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	statuses := []model.ChangeStatus{model.ChangeSynced, model.ChangeRejected, model.ChangeSynced}
	for i, want := range statuses {
		if result.Results[i].Status != want {
			t.Fatalf("change %d: expected %s, got %+v", i, want, result.Results[i])
		}
	}
	if result.Results[1].Reason == "" {
		t.Fatalf("persistence failure should carry its reason")
	}
	if len(writer.written) != 2 {
		t.Fatalf("expected the remaining changes to be attempted, wrote %v", writer.written)
	}
}

func TestSyncCatchUpFailureIsFatal(t *testing.T) {
	writer := &flakyProgress{}
	svc := NewSyncService(writer, brokenFeed{}, nil, config.SyncConfig{MaxChanges: 10})

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{Changes: []model.ChangeRecord{
		progress("L1", 100, "2024-01-01T00:00:00Z"),
	}})
	if err == nil {
		t.Fatalf("expected catch-up failure, got %+v", result)
	}
	if len(writer.written) != 1 {
		t.Fatalf("changes applied before the failure stay applied, wrote %v", writer.written)
	}
}

func TestAssignmentChangesDropsRowsBeforeCursor(t *testing.T) {
	cursor := mustTime(t, "2024-02-15T00:00:00Z")
	changes := assignmentChanges([]model.Assignment{
		{ID: "late", AssignedAt: mustTime(t, "2024-03-01T00:00:00Z")},
		{ID: "early", AssignedAt: mustTime(t, "2024-02-01T00:00:00Z")},
		{ID: "edge", AssignedAt: cursor},
	}, cursor)

	if len(changes) != 2 || changes[0].ID != "edge" || changes[1].ID != "late" {
		t.Fatalf("unexpected changes: %+v", changes)
	}
}

func TestSyncTokenHasMillisecondPrecision(t *testing.T) {
	store := setupStore(t)
	svc := newTestSyncService(store, config.SyncConfig{})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC) }

	result, err := svc.Sync(context.Background(), "U1", &model.SyncRequest{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.SyncToken != "2024-03-01T12:00:00.123Z" {
		t.Fatalf("expected token truncated to milliseconds, got %s", result.SyncToken)
	}
}
