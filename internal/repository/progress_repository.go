package repository

import (
	"context"
	"edu_bridge_backend/internal/model"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// replaceColumns are overwritten when a (student_id, lesson_id) row exists.
var replaceColumns = []string{
	"status", "progress_percent", "started_at", "completed_at", "last_accessed", "sync_token", "updated_at",
}

func upsert(tx *gorm.DB, rec *model.ProgressRecord) (*model.ProgressRecord, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns(replaceColumns),
	}).Create(rec).Error
	if err != nil {
		return nil, err
	}

	// On conflict the row keeps its original id; read back the stored state.
	var stored model.ProgressRecord
	if err := tx.Where("student_id = ? AND lesson_id = ?", rec.StudentID, rec.LessonID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Upsert writes rec keyed on (student_id, lesson_id), replacing every field
// of an existing row.
func (r *ProgressRepository) Upsert(ctx context.Context, rec *model.ProgressRecord) (*model.ProgressRecord, error) {
	var stored *model.ProgressRecord
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stored, err = upsert(tx, rec)
		return err
	})
	return stored, err
}

// UpsertIfNotOlder is Upsert guarded by last-write-wins on sync_token: when
// the stored row carries a sync_token strictly newer than rec's, nothing is
// written and the stored row is returned with applied=false.
func (r *ProgressRepository) UpsertIfNotOlder(ctx context.Context, rec *model.ProgressRecord) (stored *model.ProgressRecord, applied bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ProgressRecord
		lookup := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("student_id = ? AND lesson_id = ?", rec.StudentID, rec.LessonID).
			First(&existing)
		switch {
		case lookup.Error == nil:
			if existing.SyncToken != nil && rec.SyncToken != nil && rec.SyncToken.Before(*existing.SyncToken) {
				stored = &existing
				return nil
			}
		case errors.Is(lookup.Error, gorm.ErrRecordNotFound):
		default:
			return lookup.Error
		}

		var err error
		stored, err = upsert(tx, rec)
		applied = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return stored, applied, nil
}

func (r *ProgressRepository) FindByStudentAndLesson(ctx context.Context, studentID, lessonID string) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	err := r.DB.WithContext(ctx).Where("student_id = ? AND lesson_id = ?", studentID, lessonID).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ProgressRepository) ListByStudents(ctx context.Context, studentIDs []string) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	if len(studentIDs) == 0 {
		return records, nil
	}
	err := r.DB.WithContext(ctx).Where("student_id IN ?", studentIDs).Find(&records).Error
	return records, err
}
