package repository

import (
	"context"
	"edu_bridge_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type AssignmentRepository struct {
	DB *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

func (r *AssignmentRepository) Create(ctx context.Context, a *model.Assignment) error {
	if a.ID == "" {
		a.ID = model.GenerateUUID()
	}
	return r.DB.WithContext(ctx).Create(a).Error
}

// ListSince returns assignments with assigned_at >= since, oldest first, with
// the lesson joined. A non-nil classID restricts the feed to that class.
func (r *AssignmentRepository) ListSince(ctx context.Context, since time.Time, classID *string) ([]model.Assignment, error) {
	var assignments []model.Assignment
	query := r.DB.WithContext(ctx).
		Preload("Lesson").
		Where("assigned_at >= ?", since.UTC())
	if classID != nil {
		query = query.Where("class_id = ?", *classID)
	}
	err := query.Order("assigned_at ASC").Order("id ASC").Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepository) LessonIDsForClass(ctx context.Context, classID string) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("class_id = ?", classID).
		Distinct().
		Pluck("lesson_id", &ids).Error
	return ids, err
}
