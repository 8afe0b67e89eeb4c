package repository

import (
	"context"
	"edu_bridge_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

// List returns every lesson, optionally restricted to one subject.
func (r *LessonRepository) List(ctx context.Context, subject string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	query := r.DB.WithContext(ctx).Model(&model.Lesson{})
	if subject != "" {
		query = query.Where("subject = ?", subject)
	}
	err := query.Order("created_at ASC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&lesson).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	if len(ids) == 0 {
		return lessons, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC").Find(&lessons).Error
	return lessons, err
}

// Save inserts or fully replaces a lesson; used by the seed script.
func (r *LessonRepository) Save(ctx context.Context, lesson *model.Lesson) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject", "title", "description", "content_url", "updated_at"}),
		}).
		Create(lesson).Error
}
