package service

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/internal/util"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type LessonService struct {
	LessonRepo      *repository.LessonRepository
	AssignmentRepo  *repository.AssignmentRepository
	UserRepo        *repository.UserRepository
	DefaultLanguage string
}

func NewLessonService(lessonRepo *repository.LessonRepository, assignmentRepo *repository.AssignmentRepository, userRepo *repository.UserRepository, defaultLanguage string) *LessonService {
	if defaultLanguage == "" {
		defaultLanguage = model.DefaultLanguage
	}
	return &LessonService{
		LessonRepo:      lessonRepo,
		AssignmentRepo:  assignmentRepo,
		UserRepo:        userRepo,
		DefaultLanguage: defaultLanguage,
	}
}

func (s *LessonService) language(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return s.DefaultLanguage
	}
	return lang
}

func localizeAll(lessons []model.Lesson, lang string) []model.LocalizedLesson {
	return lo.Map(lessons, func(l model.Lesson, _ int) model.LocalizedLesson {
		return l.Localize(lang)
	})
}

func (s *LessonService) ListLessons(ctx context.Context, lang, subject string) ([]model.LocalizedLesson, error) {
	lessons, err := s.LessonRepo.List(ctx, strings.TrimSpace(subject))
	if err != nil {
		return nil, err
	}
	return localizeAll(lessons, s.language(lang)), nil
}

func (s *LessonService) GetLesson(ctx context.Context, id, lang string) (*model.LocalizedLesson, error) {
	lesson, err := s.LessonRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	localized := lesson.Localize(s.language(lang))
	return &localized, nil
}

// AssignLesson records that classID must study lessonID. Only a requester
// whose profile role is teacher may assign.
func (s *LessonService) AssignLesson(ctx context.Context, classID, lessonID, requesterID string) (*model.Assignment, error) {
	requester, err := s.UserRepo.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrForbidden
		}
		return nil, err
	}
	if requester.Role != model.Teacher {
		return nil, util.ErrForbidden
	}

	if _, err := s.LessonRepo.FindByID(ctx, lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	assignment := &model.Assignment{
		ClassID:    classID,
		LessonID:   lessonID,
		AssignedBy: requester.ID,
		AssignedAt: time.Now().UTC(),
	}
	if err := s.AssignmentRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// ListStudentLessons returns the lessons assigned to the student's class,
// or an empty list when the student has no class yet.
func (s *LessonService) ListStudentLessons(ctx context.Context, studentID, lang string) ([]model.LocalizedLesson, error) {
	student, err := s.UserRepo.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	if student.ClassID == nil {
		return []model.LocalizedLesson{}, nil
	}

	lessonIDs, err := s.AssignmentRepo.LessonIDsForClass(ctx, *student.ClassID)
	if err != nil {
		return nil, err
	}

	lessons, err := s.LessonRepo.FindByIDs(ctx, lessonIDs)
	if err != nil {
		return nil, err
	}
	return localizeAll(lessons, s.language(lang)), nil
}
