package service

import (
	"context"
	"edu_bridge_backend/internal/model"
	"edu_bridge_backend/internal/repository"
	"edu_bridge_backend/internal/util"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const DefaultRiskThreshold = 30.0

type ProgressService struct {
	ProgressRepo   *repository.ProgressRepository
	UserRepo       *repository.UserRepository
	ClassRepo      *repository.ClassRepository
	AssignmentRepo *repository.AssignmentRepository

	riskThreshold atomic.Uint64
	now           func() time.Time
}

func NewProgressService(progressRepo *repository.ProgressRepository, userRepo *repository.UserRepository, classRepo *repository.ClassRepository, assignmentRepo *repository.AssignmentRepository, riskThreshold float64) *ProgressService {
	s := &ProgressService{
		ProgressRepo:   progressRepo,
		UserRepo:       userRepo,
		ClassRepo:      classRepo,
		AssignmentRepo: assignmentRepo,
		now:            func() time.Time { return time.Now().UTC() },
	}
	s.SetRiskThreshold(riskThreshold)
	return s
}

// SetRiskThreshold changes the mean-progress percentage below which a
// student is reported at risk. Non-positive values restore the default.
func (s *ProgressService) SetRiskThreshold(threshold float64) {
	if threshold <= 0 {
		threshold = DefaultRiskThreshold
	}
	s.riskThreshold.Store(math.Float64bits(threshold))
}

func (s *ProgressService) RiskThreshold() float64 {
	return math.Float64frombits(s.riskThreshold.Load())
}

type RecordProgressRequest struct {
	LessonID        string     `json:"lesson_id" binding:"required"`
	ProgressPercent *int       `json:"progress_percent" binding:"required"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

// RecordProgress upserts the caller's progress on one lesson, replacing any
// earlier record for the same lesson.
func (s *ProgressService) RecordProgress(ctx context.Context, studentID string, req RecordProgressRequest) (*model.ProgressRecord, error) {
	if req.ProgressPercent == nil {
		return nil, fmt.Errorf("%w: progress_percent is required", util.ErrInvalidChange)
	}
	percent := *req.ProgressPercent
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: progress_percent %d is outside 0..100", util.ErrInvalidChange, percent)
	}

	now := s.now()
	startedAt := req.StartedAt
	if startedAt == nil {
		startedAt = &now
	}
	rec := model.NewProgressRecord(model.ProgressInput{
		StudentID:       studentID,
		LessonID:        req.LessonID,
		ProgressPercent: percent,
		StartedAt:       startedAt,
		CompletedAt:     req.CompletedAt,
		SyncToken:       &now,
	}, now)

	return s.ProgressRepo.Upsert(ctx, rec)
}

// AssignedLessonCount is the number of distinct lessons assigned to a class.
func (s *ProgressService) AssignedLessonCount(ctx context.Context, classID string) (int, error) {
	ids, err := s.AssignmentRepo.LessonIDsForClass(ctx, classID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// TeacherDashboard aggregates class progress for the class owner.
// lessonCount is the per-student number of lessons used as the completion
// rate denominator.
func (s *ProgressService) TeacherDashboard(ctx context.Context, classID, requesterID string, lessonCount int) (*model.DashboardStats, error) {
	class, err := s.ClassRepo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrForbidden
		}
		return nil, err
	}
	if class.TeacherID != requesterID {
		return nil, util.ErrForbidden
	}

	students, err := s.UserRepo.ListByClassAndRole(ctx, classID, model.Student)
	if err != nil {
		return nil, err
	}

	studentIDs := lo.Map(students, func(u model.User, _ int) string { return u.ID })
	records, err := s.ProgressRepo.ListByStudents(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	return buildDashboard(class, students, records, lessonCount, s.RiskThreshold()), nil
}

func buildDashboard(class *model.Class, students []model.User, records []model.ProgressRecord, lessonCount int, threshold float64) *model.DashboardStats {
	completed := lo.CountBy(records, func(r model.ProgressRecord) bool {
		return r.Status == model.ProgressCompleted
	})

	var completionRate float64
	if denominator := len(students) * lessonCount; denominator > 0 {
		completionRate = math.Min(float64(completed)/float64(denominator), 1)
	}

	byStudent := lo.GroupBy(records, func(r model.ProgressRecord) string { return r.StudentID })
	atRisk := make([]model.StudentAtRisk, 0)
	for _, student := range students {
		own := byStudent[student.ID]
		var avg float64
		if len(own) > 0 {
			avg = float64(lo.SumBy(own, func(r model.ProgressRecord) int { return r.ProgressPercent })) / float64(len(own))
		}
		if avg < threshold {
			atRisk = append(atRisk, model.StudentAtRisk{
				StudentID: student.ID,
				Name:      student.Name,
				Progress:  avg,
			})
		}
	}

	return &model.DashboardStats{
		ClassName:      class.Name,
		TotalStudents:  len(students),
		LessonCount:    lessonCount,
		CompletionRate: completionRate,
		StudentsAtRisk: atRisk,
	}
}
