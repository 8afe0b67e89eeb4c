package model

import "time"

type ProgressStatus string

const (
	ProgressStarted   ProgressStatus = "started"
	ProgressCompleted ProgressStatus = "completed"
)

// ProgressRecord is unique per (student_id, lesson_id).
type ProgressRecord struct {
	UUIDBase
	StudentID       string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_student_lesson,priority:1" json:"student_id"`
	LessonID        string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_progress_student_lesson,priority:2" json:"lesson_id"`
	Status          ProgressStatus `gorm:"size:20;not null" json:"status"`
	ProgressPercent int            `gorm:"not null;default:0" json:"progress_percent"`
	StartedAt       *time.Time     `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at"`
	LastAccessed    time.Time      `json:"last_accessed"`
	SyncToken       *time.Time     `json:"sync_token"`
}

func (ProgressRecord) TableName() string {
	return "progress"
}

// ProgressInput is one progress write before status derivation.
type ProgressInput struct {
	StudentID       string
	LessonID        string
	ProgressPercent int
	StartedAt       *time.Time
	CompletedAt     *time.Time
	SyncToken       *time.Time
}

// NewProgressRecord derives status and completed_at from the percentage.
// completed_at is kept only for a completed record and falls back to now.
func NewProgressRecord(in ProgressInput, now time.Time) *ProgressRecord {
	rec := &ProgressRecord{
		StudentID:       in.StudentID,
		LessonID:        in.LessonID,
		Status:          ProgressStarted,
		ProgressPercent: in.ProgressPercent,
		StartedAt:       in.StartedAt,
		LastAccessed:    now,
		SyncToken:       in.SyncToken,
	}
	if in.ProgressPercent == 100 {
		rec.Status = ProgressCompleted
		completedAt := now
		if in.CompletedAt != nil {
			completedAt = *in.CompletedAt
		}
		rec.CompletedAt = &completedAt
	}
	return rec
}
