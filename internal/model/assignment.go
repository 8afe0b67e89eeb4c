package model

import "time"

// Assignment links a lesson to a class. Rows are append-only.
type Assignment struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ClassID    string    `gorm:"type:varchar(36);index;not null" json:"class_id"`
	LessonID   string    `gorm:"type:varchar(36);index;not null" json:"lesson_id"`
	AssignedBy string    `gorm:"type:varchar(36);not null" json:"assigned_by"`
	AssignedAt time.Time `gorm:"index;not null" json:"assigned_at"`
	Lesson     *Lesson   `gorm:"foreignKey:LessonID" json:"lessons,omitempty"`
}

func (Assignment) TableName() string {
	return "assignments"
}
