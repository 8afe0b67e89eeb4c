package model

type StudentAtRisk struct {
	StudentID string  `json:"student_id"`
	Name      string  `json:"name"`
	Progress  float64 `json:"progress"`
}

type DashboardStats struct {
	ClassName      string          `json:"class_name"`
	TotalStudents  int             `json:"total_students"`
	LessonCount    int             `json:"lesson_count"`
	CompletionRate float64         `json:"completion_rate"`
	StudentsAtRisk []StudentAtRisk `json:"students_at_risk"`
}
