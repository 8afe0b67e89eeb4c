package model

type Class struct {
	UUIDBase
	Name      string `gorm:"size:100;not null" json:"name"`
	TeacherID string `gorm:"type:varchar(36);index;not null" json:"teacher_id"`
}

func (Class) TableName() string {
	return "classes"
}
