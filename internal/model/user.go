package model

import "time"

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
)

func (r UserRole) Valid() bool {
	return r == Student || r == Teacher
}

// User is the application-owned profile mirrored from the auth gateway
// identity on first sign-up. ID equals the gateway's user id.
type User struct {
	UUIDBase
	Name     string    `gorm:"size:100" json:"name"`
	Email    string    `gorm:"size:100;index" json:"email"`
	Role     UserRole  `gorm:"size:20;default:'student';index" json:"role"`
	Language string    `gorm:"size:10;default:'en'" json:"language"`
	ClassID  *string   `gorm:"type:varchar(36);index" json:"class_id"`
	LastSeen time.Time `json:"last_seen"`
}

func (User) TableName() string {
	return "users"
}

// Credential backs the local auth gateway. The remote gateway never touches it.
type Credential struct {
	UserID       string    `gorm:"primaryKey;type:varchar(36)" json:"-"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"-"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"-"`
}

func (Credential) TableName() string {
	return "credentials"
}
