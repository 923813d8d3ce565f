package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// StudentStatusActive indicates the student may sign in to the portal.
	StudentStatusActive = "active"
	// StudentStatusInactive blocks portal access without archiving the record.
	StudentStatusInactive = "inactive"
	// StudentStatusArchived marks soft-deleted students.
	StudentStatusArchived = "archived"
)

// Student represents a learner enrolled at the center.
type Student struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Code         string         `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	ClassID      *uint          `gorm:"index" json:"class_id,omitempty"`
	ClassName    string         `gorm:"size:128" json:"class_name"`
	PasswordHash string         `gorm:"size:255;not null" json:"-"`
	Status       string         `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// IsActive reports whether the student may sign in.
func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive && !s.DeletedAt.Valid
}
