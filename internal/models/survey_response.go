package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// SurveySubmittedByStudent marks a response filled in by the student.
	SurveySubmittedByStudent = "student"
	// SurveySubmittedByParent marks a response filled in by a parent.
	SurveySubmittedByParent = "parent"
)

// SurveyResponse is the immutable answer set submitted against an assignment.
type SurveyResponse struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	AssignmentID    *uint             `gorm:"index" json:"assignment_id,omitempty"`
	TemplateID      uint              `gorm:"not null;index" json:"template_id"`
	TemplateName    string            `gorm:"size:255;not null" json:"template_name"`
	StudentID       uint              `gorm:"not null;index" json:"student_id"`
	StudentName     string            `gorm:"size:255;not null" json:"student_name"`
	StudentCode     *string           `gorm:"size:64" json:"student_code,omitempty"`
	ClassID         *uint             `gorm:"index" json:"class_id,omitempty"`
	ClassName       *string           `gorm:"size:128" json:"class_name,omitempty"`
	TeacherScore    *float64          `json:"teacher_score,omitempty"`
	CurriculumScore *float64          `json:"curriculum_score,omitempty"`
	CareScore       *float64          `json:"care_score,omitempty"`
	FacilitiesScore *float64          `json:"facilities_score,omitempty"`
	AverageScore    *float64          `json:"average_score,omitempty"`
	Answers         datatypes.JSONMap `gorm:"type:json;not null" json:"answers"`
	Comments        *string           `gorm:"type:text" json:"comments,omitempty"`
	SubmittedAt     time.Time         `gorm:"not null;index" json:"submitted_at"`
	SubmittedBy     string            `gorm:"size:16;not null" json:"submitted_by"`
	SubmitterName   *string           `gorm:"size:255" json:"submitter_name,omitempty"`
	SubmitterPhone  *string           `gorm:"size:32" json:"submitter_phone,omitempty"`
}
