package models

import "time"

const (
	// SurveyAssignmentStatusPending is the initial state of an assignment.
	SurveyAssignmentStatusPending = "pending"
	// SurveyAssignmentStatusSubmitted is terminal; a response exists for the assignment.
	SurveyAssignmentStatusSubmitted = "submitted"
	// SurveyAssignmentStatusExpired is terminal; the assignment passed its expiry.
	SurveyAssignmentStatusExpired = "expired"
)

// SurveyAssignment binds one template to one student. The partial unique index keeps at
// most one pending assignment per template and student.
type SurveyAssignment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	TemplateID   uint       `gorm:"not null;index;uniqueIndex:idx_survey_assignments_pending,where:status = 'pending'" json:"template_id"`
	TemplateName string     `gorm:"size:255;not null" json:"template_name"`
	StudentID    uint       `gorm:"not null;index;uniqueIndex:idx_survey_assignments_pending" json:"student_id"`
	StudentName  string     `gorm:"size:255;not null" json:"student_name"`
	StudentCode  *string    `gorm:"size:64" json:"student_code,omitempty"`
	ClassID      *uint      `gorm:"index" json:"class_id,omitempty"`
	ClassName    *string    `gorm:"size:128" json:"class_name,omitempty"`
	Status       string     `gorm:"size:16;not null;index" json:"status"`
	Token        string     `gorm:"size:64;not null;uniqueIndex" json:"token"`
	AssignedAt   time.Time  `gorm:"not null;index" json:"assigned_at"`
	AssignedBy   *uint      `json:"assigned_by,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsPastExpiry reports whether the assignment carries an expiry that has already passed.
func (a SurveyAssignment) IsPastExpiry(reference time.Time) bool {
	return a.ExpiresAt != nil && reference.After(*a.ExpiresAt)
}

// EffectiveStatus applies the lazy expiry check on top of the stored status.
func (a SurveyAssignment) EffectiveStatus(reference time.Time) string {
	if a.Status == SurveyAssignmentStatusPending && a.IsPastExpiry(reference) {
		return SurveyAssignmentStatusExpired
	}
	return a.Status
}
