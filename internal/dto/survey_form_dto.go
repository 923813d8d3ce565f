package dto

import "time"

// States a survey form can be in when resolved from a token.
const (
	SurveyFormStateOpen      = "open"
	SurveyFormStateSubmitted = "submitted"
	SurveyFormStateExpired   = "expired"
	SurveyFormStateLocked    = "locked"
	SurveyFormStateNotFound  = "not_found"
)

// SurveyFormAssignment is the part of an assignment exposed on a public form. The token
// itself is never echoed back.
type SurveyFormAssignment struct {
	ID          uint       `json:"id"`
	StudentName string     `json:"student_name"`
	StudentCode *string    `json:"student_code,omitempty"`
	ClassName   *string    `json:"class_name,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// SurveyFormResponse describes what a form link resolves to.
type SurveyFormResponse struct {
	State      string                  `json:"state"`
	Assignment *SurveyFormAssignment   `json:"assignment,omitempty"`
	Template   *SurveyTemplateResponse `json:"template,omitempty"`
}

// NewSurveyFormAssignment strips an assignment down to its public fields.
func NewSurveyFormAssignment(assignment SurveyAssignmentResponse) *SurveyFormAssignment {
	return &SurveyFormAssignment{
		ID:          assignment.ID,
		StudentName: assignment.StudentName,
		StudentCode: assignment.StudentCode,
		ClassName:   assignment.ClassName,
		Status:      assignment.Status,
		ExpiresAt:   assignment.ExpiresAt,
		SubmittedAt: assignment.SubmittedAt,
	}
}
