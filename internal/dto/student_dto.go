package dto

import (
	"time"

	"github.com/noah-isme/gema-survey-api/internal/auth"
)

// StudentLoginRequest carries portal credentials.
type StudentLoginRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// StudentSessionResponse is the session view returned to the portal.
type StudentSessionResponse struct {
	StudentID uint      `json:"student_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	ClassID   *uint     `json:"class_id,omitempty"`
	ClassName string    `json:"class_name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StudentLoginResponse pairs the bearer token with its session.
type StudentLoginResponse struct {
	Token   string                 `json:"token"`
	Session StudentSessionResponse `json:"session"`
}

// NewStudentSessionResponse converts a session into its DTO.
func NewStudentSessionResponse(session auth.Session) StudentSessionResponse {
	return StudentSessionResponse{
		StudentID: session.StudentID,
		Code:      session.Code,
		Name:      session.Name,
		ClassID:   session.ClassID,
		ClassName: session.ClassName,
		ExpiresAt: session.ExpiresAt,
	}
}

// StudentPendingSurvey is one entry on the student's pending list.
type StudentPendingSurvey struct {
	AssignmentID uint       `json:"assignment_id"`
	TemplateID   uint       `json:"template_id"`
	TemplateName string     `json:"template_name"`
	AssignedAt   time.Time  `json:"assigned_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// NewStudentPendingSurveys reduces assignments to the portal view.
func NewStudentPendingSurveys(assignments []SurveyAssignmentResponse) []StudentPendingSurvey {
	items := make([]StudentPendingSurvey, 0, len(assignments))
	for _, assignment := range assignments {
		items = append(items, StudentPendingSurvey{
			AssignmentID: assignment.ID,
			TemplateID:   assignment.TemplateID,
			TemplateName: assignment.TemplateName,
			AssignedAt:   assignment.AssignedAt,
			ExpiresAt:    assignment.ExpiresAt,
		})
	}
	return items
}
