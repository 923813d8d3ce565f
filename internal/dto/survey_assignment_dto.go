package dto

import (
	"time"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// Per-student outcomes of an assign request.
const (
	SurveyAssignOutcomeCreated         = "created"
	SurveyAssignOutcomeSkippedPending  = "skipped_pending"
	SurveyAssignOutcomeSkippedNotFound = "skipped_not_found"
)

// SurveyAssignRequest issues a template to a list of students.
type SurveyAssignRequest struct {
	TemplateID uint    `json:"template_id" validate:"required"`
	StudentIDs []uint  `json:"student_ids" validate:"required,min=1,max=500,dive,gt=0"`
	ExpiresAt  *string `json:"expires_at" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// SurveyAssignmentListRequest filters the admin assignment listing.
type SurveyAssignmentListRequest struct {
	TemplateID *uint
	StudentID  *uint
	Status     string `validate:"omitempty,oneof=pending submitted expired"`
}

// SurveyAssignmentResponse is the serialized assignment. Status already reflects lazy expiry.
type SurveyAssignmentResponse struct {
	ID           uint       `json:"id"`
	TemplateID   uint       `json:"template_id"`
	TemplateName string     `json:"template_name"`
	StudentID    uint       `json:"student_id"`
	StudentName  string     `json:"student_name"`
	StudentCode  *string    `json:"student_code,omitempty"`
	ClassID      *uint      `json:"class_id,omitempty"`
	ClassName    *string    `json:"class_name,omitempty"`
	Status       string     `json:"status"`
	Token        string     `json:"token"`
	AssignedAt   time.Time  `json:"assigned_at"`
	AssignedBy   *uint      `json:"assigned_by,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

// SurveyAssignOutcome reports what happened for one requested student.
type SurveyAssignOutcome struct {
	StudentID    uint   `json:"student_id"`
	Outcome      string `json:"outcome"`
	AssignmentID *uint  `json:"assignment_id,omitempty"`
}

// SurveyAssignResponse wraps the assignments created by one assign request.
type SurveyAssignResponse struct {
	Created  []SurveyAssignmentResponse `json:"created"`
	Outcomes []SurveyAssignOutcome      `json:"outcomes"`
}

// NewSurveyAssignmentResponse converts an assignment model into a DTO.
func NewSurveyAssignmentResponse(model models.SurveyAssignment, now time.Time) SurveyAssignmentResponse {
	return SurveyAssignmentResponse{
		ID:           model.ID,
		TemplateID:   model.TemplateID,
		TemplateName: model.TemplateName,
		StudentID:    model.StudentID,
		StudentName:  model.StudentName,
		StudentCode:  model.StudentCode,
		ClassID:      model.ClassID,
		ClassName:    model.ClassName,
		Status:       model.EffectiveStatus(now),
		Token:        model.Token,
		AssignedAt:   model.AssignedAt,
		AssignedBy:   model.AssignedBy,
		ExpiresAt:    model.ExpiresAt,
		SubmittedAt:  model.SubmittedAt,
	}
}

// NewSurveyAssignmentResponseSlice converts assignments into DTOs.
func NewSurveyAssignmentResponseSlice(assignments []models.SurveyAssignment, now time.Time) []SurveyAssignmentResponse {
	responses := make([]SurveyAssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewSurveyAssignmentResponse(assignment, now))
	}
	return responses
}
