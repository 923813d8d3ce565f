package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// SurveyCategoryScores carries the optional per-category scores of a submission.
type SurveyCategoryScores struct {
	TeacherScore    *float64 `json:"teacher_score" validate:"omitempty,gte=0,lte=10"`
	CurriculumScore *float64 `json:"curriculum_score" validate:"omitempty,gte=0,lte=10"`
	CareScore       *float64 `json:"care_score" validate:"omitempty,gte=0,lte=10"`
	FacilitiesScore *float64 `json:"facilities_score" validate:"omitempty,gte=0,lte=10"`
}

// SurveyResponseCreateRequest is the input of the response recorder.
type SurveyResponseCreateRequest struct {
	AssignmentID   *uint                  `json:"assignment_id"`
	TemplateID     uint                   `json:"template_id" validate:"required"`
	TemplateName   string                 `json:"template_name" validate:"required"`
	StudentID      uint                   `json:"student_id" validate:"required"`
	StudentName    string                 `json:"student_name" validate:"required"`
	StudentCode    *string                `json:"student_code"`
	ClassID        *uint                  `json:"class_id"`
	ClassName      *string                `json:"class_name"`
	Answers        map[string]interface{} `json:"answers" validate:"required"`
	Comments       *string                `json:"comments" validate:"omitempty,max=4000"`
	SubmittedBy    string                 `json:"submitted_by" validate:"required,oneof=student parent"`
	SubmitterName  *string                `json:"submitter_name" validate:"omitempty,max=255"`
	SubmitterPhone *string                `json:"submitter_phone" validate:"omitempty,max=32"`
	SurveyCategoryScores
}

// SurveyFormSubmitRequest is the payload a student or parent posts from a survey form.
type SurveyFormSubmitRequest struct {
	Answers        map[string]interface{} `json:"answers" validate:"required"`
	Comments       *string                `json:"comments" validate:"omitempty,max=4000"`
	SubmittedBy    string                 `json:"submitted_by" validate:"omitempty,oneof=student parent"`
	SubmitterName  *string                `json:"submitter_name" validate:"omitempty,max=255"`
	SubmitterPhone *string                `json:"submitter_phone" validate:"omitempty,max=32"`
	SurveyCategoryScores
}

// SurveyResponseListRequest filters the admin response listing and statistics.
type SurveyResponseListRequest struct {
	TemplateID *uint
	StudentID  *uint
	ClassID    *uint
	From       *time.Time
	To         *time.Time
}

// SurveySubmitResult is returned after a successful submission.
type SurveySubmitResult struct {
	ResponseID   uint     `json:"response_id"`
	AssignmentID *uint    `json:"assignment_id,omitempty"`
	AverageScore *float64 `json:"average_score,omitempty"`
}

// SurveyResponseResponse is the serialized response record.
type SurveyResponseResponse struct {
	ID              uint                   `json:"id"`
	AssignmentID    *uint                  `json:"assignment_id,omitempty"`
	TemplateID      uint                   `json:"template_id"`
	TemplateName    string                 `json:"template_name"`
	StudentID       uint                   `json:"student_id"`
	StudentName     string                 `json:"student_name"`
	StudentCode     *string                `json:"student_code,omitempty"`
	ClassID         *uint                  `json:"class_id,omitempty"`
	ClassName       *string                `json:"class_name,omitempty"`
	TeacherScore    *float64               `json:"teacher_score,omitempty"`
	CurriculumScore *float64               `json:"curriculum_score,omitempty"`
	CareScore       *float64               `json:"care_score,omitempty"`
	FacilitiesScore *float64               `json:"facilities_score,omitempty"`
	AverageScore    *float64               `json:"average_score,omitempty"`
	Answers         map[string]interface{} `json:"answers"`
	Comments        *string                `json:"comments,omitempty"`
	SubmittedAt     time.Time              `json:"submitted_at"`
	SubmittedBy     string                 `json:"submitted_by"`
	SubmitterName   *string                `json:"submitter_name,omitempty"`
	SubmitterPhone  *string                `json:"submitter_phone,omitempty"`
}

// NewSurveyResponseResponse converts a response model into a DTO.
func NewSurveyResponseResponse(model models.SurveyResponse) SurveyResponseResponse {
	answers := make(map[string]interface{}, len(model.Answers))
	for key, value := range model.Answers {
		answers[key] = answerValue(value)
	}

	return SurveyResponseResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		TemplateID:      model.TemplateID,
		TemplateName:    model.TemplateName,
		StudentID:       model.StudentID,
		StudentName:     model.StudentName,
		StudentCode:     model.StudentCode,
		ClassID:         model.ClassID,
		ClassName:       model.ClassName,
		TeacherScore:    model.TeacherScore,
		CurriculumScore: model.CurriculumScore,
		CareScore:       model.CareScore,
		FacilitiesScore: model.FacilitiesScore,
		AverageScore:    model.AverageScore,
		Answers:         answers,
		Comments:        model.Comments,
		SubmittedAt:     model.SubmittedAt,
		SubmittedBy:     model.SubmittedBy,
		SubmitterName:   model.SubmitterName,
		SubmitterPhone:  model.SubmitterPhone,
	}
}

// NewSurveyResponseResponseSlice converts responses into DTOs.
func NewSurveyResponseResponseSlice(responses []models.SurveyResponse) []SurveyResponseResponse {
	items := make([]SurveyResponseResponse, 0, len(responses))
	for _, response := range responses {
		items = append(items, NewSurveyResponseResponse(response))
	}
	return items
}

// answerValue turns numbers read back from the JSON column into float64, matching what
// was submitted.
func answerValue(value interface{}) interface{} {
	if number, ok := value.(json.Number); ok {
		if parsed, err := number.Float64(); err == nil {
			return parsed
		}
	}
	return value
}
