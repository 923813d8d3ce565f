package dto

import (
	"time"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// SurveyQuestionPayload describes one question in a template create/update payload.
type SurveyQuestionPayload struct {
	ID       string   `json:"id" validate:"required,max=64"`
	Question string   `json:"question" validate:"required,min=3,max=500"`
	Type     string   `json:"type" validate:"required,oneof=score text choice rating"`
	Category string   `json:"category" validate:"omitempty,oneof=teacher curriculum care facilities general"`
	Options  []string `json:"options" validate:"omitempty,dive,required"`
	Required bool     `json:"required"`
	Order    int      `json:"order" validate:"gte=0"`
}

// SurveyTemplateCreateRequest is the payload for creating a template.
type SurveyTemplateCreateRequest struct {
	Name        string                  `json:"name" validate:"required,min=3,max=255"`
	Description string                  `json:"description" validate:"omitempty,max=2000"`
	Questions   []SurveyQuestionPayload `json:"questions" validate:"required,min=1,dive"`
	IsDefault   bool                    `json:"is_default"`
	Status      string                  `json:"status" validate:"omitempty,oneof=active inactive"`
}

// SurveyTemplateUpdateRequest is a partial template update. Questions replace the
// existing list wholesale when present.
type SurveyTemplateUpdateRequest struct {
	Name        *string                  `json:"name" validate:"omitempty,min=3,max=255"`
	Description *string                  `json:"description" validate:"omitempty,max=2000"`
	Questions   *[]SurveyQuestionPayload `json:"questions" validate:"omitempty,min=1,dive"`
	IsDefault   *bool                    `json:"is_default"`
	Status      *string                  `json:"status" validate:"omitempty,oneof=active inactive"`
}

// SurveyTemplateResponse is the serialized template.
type SurveyTemplateResponse struct {
	ID          uint                    `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Questions   []models.SurveyQuestion `json:"questions"`
	IsDefault   bool                    `json:"is_default"`
	Status      string                  `json:"status"`
	CreatedBy   *uint                   `json:"created_by,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// NewSurveyTemplateResponse converts a template model into a DTO with questions in display order.
func NewSurveyTemplateResponse(model models.SurveyTemplate) SurveyTemplateResponse {
	return SurveyTemplateResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		Questions:   models.OrderedQuestions(model.Questions),
		IsDefault:   model.IsDefault,
		Status:      model.Status,
		CreatedBy:   model.CreatedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewSurveyTemplateResponseSlice converts templates into DTOs.
func NewSurveyTemplateResponseSlice(templates []models.SurveyTemplate) []SurveyTemplateResponse {
	responses := make([]SurveyTemplateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, NewSurveyTemplateResponse(template))
	}
	return responses
}

// ToSurveyQuestions converts question payloads into model questions.
func ToSurveyQuestions(payload []SurveyQuestionPayload) []models.SurveyQuestion {
	questions := make([]models.SurveyQuestion, 0, len(payload))
	for _, item := range payload {
		questions = append(questions, models.SurveyQuestion{
			ID:       item.ID,
			Question: item.Question,
			Type:     item.Type,
			Category: item.Category,
			Options:  item.Options,
			Required: item.Required,
			Order:    item.Order,
		})
	}
	return questions
}
