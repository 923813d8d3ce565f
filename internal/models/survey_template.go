package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

const (
	// SurveyTemplateStatusActive marks a template whose forms can be filled in.
	SurveyTemplateStatusActive = "active"
	// SurveyTemplateStatusInactive locks every form issued from the template.
	SurveyTemplateStatusInactive = "inactive"
)

// Question types supported by survey templates.
const (
	SurveyQuestionTypeScore  = "score"
	SurveyQuestionTypeText   = "text"
	SurveyQuestionTypeChoice = "choice"
	SurveyQuestionTypeRating = "rating"
)

// Question categories. The first four feed the category scores of a response.
const (
	SurveyCategoryTeacher    = "teacher"
	SurveyCategoryCurriculum = "curriculum"
	SurveyCategoryCare       = "care"
	SurveyCategoryFacilities = "facilities"
	SurveyCategoryGeneral    = "general"
)

// SurveyQuestion is a single prompt inside a template. ID doubles as the answer key.
type SurveyQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Category string   `json:"category,omitempty"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
	Order    int      `json:"order"`
}

// IsNumeric reports whether answers to the question are scores.
func (q SurveyQuestion) IsNumeric() bool {
	return q.Type == SurveyQuestionTypeScore || q.Type == SurveyQuestionTypeRating
}

// SurveyTemplate is a reusable, ordered question set.
type SurveyTemplate struct {
	ID          uint                               `gorm:"primaryKey" json:"id"`
	Name        string                             `gorm:"size:255;not null" json:"name"`
	Description string                             `gorm:"type:text" json:"description"`
	Questions   datatypes.JSONSlice[SurveyQuestion] `gorm:"type:json" json:"questions"`
	IsDefault   bool                               `gorm:"not null;default:false" json:"is_default"`
	Status      string                             `gorm:"size:16;not null;default:active;index" json:"status"`
	CreatedBy   *uint                              `json:"created_by,omitempty"`
	CreatedAt   time.Time                          `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time                          `json:"updated_at"`
}

// IsActive reports whether forms issued from the template accept answers.
func (t SurveyTemplate) IsActive() bool {
	return t.Status == SurveyTemplateStatusActive
}

// OrderedQuestions returns a copy of the questions sorted by their display order.
func OrderedQuestions(questions []SurveyQuestion) []SurveyQuestion {
	ordered := make([]SurveyQuestion, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	return ordered
}
