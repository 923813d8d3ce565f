package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// ErrSurveyAssignmentNotPending indicates the referenced assignment can no longer accept a response.
var ErrSurveyAssignmentNotPending = errors.New("survey assignment is not pending")

// SurveyResponseFilter narrows response queries.
type SurveyResponseFilter struct {
	TemplateID *uint
	StudentID  *uint
	ClassID    *uint
	From       *time.Time
	To         *time.Time
}

// SurveyResponseRepository defines persistence operations for survey responses.
type SurveyResponseRepository interface {
	Record(ctx context.Context, response *models.SurveyResponse) error
	GetByID(ctx context.Context, id uint) (models.SurveyResponse, error)
	List(ctx context.Context, filter SurveyResponseFilter) ([]models.SurveyResponse, error)
}

type surveyResponseRepository struct {
	db *gorm.DB
}

// NewSurveyResponseRepository instantiates a GORM-backed response repository.
func NewSurveyResponseRepository(db *gorm.DB) SurveyResponseRepository {
	return &surveyResponseRepository{db: db}
}

// Record stores the response and, when it references an assignment, marks that assignment
// submitted inside the same transaction.
func (r *surveyResponseRepository) Record(ctx context.Context, response *models.SurveyResponse) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if response.AssignmentID != nil {
			update := tx.Model(&models.SurveyAssignment{}).
				Where("id = ? AND status = ?", *response.AssignmentID, models.SurveyAssignmentStatusPending).
				Updates(map[string]interface{}{
					"status":       models.SurveyAssignmentStatusSubmitted,
					"submitted_at": response.SubmittedAt,
				})
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 0 {
				return ErrSurveyAssignmentNotPending
			}
		}

		query := tx
		if omitted := unsetResponseColumns(response); len(omitted) > 0 {
			query = query.Omit(omitted...)
		}
		return query.Create(response).Error
	})
}

func (r *surveyResponseRepository) GetByID(ctx context.Context, id uint) (models.SurveyResponse, error) {
	var response models.SurveyResponse
	if err := r.db.WithContext(ctx).First(&response, id).Error; err != nil {
		return models.SurveyResponse{}, err
	}

	return response, nil
}

func (r *surveyResponseRepository) List(ctx context.Context, filter SurveyResponseFilter) ([]models.SurveyResponse, error) {
	query := r.db.WithContext(ctx).Model(&models.SurveyResponse{})

	if filter.TemplateID != nil {
		query = query.Where("template_id = ?", *filter.TemplateID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.ClassID != nil {
		query = query.Where("class_id = ?", *filter.ClassID)
	}
	if filter.From != nil {
		query = query.Where("submitted_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("submitted_at <= ?", *filter.To)
	}

	var responses []models.SurveyResponse
	if err := query.Order("submitted_at DESC").Order("id DESC").Find(&responses).Error; err != nil {
		return nil, err
	}

	return responses, nil
}

// unsetResponseColumns lists optional columns the insert must not mention at all.
func unsetResponseColumns(response *models.SurveyResponse) []string {
	columns := make([]string, 0, 12)
	optional := []struct {
		column string
		unset  bool
	}{
		{"assignment_id", response.AssignmentID == nil},
		{"student_code", response.StudentCode == nil},
		{"class_id", response.ClassID == nil},
		{"class_name", response.ClassName == nil},
		{"teacher_score", response.TeacherScore == nil},
		{"curriculum_score", response.CurriculumScore == nil},
		{"care_score", response.CareScore == nil},
		{"facilities_score", response.FacilitiesScore == nil},
		{"average_score", response.AverageScore == nil},
		{"comments", response.Comments == nil},
		{"submitter_name", response.SubmitterName == nil},
		{"submitter_phone", response.SubmitterPhone == nil},
	}
	for _, field := range optional {
		if field.unset {
			columns = append(columns, field.column)
		}
	}
	return columns
}
