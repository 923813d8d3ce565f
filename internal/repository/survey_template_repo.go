package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// SurveyTemplateRepository defines persistence operations for survey templates.
type SurveyTemplateRepository interface {
	List(ctx context.Context) ([]models.SurveyTemplate, error)
	GetByID(ctx context.Context, id uint) (models.SurveyTemplate, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, template *models.SurveyTemplate) error
	CreateBatch(ctx context.Context, templates []models.SurveyTemplate) error
	Update(ctx context.Context, template *models.SurveyTemplate) error
	Delete(ctx context.Context, id uint) error
}

type surveyTemplateRepository struct {
	db *gorm.DB
}

// NewSurveyTemplateRepository instantiates a GORM-backed template repository.
func NewSurveyTemplateRepository(db *gorm.DB) SurveyTemplateRepository {
	return &surveyTemplateRepository{db: db}
}

func (r *surveyTemplateRepository) List(ctx context.Context) ([]models.SurveyTemplate, error) {
	var templates []models.SurveyTemplate
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&templates).Error; err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *surveyTemplateRepository) GetByID(ctx context.Context, id uint) (models.SurveyTemplate, error) {
	var template models.SurveyTemplate
	if err := r.db.WithContext(ctx).First(&template, id).Error; err != nil {
		return models.SurveyTemplate{}, err
	}

	return template, nil
}

func (r *surveyTemplateRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SurveyTemplate{}).Count(&count).Error
	return count, err
}

func (r *surveyTemplateRepository) Create(ctx context.Context, template *models.SurveyTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *surveyTemplateRepository) CreateBatch(ctx context.Context, templates []models.SurveyTemplate) error {
	if len(templates) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&templates).Error
	})
}

func (r *surveyTemplateRepository) Update(ctx context.Context, template *models.SurveyTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

func (r *surveyTemplateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SurveyTemplate{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
