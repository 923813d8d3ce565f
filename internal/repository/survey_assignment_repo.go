package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

// SurveyAssignmentFilter narrows assignment queries. Every set field is an equality match.
type SurveyAssignmentFilter struct {
	TemplateID *uint
	StudentID  *uint
	Status     string
}

// SurveyAssignmentRepository defines persistence operations for survey assignments.
type SurveyAssignmentRepository interface {
	List(ctx context.Context, filter SurveyAssignmentFilter) ([]models.SurveyAssignment, error)
	GetByID(ctx context.Context, id uint) (models.SurveyAssignment, error)
	GetByToken(ctx context.Context, token string) (models.SurveyAssignment, error)
	FindPending(ctx context.Context, templateID, studentID uint) (models.SurveyAssignment, error)
	CreatePending(ctx context.Context, assignment *models.SurveyAssignment) (bool, error)
	Delete(ctx context.Context, id uint) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type surveyAssignmentRepository struct {
	db *gorm.DB
}

// NewSurveyAssignmentRepository instantiates a GORM-backed assignment repository.
func NewSurveyAssignmentRepository(db *gorm.DB) SurveyAssignmentRepository {
	return &surveyAssignmentRepository{db: db}
}

func (r *surveyAssignmentRepository) List(ctx context.Context, filter SurveyAssignmentFilter) ([]models.SurveyAssignment, error) {
	query := r.db.WithContext(ctx).Model(&models.SurveyAssignment{})

	if filter.TemplateID != nil {
		query = query.Where("template_id = ?", *filter.TemplateID)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var assignments []models.SurveyAssignment
	if err := query.Order("assigned_at DESC").Order("id DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *surveyAssignmentRepository) GetByID(ctx context.Context, id uint) (models.SurveyAssignment, error) {
	var assignment models.SurveyAssignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.SurveyAssignment{}, err
	}

	return assignment, nil
}

func (r *surveyAssignmentRepository) GetByToken(ctx context.Context, token string) (models.SurveyAssignment, error) {
	var assignment models.SurveyAssignment
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&assignment).Error; err != nil {
		return models.SurveyAssignment{}, err
	}

	return assignment, nil
}

func (r *surveyAssignmentRepository) FindPending(ctx context.Context, templateID, studentID uint) (models.SurveyAssignment, error) {
	var assignment models.SurveyAssignment
	err := r.db.WithContext(ctx).
		Where("template_id = ? AND student_id = ? AND status = ?", templateID, studentID, models.SurveyAssignmentStatusPending).
		First(&assignment).Error
	if err != nil {
		return models.SurveyAssignment{}, err
	}

	return assignment, nil
}

// CreatePending inserts the assignment unless a conflicting row exists. The partial unique
// index on (template_id, student_id) for pending rows makes this a single conditional
// write; false means nothing was inserted. A pending row of the same pair whose expiry has
// passed by AssignedAt is moved to expired first, so it no longer holds the index.
func (r *surveyAssignmentRepository) CreatePending(ctx context.Context, assignment *models.SurveyAssignment) (bool, error) {
	assignment.Status = models.SurveyAssignmentStatusPending
	reference := assignment.AssignedAt
	if reference.IsZero() {
		reference = time.Now().UTC()
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.SurveyAssignment{}).
			Where("template_id = ? AND student_id = ? AND status = ?", assignment.TemplateID, assignment.StudentID, models.SurveyAssignmentStatusPending).
			Where("expires_at IS NOT NULL AND expires_at < ?", reference).
			Update("status", models.SurveyAssignmentStatusExpired).Error
		if err != nil {
			return err
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(assignment)
		if result.Error != nil {
			return result.Error
		}
		created = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

func (r *surveyAssignmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SurveyAssignment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *surveyAssignmentRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SurveyAssignment{}).
		Where("status = ?", models.SurveyAssignmentStatusPending).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Update("status", models.SurveyAssignmentStatusExpired)
	return result.RowsAffected, result.Error
}
