package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

var (
	// ErrAdminStudentNotFound indicates the student was not found for admin operations.
	ErrAdminStudentNotFound = errors.New("admin student not found")
	// ErrStudentCodeTaken indicates another student already uses the code.
	ErrStudentCodeTaken = errors.New("student code already in use")
)

// AdminStudentService manages the students that can be surveyed and sign in to the portal.
type AdminStudentService interface {
	List(ctx context.Context, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error)
	Get(ctx context.Context, id uint) (dto.AdminStudentResponse, error)
	Create(ctx context.Context, payload dto.AdminStudentCreateRequest, actor ActivityActor) (dto.AdminStudentResponse, error)
	Update(ctx context.Context, id uint, payload dto.AdminStudentUpdateRequest, actor ActivityActor) (dto.AdminStudentResponse, error)
	Delete(ctx context.Context, id uint, actor ActivityActor) error
}

type adminStudentService struct {
	repo       repository.StudentRepository
	validator  *validator.Validate
	activity   ActivityRecorder
	logger     zerolog.Logger
	bcryptCost int
}

// NewAdminStudentService constructs the admin student service.
func NewAdminStudentService(repo repository.StudentRepository, validator *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminStudentService {
	return &adminStudentService{
		repo:       repo,
		validator:  validator,
		activity:   activity,
		logger:     logger.With().Str("component", "admin_student_service").Logger(),
		bcryptCost: bcrypt.DefaultCost,
	}
}

func (s *adminStudentService) List(ctx context.Context, req dto.AdminStudentListRequest) (dto.AdminStudentListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	students, total, err := s.repo.List(ctx, repository.StudentFilter{
		Search:   strings.TrimSpace(req.Search),
		Class:    strings.TrimSpace(req.Class),
		Status:   strings.TrimSpace(req.Status),
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return dto.AdminStudentListResponse{}, err
	}

	items := make([]dto.AdminStudentResponse, 0, len(students))
	for _, student := range students {
		items = append(items, dto.NewAdminStudentResponse(student))
	}

	pagination := dto.NewPaginationMeta(maxInt(req.Page, 1), req.PageSize, total)
	if req.PageSize <= 0 {
		pagination.TotalPages = 1
	}

	return dto.AdminStudentListResponse{Items: items, Pagination: pagination}, nil
}

func (s *adminStudentService) Get(ctx context.Context, id uint) (dto.AdminStudentResponse, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminStudentResponse{}, ErrAdminStudentNotFound
		}
		return dto.AdminStudentResponse{}, err
	}

	return dto.NewAdminStudentResponse(student), nil
}

func (s *adminStudentService) Create(ctx context.Context, payload dto.AdminStudentCreateRequest, actor ActivityActor) (dto.AdminStudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminStudentResponse{}, err
	}

	code := strings.TrimSpace(payload.Code)
	if _, err := s.repo.GetByCode(ctx, code); err == nil {
		return dto.AdminStudentResponse{}, ErrStudentCodeTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AdminStudentResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(payload.Password), s.bcryptCost)
	if err != nil {
		return dto.AdminStudentResponse{}, fmt.Errorf("hash student password: %w", err)
	}

	student := models.Student{
		Code:         code,
		Name:         strings.TrimSpace(payload.Name),
		ClassID:      payload.ClassID,
		ClassName:    strings.TrimSpace(payload.ClassName),
		PasswordHash: string(hash),
		Status:       models.StudentStatusActive,
	}
	if err := s.repo.Create(ctx, &student); err != nil {
		return dto.AdminStudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActivityStudentCreated, "student", uintPtr(student.ID), map[string]interface{}{
		"code":       student.Code,
		"class_name": student.ClassName,
	})

	return dto.NewAdminStudentResponse(student), nil
}

func (s *adminStudentService) Update(ctx context.Context, id uint, payload dto.AdminStudentUpdateRequest, actor ActivityActor) (dto.AdminStudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdminStudentResponse{}, err
	}

	updates := make(map[string]interface{})
	changedFields := make([]string, 0, 5)

	if payload.Name != nil {
		updates["name"] = strings.TrimSpace(*payload.Name)
		changedFields = append(changedFields, "name")
	}
	if payload.ClassID != nil {
		updates["class_id"] = *payload.ClassID
		changedFields = append(changedFields, "class_id")
	}
	if payload.ClassName != nil {
		updates["class_name"] = strings.TrimSpace(*payload.ClassName)
		changedFields = append(changedFields, "class_name")
	}
	if payload.Status != nil {
		updates["status"] = strings.ToLower(strings.TrimSpace(*payload.Status))
		changedFields = append(changedFields, "status")
	}
	if payload.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*payload.Password), s.bcryptCost)
		if err != nil {
			return dto.AdminStudentResponse{}, fmt.Errorf("hash student password: %w", err)
		}
		updates["password_hash"] = string(hash)
		changedFields = append(changedFields, "password")
	}

	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	student, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AdminStudentResponse{}, ErrAdminStudentNotFound
		}
		return dto.AdminStudentResponse{}, err
	}

	metadata := map[string]interface{}{
		"fields": changedFields,
	}
	if payload.Status != nil {
		metadata["status"] = student.Status
	}
	recordActivity(ctx, s.activity, s.logger, actor, ActivityStudentUpdated, "student", uintPtr(id), metadata)

	return dto.NewAdminStudentResponse(student), nil
}

func (s *adminStudentService) Delete(ctx context.Context, id uint, actor ActivityActor) error {
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminStudentNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, ActivityStudentDeleted, "student", uintPtr(id), map[string]interface{}{
		"status": models.StudentStatusArchived,
	})
	return nil
}
