package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/auth"
	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

const maxSurveyScore = 10

// SurveyFormService drives the fill-in workflow, from the public token link and from the
// student portal.
type SurveyFormService interface {
	Resolve(ctx context.Context, token string) (dto.SurveyFormResponse, error)
	SubmitByToken(ctx context.Context, token string, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error)
	FormForStudent(ctx context.Context, session auth.Session, assignmentID uint) (dto.SurveyFormResponse, error)
	SubmitForStudent(ctx context.Context, session auth.Session, assignmentID uint, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error)
}

type surveyFormService struct {
	assignments repository.SurveyAssignmentRepository
	templates   repository.SurveyTemplateRepository
	responses   SurveyResponseService
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

type resolvedForm struct {
	state      string
	assignment models.SurveyAssignment
	template   *models.SurveyTemplate
}

// NewSurveyFormService constructs the form workflow.
func NewSurveyFormService(assignments repository.SurveyAssignmentRepository, templates repository.SurveyTemplateRepository, responses SurveyResponseService, validate *validator.Validate, logger zerolog.Logger) SurveyFormService {
	return &surveyFormService{
		assignments: assignments,
		templates:   templates,
		responses:   responses,
		validator:   validate,
		logger:      logger.With().Str("component", "survey_form_service").Logger(),
		now:         time.Now,
	}
}

func (s *surveyFormService) Resolve(ctx context.Context, token string) (dto.SurveyFormResponse, error) {
	form, err := s.resolveToken(ctx, token)
	if err != nil {
		return dto.SurveyFormResponse{}, err
	}
	return s.toResponse(form), nil
}

func (s *surveyFormService) SubmitByToken(ctx context.Context, token string, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error) {
	form, err := s.resolveToken(ctx, token)
	if err != nil {
		return dto.SurveySubmitResult{}, err
	}

	submittedBy := payload.SubmittedBy
	if submittedBy == "" {
		submittedBy = models.SurveySubmittedByStudent
	}
	return s.submit(ctx, form, submittedBy, payload)
}

func (s *surveyFormService) FormForStudent(ctx context.Context, session auth.Session, assignmentID uint) (dto.SurveyFormResponse, error) {
	form, err := s.resolveForStudent(ctx, session, assignmentID)
	if err != nil {
		return dto.SurveyFormResponse{}, err
	}
	return s.toResponse(form), nil
}

func (s *surveyFormService) SubmitForStudent(ctx context.Context, session auth.Session, assignmentID uint, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error) {
	form, err := s.resolveForStudent(ctx, session, assignmentID)
	if err != nil {
		return dto.SurveySubmitResult{}, err
	}
	return s.submit(ctx, form, models.SurveySubmittedByStudent, payload)
}

func (s *surveyFormService) resolveToken(ctx context.Context, token string) (resolvedForm, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return resolvedForm{state: dto.SurveyFormStateNotFound}, nil
	}

	assignment, err := s.assignments.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resolvedForm{state: dto.SurveyFormStateNotFound}, nil
		}
		return resolvedForm{}, err
	}
	return s.resolve(ctx, assignment)
}

// resolveForStudent hides assignments of other students behind not found.
func (s *surveyFormService) resolveForStudent(ctx context.Context, session auth.Session, assignmentID uint) (resolvedForm, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return resolvedForm{}, ErrSurveyAssignmentNotFound
		}
		return resolvedForm{}, err
	}
	if assignment.StudentID != session.StudentID {
		return resolvedForm{}, ErrSurveyAssignmentNotFound
	}
	return s.resolve(ctx, assignment)
}

func (s *surveyFormService) resolve(ctx context.Context, assignment models.SurveyAssignment) (resolvedForm, error) {
	form := resolvedForm{assignment: assignment}

	template, err := s.templates.GetByID(ctx, assignment.TemplateID)
	switch {
	case err == nil:
		form.template = &template
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return resolvedForm{}, err
	}

	switch {
	case assignment.Status == models.SurveyAssignmentStatusSubmitted:
		form.state = dto.SurveyFormStateSubmitted
	case assignment.EffectiveStatus(s.now()) == models.SurveyAssignmentStatusExpired:
		form.state = dto.SurveyFormStateExpired
	case form.template == nil:
		form.state = dto.SurveyFormStateNotFound
	case !form.template.IsActive():
		form.state = dto.SurveyFormStateLocked
	default:
		form.state = dto.SurveyFormStateOpen
	}
	return form, nil
}

func (s *surveyFormService) toResponse(form resolvedForm) dto.SurveyFormResponse {
	response := dto.SurveyFormResponse{State: form.state}
	if form.assignment.ID == 0 {
		return response
	}

	response.Assignment = dto.NewSurveyFormAssignment(dto.NewSurveyAssignmentResponse(form.assignment, s.now()))
	if form.template != nil && form.state == dto.SurveyFormStateOpen {
		template := dto.NewSurveyTemplateResponse(*form.template)
		response.Template = &template
	}
	return response
}

func (s *surveyFormService) submit(ctx context.Context, form resolvedForm, submittedBy string, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error) {
	switch form.state {
	case dto.SurveyFormStateOpen:
	case dto.SurveyFormStateSubmitted:
		return dto.SurveySubmitResult{}, ErrSurveyAssignmentSubmitted
	case dto.SurveyFormStateExpired:
		return dto.SurveySubmitResult{}, ErrSurveyAssignmentExpired
	case dto.SurveyFormStateLocked:
		return dto.SurveySubmitResult{}, ErrSurveyTemplateLocked
	default:
		return dto.SurveySubmitResult{}, ErrSurveyAssignmentNotFound
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SurveySubmitResult{}, err
	}

	questions := models.OrderedQuestions(form.template.Questions)
	answers, err := validateAnswers(questions, payload.Answers)
	if err != nil {
		return dto.SurveySubmitResult{}, err
	}

	assignment := form.assignment
	assignmentID := assignment.ID
	request := dto.SurveyResponseCreateRequest{
		AssignmentID:         &assignmentID,
		TemplateID:           assignment.TemplateID,
		TemplateName:         assignment.TemplateName,
		StudentID:            assignment.StudentID,
		StudentName:          assignment.StudentName,
		StudentCode:          assignment.StudentCode,
		ClassID:              assignment.ClassID,
		ClassName:            assignment.ClassName,
		Answers:              answers,
		Comments:             payload.Comments,
		SubmittedBy:          submittedBy,
		SubmitterName:        payload.SubmitterName,
		SubmitterPhone:       payload.SubmitterPhone,
		SurveyCategoryScores: deriveCategoryScores(questions, answers, payload.SurveyCategoryScores),
	}

	result, err := s.responses.Submit(ctx, request)
	if err != nil {
		if errors.Is(err, ErrSurveyAssignmentClosed) {
			s.logger.Warn().Uint("assignment_id", assignmentID).Msg("survey assignment closed during submission")
		}
		return dto.SurveySubmitResult{}, err
	}
	return result, nil
}

// validateAnswers keeps answers to known questions and checks required ones. A numeric 0
// counts as answered here even though it is ignored when averaging.
func validateAnswers(questions []models.SurveyQuestion, answers map[string]interface{}) (map[string]interface{}, error) {
	kept := make(map[string]interface{}, len(questions))
	missing := make([]string, 0)

	for _, question := range questions {
		value, present := answers[question.ID]
		if present && answered(value) {
			if err := checkAnswer(question, value); err != nil {
				return nil, err
			}
			kept[question.ID] = value
			continue
		}
		if question.Required {
			missing = append(missing, question.ID)
		}
	}

	if len(missing) > 0 {
		return nil, newSurveyValidationError("required questions are unanswered", missing...)
	}
	return kept, nil
}

func answered(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		_, ok := numericAnswer(v)
		return ok
	}
}

func checkAnswer(question models.SurveyQuestion, value interface{}) error {
	if question.IsNumeric() {
		number, ok := numericAnswer(value)
		if !ok {
			return newSurveyValidationError(fmt.Sprintf("question %q expects a number", question.ID))
		}
		if number < 0 || number > maxSurveyScore {
			return newSurveyValidationError(fmt.Sprintf("question %q expects a score between 0 and %d", question.ID, maxSurveyScore))
		}
		return nil
	}

	if question.Type == models.SurveyQuestionTypeChoice {
		choice, ok := value.(string)
		if !ok {
			return newSurveyValidationError(fmt.Sprintf("question %q expects one of its options", question.ID))
		}
		for _, option := range question.Options {
			if option == strings.TrimSpace(choice) {
				return nil
			}
		}
		return newSurveyValidationError(fmt.Sprintf("question %q expects one of its options", question.ID))
	}
	return nil
}
