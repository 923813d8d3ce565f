package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) (dto.AdminActivityResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return dto.AdminActivityResponse{Action: entry.Action, EntityType: entry.EntityType, EntityID: entry.EntityID}, nil
}

func (s *stubActivityRecorder) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.entries))
	for _, entry := range s.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type surveyFixture struct {
	db          *gorm.DB
	redis       *redis.Client
	miniredis   *miniredis.Miniredis
	feed        SurveyFeed
	activity    *stubActivityRecorder
	validate    *validator.Validate
	now         time.Time
	students    repository.StudentRepository
	templates   *surveyTemplateService
	assignments *surveyAssignmentService
	responses   *surveyResponseService
	forms       *surveyFormService
	stats       *surveyStatisticsService
}

var fixtureNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func setupSurveyFixture(t *testing.T) *surveyFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:survey_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.SurveyTemplate{},
		&models.SurveyAssignment{},
		&models.SurveyResponse{},
		&models.ActivityLog{},
	))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := testLogger()
	validate := validator.New(validator.WithRequiredStructEnabled())
	feed := NewSurveyFeed(nil, "", nil, logger)
	activity := &stubActivityRecorder{}
	clock := func() time.Time { return fixtureNow }

	studentRepo := repository.NewStudentRepository(db)
	templateRepo := repository.NewSurveyTemplateRepository(db)
	assignmentRepo := repository.NewSurveyAssignmentRepository(db)
	responseRepo := repository.NewSurveyResponseRepository(db)

	stats := NewSurveyStatisticsService(assignmentRepo, responseRepo, client, time.Minute, logger).(*surveyStatisticsService)
	templates := NewSurveyTemplateService(templateRepo, feed, validate, activity, logger).(*surveyTemplateService)
	templates.now = clock
	assignments := NewSurveyAssignmentService(assignmentRepo, templateRepo, studentRepo, feed, stats, validate, activity, logger).(*surveyAssignmentService)
	assignments.now = clock
	responses := NewSurveyResponseService(responseRepo, feed, stats, validate, logger).(*surveyResponseService)
	responses.now = clock
	forms := NewSurveyFormService(assignmentRepo, templateRepo, responses, validate, logger).(*surveyFormService)
	forms.now = clock

	return &surveyFixture{
		db:          db,
		redis:       client,
		miniredis:   mr,
		feed:        feed,
		activity:    activity,
		validate:    validate,
		now:         fixtureNow,
		students:    studentRepo,
		templates:   templates,
		assignments: assignments,
		responses:   responses,
		forms:       forms,
		stats:       stats,
	}
}

func (f *surveyFixture) createStudent(t *testing.T, code, name string, classID uint) models.Student {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	student := models.Student{
		Code:         code,
		Name:         name,
		ClassName:    fmt.Sprintf("Class %d", classID),
		PasswordHash: string(hash),
		Status:       models.StudentStatusActive,
	}
	if classID > 0 {
		student.ClassID = &classID
	}
	require.NoError(t, f.db.Create(&student).Error)
	return student
}

func (f *surveyFixture) createTemplate(t *testing.T, questions ...dto.SurveyQuestionPayload) dto.SurveyTemplateResponse {
	t.Helper()

	if len(questions) == 0 {
		questions = serviceQualityQuestions()
	}
	template, err := f.templates.Create(context.Background(), dto.SurveyTemplateCreateRequest{
		Name:      "Quarterly review",
		Questions: questions,
	}, ActivityActor{ID: 1, Role: "admin"})
	require.NoError(t, err)
	return template
}

func (f *surveyFixture) assign(t *testing.T, templateID uint, studentIDs ...uint) dto.SurveyAssignResponse {
	t.Helper()

	result, err := f.assignments.Assign(context.Background(), dto.SurveyAssignRequest{
		TemplateID: templateID,
		StudentIDs: studentIDs,
	}, ActivityActor{ID: 1, Role: "admin"})
	require.NoError(t, err)
	return result
}

func serviceQualityQuestions() []dto.SurveyQuestionPayload {
	return []dto.SurveyQuestionPayload{
		{ID: "q1", Question: "How clear were the lessons?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryTeacher, Required: true, Order: 1},
		{ID: "q2", Question: "How useful was the material?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryCurriculum, Required: true, Order: 2},
		{ID: "q3", Question: "How well were you looked after?", Type: models.SurveyQuestionTypeRating, Category: models.SurveyCategoryCare, Order: 3},
		{ID: "q4", Question: "Would you recommend us?", Type: models.SurveyQuestionTypeChoice, Options: []string{"Yes", "No"}, Order: 4},
		{ID: "q5", Question: "Anything else to share?", Type: models.SurveyQuestionTypeText, Order: 5},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func stringPtr(v string) *string {
	return &v
}
