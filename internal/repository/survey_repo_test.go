package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-survey-api/internal/models"
)

func newPendingAssignment(templateID, studentID uint, token string) *models.SurveyAssignment {
	return &models.SurveyAssignment{
		TemplateID:   templateID,
		TemplateName: "Quarterly review",
		StudentID:    studentID,
		StudentName:  "Ana",
		Token:        token,
		AssignedAt:   time.Now(),
	}
}

func TestSurveyAssignmentRepositoryCreatePendingSkipsDuplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSurveyAssignmentRepository(db)
	ctx := context.Background()

	created, err := repo.CreatePending(ctx, newPendingAssignment(1, 10, "tok-a"))
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.CreatePending(ctx, newPendingAssignment(1, 10, "tok-b"))
	require.NoError(t, err)
	require.False(t, created, "a second pending row for the same pair must not be inserted")

	created, err = repo.CreatePending(ctx, newPendingAssignment(2, 10, "tok-a"))
	require.NoError(t, err)
	require.False(t, created, "token collisions must not be inserted")

	pending, err := repo.FindPending(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, "tok-a", pending.Token)
	require.Equal(t, models.SurveyAssignmentStatusPending, pending.Status)

	require.NoError(t, db.Model(&models.SurveyAssignment{}).Where("id = ?", pending.ID).Update("status", models.SurveyAssignmentStatusSubmitted).Error)
	created, err = repo.CreatePending(ctx, newPendingAssignment(1, 10, "tok-c"))
	require.NoError(t, err)
	require.True(t, created, "submitted rows do not block a new pending assignment")
}

func TestSurveyAssignmentRepositoryCreatePendingReplacesOverdueRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSurveyAssignmentRepository(db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	expiry := now.Add(time.Hour)
	overdue := newPendingAssignment(1, 10, "tok-old")
	overdue.AssignedAt = now
	overdue.ExpiresAt = &expiry
	created, err := repo.CreatePending(ctx, overdue)
	require.NoError(t, err)
	require.True(t, created)

	early := newPendingAssignment(1, 10, "tok-early")
	early.AssignedAt = now.Add(30 * time.Minute)
	created, err = repo.CreatePending(ctx, early)
	require.NoError(t, err)
	require.False(t, created, "a pending row that has not expired still blocks the pair")

	late := newPendingAssignment(1, 10, "tok-new")
	late.AssignedAt = now.Add(2 * time.Hour)
	created, err = repo.CreatePending(ctx, late)
	require.NoError(t, err)
	require.True(t, created)

	stored, err := repo.GetByID(ctx, overdue.ID)
	require.NoError(t, err)
	require.Equal(t, models.SurveyAssignmentStatusExpired, stored.Status)

	pending, err := repo.FindPending(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, "tok-new", pending.Token)
}

func TestSurveyAssignmentRepositoryExpireOverdue(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSurveyAssignmentRepository(db)
	ctx := context.Background()
	now := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := newPendingAssignment(1, 1, "tok-1")
	overdue.ExpiresAt = &past
	open := newPendingAssignment(1, 2, "tok-2")
	open.ExpiresAt = &future
	noExpiry := newPendingAssignment(1, 3, "tok-3")
	for _, assignment := range []*models.SurveyAssignment{overdue, open, noExpiry} {
		_, err := repo.CreatePending(ctx, assignment)
		require.NoError(t, err)
	}

	count, err := repo.ExpireOverdue(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	expired, err := repo.List(ctx, SurveyAssignmentFilter{Status: models.SurveyAssignmentStatusExpired})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "tok-1", expired[0].Token)

	studentID := uint(2)
	filtered, err := repo.List(ctx, SurveyAssignmentFilter{StudentID: &studentID})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	byToken, err := repo.GetByToken(ctx, "tok-3")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, byToken.ID))
	require.Error(t, repo.Delete(ctx, byToken.ID))
}

func TestSurveyResponseRepositoryRecordMarksAssignmentSubmitted(t *testing.T) {
	db := setupTestDB(t)
	assignments := NewSurveyAssignmentRepository(db)
	responses := NewSurveyResponseRepository(db)
	ctx := context.Background()

	assignment := newPendingAssignment(1, 10, "tok-a")
	_, err := assignments.CreatePending(ctx, assignment)
	require.NoError(t, err)

	submittedAt := time.Now().UTC().Truncate(time.Second)
	score := 8.0
	response := &models.SurveyResponse{
		AssignmentID: &assignment.ID,
		TemplateID:   1,
		TemplateName: "Quarterly review",
		StudentID:    10,
		StudentName:  "Ana",
		TeacherScore: &score,
		AverageScore: &score,
		Answers:      datatypes.JSONMap{"q1": "8"},
		SubmittedAt:  submittedAt,
		SubmittedBy:  models.SurveySubmittedByStudent,
	}
	require.NoError(t, responses.Record(ctx, response))
	require.NotZero(t, response.ID)

	stored, err := assignments.GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.SurveyAssignmentStatusSubmitted, stored.Status)
	require.NotNil(t, stored.SubmittedAt)

	again := *response
	again.ID = 0
	require.ErrorIs(t, responses.Record(ctx, &again), ErrSurveyAssignmentNotPending)

	var count int64
	require.NoError(t, db.Model(&models.SurveyResponse{}).Count(&count).Error)
	require.Equal(t, int64(1), count, "failed submissions must roll back")
}

func TestSurveyResponseRepositoryLeavesUnsetColumnsNull(t *testing.T) {
	db := setupTestDB(t)
	responses := NewSurveyResponseRepository(db)
	ctx := context.Background()

	response := &models.SurveyResponse{
		TemplateID:   1,
		TemplateName: "Quarterly review",
		StudentID:    10,
		StudentName:  "Ana",
		Answers:      datatypes.JSONMap{},
		SubmittedAt:  time.Now(),
		SubmittedBy:  models.SurveySubmittedByParent,
	}
	require.NoError(t, responses.Record(ctx, response))

	var nullCount int64
	require.NoError(t, db.Model(&models.SurveyResponse{}).
		Where("teacher_score IS NULL AND average_score IS NULL AND assignment_id IS NULL AND class_id IS NULL").
		Count(&nullCount).Error)
	require.Equal(t, int64(1), nullCount)

	require.Equal(t, []string{"assignment_id", "teacher_score"}, unsetResponseColumns(&models.SurveyResponse{
		StudentCode: new(string), ClassID: new(uint), ClassName: new(string),
		CurriculumScore: new(float64), CareScore: new(float64), FacilitiesScore: new(float64),
		AverageScore: new(float64), Comments: new(string), SubmitterName: new(string), SubmitterPhone: new(string),
	}))
}

func TestSurveyResponseRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t)
	responses := NewSurveyResponseRepository(db)
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	classA := uint(1)
	for i, classID := range []*uint{&classA, nil, &classA} {
		require.NoError(t, responses.Record(ctx, &models.SurveyResponse{
			TemplateID:   uint(i%2 + 1),
			TemplateName: "Quarterly review",
			StudentID:    uint(i + 1),
			StudentName:  "Student",
			ClassID:      classID,
			Answers:      datatypes.JSONMap{},
			SubmittedAt:  base.Add(time.Duration(i) * 24 * time.Hour),
			SubmittedBy:  models.SurveySubmittedByStudent,
		}))
	}

	all, err := responses.List(ctx, SurveyResponseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint(3), all[0].StudentID, "newest submission first")

	byClass, err := responses.List(ctx, SurveyResponseFilter{ClassID: &classA})
	require.NoError(t, err)
	require.Len(t, byClass, 2)

	from := base.Add(12 * time.Hour)
	templateID := uint(1)
	windowed, err := responses.List(ctx, SurveyResponseFilter{TemplateID: &templateID, From: &from})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	require.Equal(t, uint(3), windowed[0].StudentID)
}

func TestSurveyTemplateRepositoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSurveyTemplateRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateBatch(ctx, []models.SurveyTemplate{
		{Name: "First", Status: models.SurveyTemplateStatusActive, Questions: datatypes.NewJSONSlice([]models.SurveyQuestion{{ID: "q1", Question: "?", Type: models.SurveyQuestionTypeText}})},
		{Name: "Second", Status: models.SurveyTemplateStatusActive},
	}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	templates, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	first, err := repo.GetByID(ctx, templates[len(templates)-1].ID)
	require.NoError(t, err)
	first.Status = models.SurveyTemplateStatusInactive
	require.NoError(t, repo.Update(ctx, &first))

	reloaded, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, models.SurveyTemplateStatusInactive, reloaded.Status)

	require.NoError(t, repo.Delete(ctx, first.ID))
	require.Error(t, repo.Delete(ctx, first.ID))
}
