package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
)

func baseResponseRequest(templateID, studentID uint) dto.SurveyResponseCreateRequest {
	return dto.SurveyResponseCreateRequest{
		TemplateID:   templateID,
		TemplateName: "Quarterly review",
		StudentID:    studentID,
		StudentName:  "Ana",
		Answers:      map[string]interface{}{"q1": 8.0},
		SubmittedBy:  models.SurveySubmittedByParent,
	}
}

func TestSurveyResponseServiceAverageIgnoresMissingScores(t *testing.T) {
	fx := setupSurveyFixture(t)

	payload := baseResponseRequest(1, 1)
	payload.TeacherScore = floatPtr(8)
	payload.CurriculumScore = floatPtr(6)
	payload.FacilitiesScore = floatPtr(9)

	result, err := fx.responses.Submit(context.Background(), payload)
	require.NoError(t, err)
	require.NotZero(t, result.ResponseID)
	require.NotNil(t, result.AverageScore)
	require.Equal(t, 7.67, *result.AverageScore)
}

func TestSurveyResponseServiceZeroScoreIsNotStored(t *testing.T) {
	fx := setupSurveyFixture(t)

	payload := baseResponseRequest(1, 1)
	payload.TeacherScore = floatPtr(0)
	payload.CareScore = floatPtr(10)

	result, err := fx.responses.Submit(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, 10.0, *result.AverageScore)

	stored, err := fx.responses.Get(context.Background(), result.ResponseID)
	require.NoError(t, err)
	require.Nil(t, stored.TeacherScore)
	require.Equal(t, 10.0, *stored.CareScore)
}

func TestSurveyResponseServiceWithoutScoresHasNoAverage(t *testing.T) {
	fx := setupSurveyFixture(t)

	result, err := fx.responses.Submit(context.Background(), baseResponseRequest(1, 1))
	require.NoError(t, err)
	require.Nil(t, result.AverageScore)
}

func TestSurveyResponseServiceOmitsUnsetFields(t *testing.T) {
	fx := setupSurveyFixture(t)

	payload := baseResponseRequest(1, 1)
	payload.Comments = stringPtr("   ")
	result, err := fx.responses.Submit(context.Background(), payload)
	require.NoError(t, err)

	var row map[string]interface{}
	require.NoError(t, fx.db.Table("survey_responses").Where("id = ?", result.ResponseID).Take(&row).Error)
	require.Nil(t, row["comments"])
	require.Nil(t, row["class_name"])
	require.Nil(t, row["class_id"])
	require.Nil(t, row["average_score"])

	stored, err := fx.responses.Get(context.Background(), result.ResponseID)
	require.NoError(t, err)
	encoded, err := json.Marshal(stored)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	for _, key := range []string{"comments", "class_name", "class_id", "average_score", "assignment_id", "submitter_name"} {
		require.NotContains(t, decoded, key)
	}
	require.Equal(t, "parent", decoded["submitted_by"])
}

func TestSurveyResponseServiceSanitisesText(t *testing.T) {
	fx := setupSurveyFixture(t)

	payload := baseResponseRequest(1, 1)
	payload.Answers = map[string]interface{}{"q5": "<script>alert(1)</script>Great class"}
	payload.Comments = stringPtr("<b>Thanks</b>")

	result, err := fx.responses.Submit(context.Background(), payload)
	require.NoError(t, err)

	stored, err := fx.responses.Get(context.Background(), result.ResponseID)
	require.NoError(t, err)
	require.Equal(t, "Great class", stored.Answers["q5"])
	require.Equal(t, "Thanks", *stored.Comments)
}

func TestSurveyResponseServiceRejectsStructuredAnswers(t *testing.T) {
	fx := setupSurveyFixture(t)

	payload := baseResponseRequest(1, 1)
	payload.Answers = map[string]interface{}{"q1": []interface{}{1, 2}}

	_, err := fx.responses.Submit(context.Background(), payload)
	require.ErrorIs(t, err, ErrSurveyValidation)
}

func TestSurveyResponseServiceMarksAssignmentSubmitted(t *testing.T) {
	fx := setupSurveyFixture(t)
	student := fx.createStudent(t, "S-001", "Ana", 1)
	template := fx.createTemplate(t)
	assignment := fx.assign(t, template.ID, student.ID).Created[0]

	payload := baseResponseRequest(template.ID, student.ID)
	payload.AssignmentID = &assignment.ID
	result, err := fx.responses.Submit(context.Background(), payload)
	require.NoError(t, err)
	require.Equal(t, assignment.ID, *result.AssignmentID)

	stored, err := fx.assignments.Get(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, models.SurveyAssignmentStatusSubmitted, stored.Status)
	require.NotNil(t, stored.SubmittedAt)

	pending, err := fx.assignments.PendingForStudent(context.Background(), student.ID)
	require.NoError(t, err)
	require.Empty(t, pending)

	_, err = fx.responses.Submit(context.Background(), payload)
	require.ErrorIs(t, err, ErrSurveyAssignmentClosed)

	var count int64
	require.NoError(t, fx.db.Model(&models.SurveyResponse{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSurveyResponseServiceListFilters(t *testing.T) {
	fx := setupSurveyFixture(t)

	first := baseResponseRequest(1, 1)
	classID := uint(5)
	first.ClassID = &classID
	_, err := fx.responses.Submit(context.Background(), first)
	require.NoError(t, err)
	_, err = fx.responses.Submit(context.Background(), baseResponseRequest(2, 2))
	require.NoError(t, err)

	all, err := fx.responses.List(context.Background(), dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	byClass, err := fx.responses.List(context.Background(), dto.SurveyResponseListRequest{ClassID: &classID})
	require.NoError(t, err)
	require.Len(t, byClass, 1)
	require.Equal(t, uint(1), byClass[0].TemplateID)

	_, err = fx.responses.Get(context.Background(), 999)
	require.ErrorIs(t, err, ErrSurveyResponseNotFound)
}

func TestAverageScoreRounding(t *testing.T) {
	require.Nil(t, averageScore())
	require.Nil(t, averageScore(nil, floatPtr(0)))
	require.Equal(t, 7.67, *averageScore(floatPtr(8), floatPtr(6), nil, floatPtr(9)))
	require.Equal(t, 5.0, *averageScore(floatPtr(5), floatPtr(0)))
}

func TestNumericAnswerAcceptsStoredNumbers(t *testing.T) {
	value, ok := numericAnswer(json.Number("7.5"))
	require.True(t, ok)
	require.Equal(t, 7.5, value)

	_, ok = numericAnswer(json.Number("seven"))
	require.False(t, ok)

	scores := deriveCategoryScores(
		[]models.SurveyQuestion{{ID: "q1", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryTeacher}},
		map[string]interface{}{"q1": json.Number("9")},
		dto.SurveyCategoryScores{},
	)
	require.Equal(t, 9.0, *scores.TeacherScore)
}
