package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
)

func seedAssignments(t *testing.T, fx *surveyFixture, templateID uint, total, submitted int) {
	t.Helper()

	for i := 0; i < total; i++ {
		status := models.SurveyAssignmentStatusPending
		if i < submitted {
			status = models.SurveyAssignmentStatusSubmitted
		}
		require.NoError(t, fx.db.Create(&models.SurveyAssignment{
			TemplateID:   templateID,
			TemplateName: "Quarterly review",
			StudentID:    uint(i + 1),
			StudentName:  fmt.Sprintf("Student %d", i+1),
			Status:       status,
			Token:        fmt.Sprintf("token-%d-%d", templateID, i),
			AssignedAt:   fx.now,
		}).Error)
	}
}

func TestSurveyStatisticsResponseRate(t *testing.T) {
	fx := setupSurveyFixture(t)
	seedAssignments(t, fx, 1, 10, 4)
	seedAssignments(t, fx, 2, 2, 2)

	templateID := uint(1)
	stats, err := fx.stats.Statistics(context.Background(), dto.SurveyResponseListRequest{TemplateID: &templateID})
	require.NoError(t, err)
	require.Equal(t, 10, stats.TotalAssigned)
	require.Equal(t, 4, stats.TotalSubmitted)
	require.Equal(t, 40.0, stats.ResponseRate)
	require.False(t, stats.CacheHit)
}

func TestSurveyStatisticsEmpty(t *testing.T) {
	fx := setupSurveyFixture(t)

	stats, err := fx.stats.Statistics(context.Background(), dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.Zero(t, stats.TotalAssigned)
	require.Zero(t, stats.ResponseRate)
	require.Zero(t, stats.AverageScores.Overall)
}

func TestSurveyStatisticsCategoryMeansSkipZero(t *testing.T) {
	fx := setupSurveyFixture(t)

	submit := func(teacher, care float64) {
		payload := baseResponseRequest(1, 1)
		payload.TeacherScore = floatPtr(teacher)
		payload.CareScore = floatPtr(care)
		_, err := fx.responses.Submit(context.Background(), payload)
		require.NoError(t, err)
	}
	submit(8, 0)
	submit(7, 9)
	submit(0, 6)

	stats, err := fx.stats.Statistics(context.Background(), dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalResponses)
	require.Equal(t, 7.5, stats.AverageScores.Teacher)
	require.Equal(t, 7.5, stats.AverageScores.Care)
	require.Zero(t, stats.AverageScores.Curriculum)
	require.Equal(t, 7.3, stats.AverageScores.Overall)
}

func TestSurveyStatisticsCacheAndInvalidation(t *testing.T) {
	fx := setupSurveyFixture(t)
	ctx := context.Background()
	seedAssignments(t, fx, 1, 4, 1)

	first, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, 25.0, first.ResponseRate)

	seedAssignments(t, fx, 2, 4, 4)

	cached, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, 4, cached.TotalAssigned)

	fx.stats.Invalidate(ctx)

	fresh, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.False(t, fresh.CacheHit)
	require.Equal(t, 8, fresh.TotalAssigned)
	require.Equal(t, 62.5, fresh.ResponseRate)
}

func TestSurveyStatisticsInvalidatedBySubmission(t *testing.T) {
	fx := setupSurveyFixture(t)
	ctx := context.Background()

	_, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)

	_, err = fx.responses.Submit(ctx, baseResponseRequest(1, 1))
	require.NoError(t, err)

	stats, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.False(t, stats.CacheHit)
	require.Equal(t, 1, stats.TotalResponses)
}

func TestSurveyStatisticsCacheExpires(t *testing.T) {
	fx := setupSurveyFixture(t)
	ctx := context.Background()

	_, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)

	fx.miniredis.FastForward(2 * time.Minute)

	stats, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{})
	require.NoError(t, err)
	require.False(t, stats.CacheHit)
}

func TestSurveyStatisticsWithoutCache(t *testing.T) {
	stats := NewSurveyStatisticsService(nil, nil, nil, 0, testLogger()).(*surveyStatisticsService)
	require.Equal(t, 5*time.Minute, stats.cacheTTL)
	require.Empty(t, stats.cacheKey(context.Background(), dto.SurveyResponseListRequest{}))
	stats.Invalidate(context.Background())
}

func TestSurveyStatisticsCacheKeyKeepsSubSecondBounds(t *testing.T) {
	fx := setupSurveyFixture(t)
	ctx := context.Background()
	stats := fx.stats

	from := fx.now.Add(-time.Hour)
	later := from.Add(500 * time.Millisecond)

	first := stats.cacheKey(ctx, dto.SurveyResponseListRequest{From: &from})
	second := stats.cacheKey(ctx, dto.SurveyResponseListRequest{From: &later})
	require.NotEmpty(t, first)
	require.NotEqual(t, first, second)

	_, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{From: &from})
	require.NoError(t, err)
	result, err := fx.stats.Statistics(ctx, dto.SurveyResponseListRequest{From: &later})
	require.NoError(t, err)
	require.False(t, result.CacheHit)
}
