package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/repository"
)

const (
	surveyStatsVersionKey = "survey:stats:version"
	surveyStatsKeyPrefix  = "survey:stats"
)

// SurveyStatisticsService aggregates response rate and mean scores.
type SurveyStatisticsService interface {
	StatisticsInvalidator
	Statistics(ctx context.Context, req dto.SurveyResponseListRequest) (dto.SurveyStatisticsResponse, error)
}

type surveyStatisticsService struct {
	assignments repository.SurveyAssignmentRepository
	responses   repository.SurveyResponseRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSurveyStatisticsService constructs the aggregator. A nil cache disables caching.
func NewSurveyStatisticsService(assignments repository.SurveyAssignmentRepository, responses repository.SurveyResponseRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) SurveyStatisticsService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &surveyStatisticsService{
		assignments: assignments,
		responses:   responses,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "survey_statistics_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-survey-api/internal/service/survey_statistics"),
	}
}

func (s *surveyStatisticsService) Statistics(ctx context.Context, req dto.SurveyResponseListRequest) (dto.SurveyStatisticsResponse, error) {
	attrs := []attribute.KeyValue{}
	if req.TemplateID != nil {
		attrs = append(attrs, attribute.Int("survey.template_id", int(*req.TemplateID)))
	}
	if req.ClassID != nil {
		attrs = append(attrs, attribute.Int("survey.class_id", int(*req.ClassID)))
	}
	spanCtx, span := s.tracer.Start(ctx, "surveys.statistics", trace.WithAttributes(attrs...))
	defer span.End()

	cacheKey := s.cacheKey(spanCtx, req)
	if cacheKey != "" {
		if cached, err := s.cache.Get(spanCtx, cacheKey).Result(); err == nil {
			var response dto.SurveyStatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				observability.SurveyStatisticsCache().WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("cache.hit", true))
				response.CacheHit = true
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read survey statistics cache")
		}
		observability.SurveyStatisticsCache().WithLabelValues("miss").Inc()
	}

	assignments, err := s.assignments.List(spanCtx, repository.SurveyAssignmentFilter{TemplateID: req.TemplateID})
	if err != nil {
		span.RecordError(err)
		return dto.SurveyStatisticsResponse{}, err
	}

	responses, err := s.responses.List(spanCtx, repository.SurveyResponseFilter{
		TemplateID: req.TemplateID,
		ClassID:    req.ClassID,
		From:       req.From,
		To:         req.To,
	})
	if err != nil {
		span.RecordError(err)
		return dto.SurveyStatisticsResponse{}, err
	}

	response := computeSurveyStatistics(assignments, responses)

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(spanCtx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store survey statistics cache")
			}
		}
	}

	return response, nil
}

// Invalidate bumps the cache version so every cached filter combination goes stale at once.
func (s *surveyStatisticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, surveyStatsVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate survey statistics cache")
	}
}

func (s *surveyStatisticsService) cacheKey(ctx context.Context, req dto.SurveyResponseListRequest) string {
	if s.cache == nil {
		return ""
	}

	version, err := s.cache.Get(ctx, surveyStatsVersionKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read survey statistics cache version")
		return ""
	}

	return fmt.Sprintf("%s:v%d:t%s:c%s:f%s:u%s",
		surveyStatsKeyPrefix,
		version,
		optionalUintKey(req.TemplateID),
		optionalUintKey(req.ClassID),
		optionalTimeKey(req.From),
		optionalTimeKey(req.To),
	)
}

func computeSurveyStatistics(assignments []models.SurveyAssignment, responses []models.SurveyResponse) dto.SurveyStatisticsResponse {
	stats := dto.SurveyStatisticsResponse{
		TotalAssigned:  len(assignments),
		TotalResponses: len(responses),
	}
	for _, assignment := range assignments {
		if assignment.Status == models.SurveyAssignmentStatusSubmitted {
			stats.TotalSubmitted++
		}
	}
	if stats.TotalAssigned > 0 {
		stats.ResponseRate = roundTo(float64(stats.TotalSubmitted)/float64(stats.TotalAssigned)*100, 1)
	}

	var teacher, curriculum, care, facilities, overall meanAccumulator
	for _, response := range responses {
		teacher.add(response.TeacherScore)
		curriculum.add(response.CurriculumScore)
		care.add(response.CareScore)
		facilities.add(response.FacilitiesScore)
		overall.add(response.AverageScore)
	}

	stats.AverageScores = dto.SurveyAverageScores{
		Teacher:    teacher.mean(),
		Curriculum: curriculum.mean(),
		Care:       care.mean(),
		Facilities: facilities.mean(),
		Overall:    overall.mean(),
	}
	return stats
}

type meanAccumulator struct {
	sum   float64
	count int
}

func (m *meanAccumulator) add(value *float64) {
	if value == nil || *value <= 0 {
		return
	}
	m.sum += *value
	m.count++
}

func (m meanAccumulator) mean() float64 {
	if m.count == 0 {
		return 0
	}
	return roundTo(m.sum/float64(m.count), 1)
}

func optionalUintKey(value *uint) string {
	if value == nil {
		return "*"
	}
	return strconv.FormatUint(uint64(*value), 10)
}

func optionalTimeKey(value *time.Time) string {
	if value == nil {
		return "*"
	}
	return strconv.FormatInt(value.UnixNano(), 10)
}
