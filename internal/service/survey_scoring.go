package service

import (
	"encoding/json"
	"math"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/models"
)

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}

// positiveScore keeps a score only when it counts as answered.
func positiveScore(score *float64) *float64 {
	if score == nil || *score <= 0 {
		return nil
	}
	value := *score
	return &value
}

// averageScore is the mean of the present category scores, rounded to two decimals, or
// nil when none is present.
func averageScore(scores ...*float64) *float64 {
	var sum float64
	var count int
	for _, score := range scores {
		if score == nil || *score <= 0 {
			continue
		}
		sum += *score
		count++
	}
	if count == 0 {
		return nil
	}
	avg := roundTo(sum/float64(count), 2)
	return &avg
}

// numericAnswer extracts a score from an answer value.
func numericAnswer(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		number, err := v.Float64()
		return number, err == nil
	}
	return 0, false
}

// deriveCategoryScores fills category scores the submitter did not give from the answers
// to numeric questions of that category. Answers of 0 are treated as unanswered.
func deriveCategoryScores(questions []models.SurveyQuestion, answers map[string]interface{}, given dto.SurveyCategoryScores) dto.SurveyCategoryScores {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, question := range questions {
		if !question.IsNumeric() || question.Category == "" {
			continue
		}
		value, ok := numericAnswer(answers[question.ID])
		if !ok || value <= 0 {
			continue
		}
		sums[question.Category] += value
		counts[question.Category]++
	}

	derive := func(current *float64, category string) *float64 {
		if current != nil {
			return current
		}
		if counts[category] == 0 {
			return nil
		}
		mean := roundTo(sums[category]/float64(counts[category]), 2)
		return &mean
	}

	return dto.SurveyCategoryScores{
		TeacherScore:    derive(given.TeacherScore, models.SurveyCategoryTeacher),
		CurriculumScore: derive(given.CurriculumScore, models.SurveyCategoryCurriculum),
		CareScore:       derive(given.CareScore, models.SurveyCategoryCare),
		FacilitiesScore: derive(given.FacilitiesScore, models.SurveyCategoryFacilities),
	}
}
