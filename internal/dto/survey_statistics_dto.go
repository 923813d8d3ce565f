package dto

// SurveyAverageScores holds the rounded category and overall means.
type SurveyAverageScores struct {
	Teacher    float64 `json:"teacher"`
	Curriculum float64 `json:"curriculum"`
	Care       float64 `json:"care"`
	Facilities float64 `json:"facilities"`
	Overall    float64 `json:"overall"`
}

// SurveyStatisticsResponse summarises assignments and responses for a filter.
type SurveyStatisticsResponse struct {
	TotalAssigned  int                 `json:"total_assigned"`
	TotalSubmitted int                 `json:"total_submitted"`
	TotalResponses int                 `json:"total_responses"`
	ResponseRate   float64             `json:"response_rate"`
	AverageScores  SurveyAverageScores `json:"average_scores"`
	CacheHit       bool                `json:"cache_hit"`
}
