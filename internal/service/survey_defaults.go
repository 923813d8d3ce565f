package service

import "github.com/noah-isme/gema-survey-api/internal/models"

// defaultSurveyTemplates returns fresh copies of the built-in templates.
func defaultSurveyTemplates() []models.SurveyTemplate {
	return []models.SurveyTemplate{
		{
			Name:        "Service quality review",
			Description: "Periodic review of teachers, curriculum, student care and facilities.",
			IsDefault:   true,
			Status:      models.SurveyTemplateStatusActive,
			Questions: []models.SurveyQuestion{
				{ID: "q1", Question: "How would you rate your teacher?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryTeacher, Required: true, Order: 1},
				{ID: "q2", Question: "How clearly does the teacher explain lessons?", Type: models.SurveyQuestionTypeRating, Category: models.SurveyCategoryTeacher, Required: true, Order: 2},
				{ID: "q3", Question: "How well does the curriculum fit your needs?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryCurriculum, Required: true, Order: 3},
				{ID: "q4", Question: "How would you rate the care and attention from the center?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryCare, Required: true, Order: 4},
				{ID: "q5", Question: "How would you rate the classrooms and facilities?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryFacilities, Required: true, Order: 5},
				{ID: "q6", Question: "Any other feedback for the center?", Type: models.SurveyQuestionTypeText, Category: models.SurveyCategoryGeneral, Order: 6},
			},
		},
		{
			Name:        "End of course survey",
			Description: "Feedback collected when a course finishes.",
			IsDefault:   true,
			Status:      models.SurveyTemplateStatusActive,
			Questions: []models.SurveyQuestion{
				{ID: "q1", Question: "Overall, how satisfied are you with the course?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryGeneral, Required: true, Order: 1},
				{ID: "q2", Question: "How well did the teacher support you during the course?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryTeacher, Required: true, Order: 2},
				{ID: "q3", Question: "Did the course help you reach your goals?", Type: models.SurveyQuestionTypeScore, Category: models.SurveyCategoryCurriculum, Required: true, Order: 3},
				{ID: "q4", Question: "Would you like to continue with the next course?", Type: models.SurveyQuestionTypeChoice, Category: models.SurveyCategoryGeneral, Options: []string{"Yes", "Not sure", "No"}, Required: true, Order: 4},
				{ID: "q5", Question: "What did you like most about the course?", Type: models.SurveyQuestionTypeText, Category: models.SurveyCategoryGeneral, Order: 5},
			},
		},
		{
			Name:        "Monthly quick pulse",
			Description: "Three short questions to track satisfaction month to month.",
			IsDefault:   true,
			Status:      models.SurveyTemplateStatusActive,
			Questions: []models.SurveyQuestion{
				{ID: "q1", Question: "How happy were you with your teacher this month?", Type: models.SurveyQuestionTypeRating, Category: models.SurveyCategoryTeacher, Required: true, Order: 1},
				{ID: "q2", Question: "Did the center keep track of your progress?", Type: models.SurveyQuestionTypeRating, Category: models.SurveyCategoryCare, Required: true, Order: 2},
				{ID: "q3", Question: "Anything you would like to share?", Type: models.SurveyQuestionTypeText, Category: models.SurveyCategoryGeneral, Order: 3},
			},
		},
	}
}
