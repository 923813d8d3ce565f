package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-survey-api/internal/config"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SurveyTemplateHandler   *handler.SurveyTemplateHandler
	SurveyAssignmentHandler *handler.SurveyAssignmentHandler
	SurveyResponseHandler   *handler.SurveyResponseHandler
	SurveyLiveHandler       *handler.SurveyLiveHandler
	SurveyFormHandler       *handler.SurveyFormHandler
	StudentPortalHandler    *handler.StudentPortalHandler
	AdminStudentHandler     *handler.AdminStudentHandler
	AdminActivityHandler    *handler.AdminActivityHandler
	HealthProbes            map[string]handler.HealthProbe
	JWTMiddleware           fiber.Handler
	StudentSession          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Public token forms
	if deps.SurveyFormHandler != nil {
		forms := api.Group("/surveys/forms")
		deps.SurveyFormHandler.Register(forms, middleware.RateLimit("survey_form", cfg.PublicFormRateLimit, publicWindow(cfg)))
	}

	// Student portal
	if deps.StudentPortalHandler != nil {
		session := deps.StudentSession
		if session == nil {
			session = func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusUnauthorized, "student session unavailable")
			}
		}
		student := api.Group("/student")
		deps.StudentPortalHandler.Register(student, session, middleware.RateLimit("student_login", 10, time.Minute))
	}

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Admin
	admin := app.Group("/api/admin", jwtMiddleware, middleware.RequireRole(middleware.SurveyAdminRoles...))
	surveys := admin.Group("/surveys")

	if deps.SurveyTemplateHandler != nil {
		deps.SurveyTemplateHandler.Register(surveys.Group("/templates"))
	}
	if deps.SurveyAssignmentHandler != nil {
		deps.SurveyAssignmentHandler.Register(surveys.Group("/assignments"))
	}
	if deps.SurveyResponseHandler != nil {
		deps.SurveyResponseHandler.Register(surveys.Group("/responses"))
	}
	if deps.SurveyLiveHandler != nil {
		deps.SurveyLiveHandler.Register(surveys.Group("/live"))
	}
	if deps.AdminStudentHandler != nil {
		deps.AdminStudentHandler.Register(admin.Group("/students"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activities"))
	}
}

func publicWindow(cfg config.Config) time.Duration {
	if cfg.PublicFormRateWindow <= 0 {
		return time.Minute
	}
	return cfg.PublicFormRateWindow
}
