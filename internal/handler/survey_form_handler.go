package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// SurveyFormHandler serves the public, token-addressed survey forms. The token is the
// only credential.
type SurveyFormHandler struct {
	forms  service.SurveyFormService
	logger zerolog.Logger
}

// NewSurveyFormHandler constructs the handler.
func NewSurveyFormHandler(forms service.SurveyFormService, logger zerolog.Logger) *SurveyFormHandler {
	return &SurveyFormHandler{
		forms:  forms,
		logger: logger.With().Str("component", "survey_form_handler").Logger(),
	}
}

// Register attaches the form endpoints. submitGuards run before the submission handler.
func (h *SurveyFormHandler) Register(router fiber.Router, submitGuards ...fiber.Handler) {
	router.Get("/:token", h.resolve)

	handlers := append(append([]fiber.Handler{}, submitGuards...), h.submit)
	router.Post("/:token/responses", handlers...)
}

// resolve always answers 200 with the form state so a client can render "already
// submitted" or "invalid link" pages.
func (h *SurveyFormHandler) resolve(c *fiber.Ctx) error {
	form, err := h.forms.Resolve(requestContext(c), c.Params("token"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey form "+form.State, form)
}

func (h *SurveyFormHandler) submit(c *fiber.Ctx) error {
	var payload dto.SurveyFormSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.forms.SubmitByToken(requestContext(c), c.Params("token"), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("response_id", result.ResponseID).Msg("public survey submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "survey submitted", result)
}
