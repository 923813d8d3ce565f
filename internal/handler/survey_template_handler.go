package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// SurveyTemplateHandler exposes template administration.
type SurveyTemplateHandler struct {
	service service.SurveyTemplateService
	logger  zerolog.Logger
}

// NewSurveyTemplateHandler constructs the handler.
func NewSurveyTemplateHandler(service service.SurveyTemplateService, logger zerolog.Logger) *SurveyTemplateHandler {
	return &SurveyTemplateHandler{
		service: service,
		logger:  logger.With().Str("component", "survey_template_handler").Logger(),
	}
}

// Register attaches template endpoints to the router group.
func (h *SurveyTemplateHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/defaults", h.ensureDefaults)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *SurveyTemplateHandler) list(c *fiber.Ctx) error {
	templates, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, templates, "survey templates retrieved", fiber.Map{"total": len(templates)})
}

func (h *SurveyTemplateHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	template, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey template retrieved", template)
}

func (h *SurveyTemplateHandler) create(c *fiber.Ctx) error {
	var payload dto.SurveyTemplateCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	template, err := h.service.Create(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("template_id", template.ID).Msg("survey template created")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "survey template created", template)
}

func (h *SurveyTemplateHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SurveyTemplateUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	template, err := h.service.Update(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey template updated", template)
}

func (h *SurveyTemplateHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey template deleted", fiber.Map{"id": id})
}

func (h *SurveyTemplateHandler) ensureDefaults(c *fiber.Ctx) error {
	inserted, err := h.service.EnsureDefaults(requestContext(c), activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "default survey templates ensured", fiber.Map{"inserted": inserted})
}
