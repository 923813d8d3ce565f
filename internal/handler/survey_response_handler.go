package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// SurveyResponseHandler exposes recorded responses and their statistics to admins.
type SurveyResponseHandler struct {
	responses  service.SurveyResponseService
	statistics service.SurveyStatisticsService
	logger     zerolog.Logger
}

// NewSurveyResponseHandler constructs the handler.
func NewSurveyResponseHandler(responses service.SurveyResponseService, statistics service.SurveyStatisticsService, logger zerolog.Logger) *SurveyResponseHandler {
	return &SurveyResponseHandler{
		responses:  responses,
		statistics: statistics,
		logger:     logger.With().Str("component", "survey_response_handler").Logger(),
	}
}

// Register attaches response endpoints to the router group.
func (h *SurveyResponseHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/statistics", h.stats)
	router.Get("/:id", h.get)
}

func (h *SurveyResponseHandler) list(c *fiber.Ctx) error {
	filter, err := parseResponseFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if filter.StudentID, err = parseOptionalUintQuery(c, "student_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	responses, err := h.responses.List(requestContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, responses, "survey responses retrieved", fiber.Map{"total": len(responses)})
}

func (h *SurveyResponseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.responses.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey response retrieved", response)
}

func (h *SurveyResponseHandler) stats(c *fiber.Ctx) error {
	filter, err := parseResponseFilter(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.statistics.Statistics(requestContext(c), filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey statistics", stats)
}

func parseResponseFilter(c *fiber.Ctx) (dto.SurveyResponseListRequest, error) {
	var filter dto.SurveyResponseListRequest
	var err error
	if filter.TemplateID, err = parseOptionalUintQuery(c, "template_id"); err != nil {
		return filter, err
	}
	if filter.ClassID, err = parseOptionalUintQuery(c, "class_id"); err != nil {
		return filter, err
	}
	if filter.From, err = parseOptionalTimeQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseOptionalTimeQuery(c, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}
