package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// SurveyAssignmentHandler exposes assignment administration.
type SurveyAssignmentHandler struct {
	service service.SurveyAssignmentService
	logger  zerolog.Logger
}

// NewSurveyAssignmentHandler constructs the handler.
func NewSurveyAssignmentHandler(service service.SurveyAssignmentService, logger zerolog.Logger) *SurveyAssignmentHandler {
	return &SurveyAssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "survey_assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *SurveyAssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.assign)
	router.Post("/expire", h.expire)
	router.Get("/:id", h.get)
	router.Delete("/:id", h.cancel)
}

func (h *SurveyAssignmentHandler) list(c *fiber.Ctx) error {
	templateID, err := parseOptionalUintQuery(c, "template_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	studentID, err := parseOptionalUintQuery(c, "student_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignments, err := h.service.List(requestContext(c), dto.SurveyAssignmentListRequest{
		TemplateID: templateID,
		StudentID:  studentID,
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, assignments, "survey assignments retrieved", fiber.Map{"total": len(assignments)})
}

func (h *SurveyAssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey assignment retrieved", assignment)
}

func (h *SurveyAssignmentHandler) assign(c *fiber.Ctx) error {
	var payload dto.SurveyAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Assign(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("template_id", payload.TemplateID).
		Int("requested", len(payload.StudentIDs)).
		Int("created", len(result.Created)).
		Msg("survey assigned")

	status := fiber.StatusOK
	if len(result.Created) > 0 {
		status = fiber.StatusCreated
	}
	return utils.SendSuccessWithStatus(c, status, "survey assigned", result)
}

func (h *SurveyAssignmentHandler) cancel(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Cancel(requestContext(c), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey assignment cancelled", fiber.Map{"id": id})
}

func (h *SurveyAssignmentHandler) expire(c *fiber.Ctx) error {
	expired, err := h.service.ExpireOverdue(requestContext(c), activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "overdue survey assignments expired", fiber.Map{"expired": expired})
}
