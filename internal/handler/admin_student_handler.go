package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// AdminStudentHandler wires admin student endpoints.
type AdminStudentHandler struct {
	service service.AdminStudentService
	logger  zerolog.Logger
}

// NewAdminStudentHandler constructs the handler.
func NewAdminStudentHandler(service service.AdminStudentService, logger zerolog.Logger) *AdminStudentHandler {
	return &AdminStudentHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_student_handler").Logger(),
	}
}

// Register attaches student admin routes to the router group.
func (h *AdminStudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *AdminStudentHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c, 20, 100)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(requestContext(c), dto.AdminStudentListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Class:    c.Query("class"),
		Status:   c.Query("status"),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "students retrieved", response)
}

func (h *AdminStudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	student, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *AdminStudentHandler) create(c *fiber.Ctx) error {
	var payload dto.AdminStudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Create(requestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *AdminStudentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AdminStudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Update(requestContext(c), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *AdminStudentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}
