package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// AdminActivityHandler exposes the audit trail of survey administration. Entries can be
// traced back to request logs through correlation_id.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, pageSize, err := parsePagination(c, 25, 200)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	actorID, err := parseOptionalUintQuery(c, "actor_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	entityID, err := parseOptionalUintQuery(c, "entity_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	since, err := parseOptionalTimeQuery(c, "since")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	until, err := parseOptionalTimeQuery(c, "until")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.AdminActivityListRequest{
		Page:          page,
		PageSize:      pageSize,
		Action:        c.Query("action"),
		EntityType:    c.Query("entity_type"),
		CorrelationID: c.Query("correlation_id"),
		Since:         since,
		Until:         until,
	}
	if actorID != nil {
		req.ActorID = *actorID
	}
	if entityID != nil {
		req.EntityID = *entityID
	}

	response, err := h.service.List(requestContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity logs", response)
}
