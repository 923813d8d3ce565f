package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func parseOptionalUintQuery(c *fiber.Ctx, key string) (*uint, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	id := uint(parsed)
	return &id, nil
}

// parseOptionalTimeQuery accepts RFC3339 timestamps or plain dates.
func parseOptionalTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	return &parsed, nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals("user_role").(string); ok {
		return role
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:            userIDFromContext(c),
		Role:          userRoleFromContext(c),
		CorrelationID: middleware.GetCorrelationID(c),
	}
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func validationDetails(err error) fiber.Map {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return fiber.Map{"fields": fields}
}

// respondError maps service errors onto HTTP statuses. Unknown errors are logged and
// returned as a plain 500.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var surveyValidation *service.SurveyValidationError
	if errors.As(err, &surveyValidation) {
		var details fiber.Map
		if len(surveyValidation.Missing) > 0 {
			details = fiber.Map{"missing": surveyValidation.Missing}
		}
		return utils.Fail(c, fiber.StatusBadRequest, surveyValidation.Error(), details)
	}

	if details := validationDetails(err); details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", details)
	}

	switch {
	case errors.Is(err, service.ErrSurveyTemplateNotFound),
		errors.Is(err, service.ErrSurveyAssignmentNotFound),
		errors.Is(err, service.ErrSurveyResponseNotFound),
		errors.Is(err, service.ErrAdminStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSurveyAssignmentSubmitted),
		errors.Is(err, service.ErrSurveyAssignmentClosed),
		errors.Is(err, service.ErrStudentCodeTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSurveyAssignmentExpired):
		return utils.SendError(c, fiber.StatusGone, err.Error())
	case errors.Is(err, service.ErrSurveyTemplateLocked):
		return utils.SendError(c, fiber.StatusLocked, err.Error())
	case errors.Is(err, service.ErrStudentInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrStudentInactive):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrActivityRangeInvalid):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}

// parsePagination reads page and page_size, applying the default size and cap.
func parsePagination(c *fiber.Ctx, defaultSize, maxSize int) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, errors.New("invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return 0, 0, errors.New("invalid page size")
	}
	if pageSize <= 0 {
		pageSize = defaultSize
	} else if pageSize > maxSize {
		pageSize = maxSize
	}
	return page, pageSize, nil
}
