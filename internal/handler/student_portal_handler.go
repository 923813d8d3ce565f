package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/service"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// StudentPortalHandler serves the signed-in student: session management, the pending
// survey list with its live stream, and survey filling.
type StudentPortalHandler struct {
	auth        service.StudentAuthService
	assignments service.SurveyAssignmentService
	forms       service.SurveyFormService
	logger      zerolog.Logger
	keepAlive   time.Duration
}

// NewStudentPortalHandler constructs the handler.
func NewStudentPortalHandler(
	auth service.StudentAuthService,
	assignments service.SurveyAssignmentService,
	forms service.SurveyFormService,
	logger zerolog.Logger,
	keepAlive time.Duration,
) *StudentPortalHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &StudentPortalHandler{
		auth:        auth,
		assignments: assignments,
		forms:       forms,
		logger:      logger.With().Str("component", "student_portal_handler").Logger(),
		keepAlive:   keepAlive,
	}
}

// Register binds the portal routes. Everything except login sits behind sessionGuard.
func (h *StudentPortalHandler) Register(router fiber.Router, sessionGuard fiber.Handler, loginGuards ...fiber.Handler) {
	login := append(append([]fiber.Handler{}, loginGuards...), h.login)
	router.Post("/auth/login", login...)

	router.Post("/auth/logout", sessionGuard, h.logout)
	router.Get("/me", sessionGuard, h.me)
	router.Get("/surveys", sessionGuard, h.pending)
	router.Get("/surveys/stream", sessionGuard, h.stream)
	router.Get("/surveys/:id/form", sessionGuard, h.form)
	router.Post("/surveys/:id/responses", sessionGuard, h.submit)
}

func (h *StudentPortalHandler) login(c *fiber.Ctx) error {
	var payload dto.StudentLoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.auth.Login(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().Uint("student_id", result.Session.StudentID).Msg("student signed in")
	return utils.SendSuccess(c, "signed in", result)
}

func (h *StudentPortalHandler) logout(c *fiber.Ctx) error {
	session, ok := middleware.StudentSessionFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "student session required")
	}

	if err := h.auth.Logout(requestContext(c), session); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "signed out", nil)
}

func (h *StudentPortalHandler) me(c *fiber.Ctx) error {
	session, ok := middleware.StudentSessionFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "student session required")
	}
	return utils.SendSuccess(c, "student session", dto.NewStudentSessionResponse(session))
}

func (h *StudentPortalHandler) pending(c *fiber.Ctx) error {
	session, ok := middleware.StudentSessionFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "student session required")
	}

	assignments, err := h.assignments.PendingForStudent(requestContext(c), session.StudentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	pending := dto.NewStudentPendingSurveys(assignments)
	return utils.OK(c, pending, "pending surveys", fiber.Map{"total": len(pending)})
}

// stream pushes the pending list as server-sent events. The first event carries the
// current list; later events follow every assignment change.
func (h *StudentPortalHandler) stream(c *fiber.Ctx) error {
	session, ok := middleware.StudentSessionFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "student session required")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx, cancel := context.WithCancel(requestContext(c))
	snapshots, unsubscribe := h.assignments.SubscribePending(session.StudentID)
	logger := requestLogger(h.logger, c).With().Uint("student_id", session.StudentID).Logger()
	interval := h.keepAlive

	gauge := observability.SurveyLiveClients().WithLabelValues("sse")
	gauge.Inc()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			unsubscribe()
			cancel()
			gauge.Dec()
		}()

		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()

		for {
			select {
			case snapshot, ok := <-snapshots:
				if !ok {
					return
				}
				if err := writeSurveyEvent(w, "pending_surveys", dto.NewStudentPendingSurveys(snapshot)); err != nil {
					logger.Debug().Err(err).Msg("failed to write pending survey event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("failed to write keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *StudentPortalHandler) form(c *fiber.Ctx) error {
	session, ok := middleware.StudentSessionFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "student session required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	form, err := h.forms.FormForStudent(requestContext(c), session, id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "survey form "+form.State, form)
}

func (h *StudentPortalHandler) submit(c *fiber.Ctx) error {
	session, ok := middleware.StudentSessionFromCtx(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "student session required")
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SurveyFormSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.forms.SubmitForStudent(requestContext(c), session, id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("student_id", session.StudentID).
		Uint("response_id", result.ResponseID).
		Msg("student survey submitted")
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "survey submitted", result)
}

func writeSurveyEvent(w *bufio.Writer, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
