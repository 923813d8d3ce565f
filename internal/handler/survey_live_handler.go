package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/observability"
	"github.com/noah-isme/gema-survey-api/internal/service"
)

// SurveyLiveHandler streams collection snapshots to admin dashboards over websocket.
type SurveyLiveHandler struct {
	templates   service.SurveyTemplateService
	assignments service.SurveyAssignmentService
	responses   service.SurveyResponseService
	logger      zerolog.Logger
}

type liveSnapshot struct {
	Collection string      `json:"collection"`
	Data       interface{} `json:"data"`
}

// NewSurveyLiveHandler constructs the handler.
func NewSurveyLiveHandler(
	templates service.SurveyTemplateService,
	assignments service.SurveyAssignmentService,
	responses service.SurveyResponseService,
	logger zerolog.Logger,
) *SurveyLiveHandler {
	return &SurveyLiveHandler{
		templates:   templates,
		assignments: assignments,
		responses:   responses,
		logger:      logger.With().Str("component", "survey_live_handler").Logger(),
	}
}

// Register binds the websocket route under the router group.
func (h *SurveyLiveHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		collection := strings.TrimSpace(c.Query("collection"))
		if !service.IsSurveyCollection(collection) {
			return fiber.NewError(fiber.StatusBadRequest, "unknown collection")
		}
		c.Locals("collection", collection)
		c.Locals("request_ctx", requestContext(c))
		return c.Next()
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *SurveyLiveHandler) handleConnection(conn *websocket.Conn) {
	collection, _ := conn.Locals("collection").(string)
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	snapshots, unsubscribe := h.subscribe(collection)
	defer unsubscribe()

	gauge := observability.SurveyLiveClients().WithLabelValues("websocket")
	gauge.Inc()
	defer gauge.Dec()

	logger := h.logger.With().Str("collection", collection).Logger()
	logger.Info().Msg("survey websocket connected")
	defer logger.Info().Msg("survey websocket disconnected")

	// Clients never send anything useful; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case data, ok := <-snapshots:
			if !ok {
				return
			}
			if err := conn.WriteJSON(liveSnapshot{Collection: collection, Data: data}); err != nil {
				logger.Debug().Err(err).Msg("failed to write survey snapshot")
				return
			}
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// subscribe adapts the typed snapshot streams to a single untyped channel.
func (h *SurveyLiveHandler) subscribe(collection string) (<-chan interface{}, func()) {
	out := make(chan interface{}, 1)
	done := make(chan struct{})

	var unsubscribe func()
	switch collection {
	case service.SurveyCollectionTemplates:
		var ch <-chan []dto.SurveyTemplateResponse
		ch, unsubscribe = h.templates.Subscribe()
		go forwardSnapshots(ch, out, done)
	case service.SurveyCollectionAssignments:
		var ch <-chan []dto.SurveyAssignmentResponse
		ch, unsubscribe = h.assignments.Subscribe(nil)
		go forwardSnapshots(ch, out, done)
	default:
		var ch <-chan []dto.SurveyResponseResponse
		ch, unsubscribe = h.responses.Subscribe()
		go forwardSnapshots(ch, out, done)
	}

	return out, func() {
		close(done)
		unsubscribe()
	}
}

func forwardSnapshots[T any](in <-chan T, out chan<- interface{}, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case value, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- value:
			case <-done:
				return
			}
		case <-done:
			return
		}
	}
}
