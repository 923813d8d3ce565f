package performance_test

import (
	"bufio"
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/auth"
	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/service"
)

func TestSurveyLiveWebsocketP95Under250ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	templates := &stubLiveTemplateService{}
	live := handler.NewSurveyLiveHandler(templates, &stubLiveAssignmentService{}, &stubLiveResponseService{}, zerolog.Nop())
	live.Register(app.Group("/api/admin/surveys/live"))

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/admin/surveys/live/ws?collection=" + service.SurveyCollectionTemplates
	clients := 300
	durations := make([]time.Duration, 0, clients)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	for i := 0; i < clients; i++ {
		start := time.Now()
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Fatalf("failed to read snapshot for client %d: %v", i, err)
		}
		_ = conn.Close()

		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected websocket P95 <= 250ms, got %s", p95)
	}
}

func TestStudentPendingSSEP95Under300ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	authenticator := stubSessionAuthenticator{}
	portal := handler.NewStudentPortalHandler(nil, &stubLiveAssignmentService{}, nil, zerolog.Nop(), 30*time.Second)
	portal.Register(app.Group("/api/v1/student"), middleware.StudentSession(authenticator))

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	client := &http.Client{Timeout: 5 * time.Second}
	clients := 200
	durations := make([]time.Duration, 0, clients)

	for i := 0; i < clients; i++ {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/v1/student/surveys/stream", nil)
		if err != nil {
			t.Fatalf("build request failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer perf-"+strconv.Itoa(i))

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("sse request failed: %v", err)
		}

		reader := bufio.NewReader(resp.Body)
		deadline := time.Now().Add(2 * time.Second)

		for {
			if time.Now().After(deadline) {
				t.Fatalf("sse response timed out for client %d", i)
			}
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("failed to read sse line: %v", err)
			}
			if strings.HasPrefix(line, "data:") {
				durations = append(durations, time.Since(start))
				break
			}
		}

		resp.Body.Close()
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 300*time.Millisecond {
		t.Fatalf("expected SSE P95 <= 300ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

type stubSessionAuthenticator struct{}

func (stubSessionAuthenticator) Authenticate(_ context.Context, token string) (auth.Session, error) {
	return auth.Session{StudentID: 7, Code: token, Name: "Perf", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type stubLiveTemplateService struct {
	service.SurveyTemplateService
}

func (s *stubLiveTemplateService) Subscribe() (<-chan []dto.SurveyTemplateResponse, func()) {
	ch := make(chan []dto.SurveyTemplateResponse, 1)
	ch <- []dto.SurveyTemplateResponse{{ID: 1, Name: "Quarterly review", Status: "active", CreatedAt: time.Now(), UpdatedAt: time.Now()}}
	return ch, func() {}
}

type stubLiveAssignmentService struct {
	service.SurveyAssignmentService
}

func (s *stubLiveAssignmentService) Subscribe(*uint) (<-chan []dto.SurveyAssignmentResponse, func()) {
	return s.SubscribePending(0)
}

func (s *stubLiveAssignmentService) SubscribePending(uint) (<-chan []dto.SurveyAssignmentResponse, func()) {
	ch := make(chan []dto.SurveyAssignmentResponse, 1)
	ch <- []dto.SurveyAssignmentResponse{{ID: 3, TemplateID: 1, TemplateName: "Quarterly review", Status: "pending", AssignedAt: time.Now()}}
	close(ch)
	return ch, func() {}
}

type stubLiveResponseService struct {
	service.SurveyResponseService
}

func (s *stubLiveResponseService) Subscribe() (<-chan []dto.SurveyResponseResponse, func()) {
	ch := make(chan []dto.SurveyResponseResponse, 1)
	ch <- []dto.SurveyResponseResponse{}
	return ch, func() {}
}
