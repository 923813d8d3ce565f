package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-survey-api/internal/auth"
	"github.com/noah-isme/gema-survey-api/internal/dto"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/service"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, envelope) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

type stubSurveyFormService struct {
	form       dto.SurveyFormResponse
	result     dto.SurveySubmitResult
	err        error
	lastToken  string
	lastAnswer map[string]interface{}
	session    auth.Session
}

func (s *stubSurveyFormService) Resolve(_ context.Context, token string) (dto.SurveyFormResponse, error) {
	s.lastToken = token
	return s.form, s.err
}

func (s *stubSurveyFormService) SubmitByToken(_ context.Context, token string, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error) {
	s.lastToken = token
	s.lastAnswer = payload.Answers
	if s.err != nil {
		return dto.SurveySubmitResult{}, s.err
	}
	return s.result, nil
}

func (s *stubSurveyFormService) FormForStudent(_ context.Context, session auth.Session, _ uint) (dto.SurveyFormResponse, error) {
	s.session = session
	return s.form, s.err
}

func (s *stubSurveyFormService) SubmitForStudent(_ context.Context, session auth.Session, _ uint, payload dto.SurveyFormSubmitRequest) (dto.SurveySubmitResult, error) {
	s.session = session
	s.lastAnswer = payload.Answers
	if s.err != nil {
		return dto.SurveySubmitResult{}, s.err
	}
	return s.result, nil
}

var _ service.SurveyFormService = (*stubSurveyFormService)(nil)

func newFormApp(svc service.SurveyFormService) *fiber.App {
	app := fiber.New()
	handler.NewSurveyFormHandler(svc, zerolog.Nop()).Register(app.Group("/forms"))
	return app
}

func TestSurveyFormHandlerResolveReportsState(t *testing.T) {
	for _, state := range []string{dto.SurveyFormStateOpen, dto.SurveyFormStateSubmitted, dto.SurveyFormStateExpired, dto.SurveyFormStateNotFound} {
		t.Run(state, func(t *testing.T) {
			svc := &stubSurveyFormService{form: dto.SurveyFormResponse{State: state}}
			resp, payload := doRequest(t, newFormApp(svc), http.MethodGet, "/forms/abc123", "")

			require.Equal(t, fiber.StatusOK, resp.StatusCode)
			require.True(t, payload.Success)
			require.Equal(t, "survey form "+state, payload.Message)
			require.Equal(t, "abc123", svc.lastToken)
		})
	}
}

func TestSurveyFormHandlerSubmitCreated(t *testing.T) {
	avg := 7.5
	svc := &stubSurveyFormService{result: dto.SurveySubmitResult{ResponseID: 9, AverageScore: &avg}}

	resp, payload := doRequest(t, newFormApp(svc), http.MethodPost, "/forms/abc123/responses", `{"answers":{"q1":"8"}}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "survey submitted", payload.Message)
	require.Equal(t, "8", svc.lastAnswer["q1"])

	var result dto.SurveySubmitResult
	require.NoError(t, json.Unmarshal(payload.Data, &result))
	require.Equal(t, uint(9), result.ResponseID)
	require.Equal(t, 7.5, *result.AverageScore)
}

func TestSurveyFormHandlerSubmitErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrSurveyAssignmentNotFound, fiber.StatusNotFound},
		{"submitted", service.ErrSurveyAssignmentSubmitted, fiber.StatusConflict},
		{"closed", service.ErrSurveyAssignmentClosed, fiber.StatusConflict},
		{"expired", service.ErrSurveyAssignmentExpired, fiber.StatusGone},
		{"locked", service.ErrSurveyTemplateLocked, fiber.StatusLocked},
		{"unexpected", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubSurveyFormService{err: tc.err}
			resp, payload := doRequest(t, newFormApp(svc), http.MethodPost, "/forms/abc123/responses", `{"answers":{}}`)

			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, payload.Success)
			if tc.status == fiber.StatusInternalServerError {
				require.Equal(t, "internal server error", payload.Message)
			}
		})
	}
}

func TestSurveyFormHandlerMissingAnswersDetails(t *testing.T) {
	svc := &stubSurveyFormService{err: &service.SurveyValidationError{Reason: "required questions unanswered", Missing: []string{"q2"}}}

	resp, payload := doRequest(t, newFormApp(svc), http.MethodPost, "/forms/abc123/responses", `{"answers":{"q1":"8"}}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, []interface{}{"q2"}, payload.Details["missing"])
}

func TestSurveyFormHandlerRejectsMalformedBody(t *testing.T) {
	svc := &stubSurveyFormService{}

	resp, payload := doRequest(t, newFormApp(svc), http.MethodPost, "/forms/abc123/responses", `{"answers":`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid request body", payload.Message)
	require.Empty(t, svc.lastToken)
}
