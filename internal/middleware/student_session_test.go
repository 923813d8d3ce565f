package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-survey-api/internal/auth"
)

type stubAuthenticator struct {
	manager *auth.Manager
	revoked map[string]bool
	err     error
}

func (s stubAuthenticator) Authenticate(ctx context.Context, token string) (auth.Session, error) {
	if s.err != nil {
		return auth.Session{}, s.err
	}
	session, err := s.manager.Parse(token)
	if err != nil {
		return auth.Session{}, err
	}
	if s.revoked[session.TokenID] {
		return auth.Session{}, auth.ErrSessionRevoked
	}
	return session, nil
}

func newSessionApp(t *testing.T, authenticator SessionAuthenticator) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(StudentSession(authenticator))
	app.Get("/me", func(c *fiber.Ctx) error {
		session, ok := StudentSessionFromCtx(c)
		require.True(t, ok)
		fromCtx, ok := auth.FromContext(c.UserContext())
		require.True(t, ok)
		require.Equal(t, session.StudentID, fromCtx.StudentID)
		require.Equal(t, session.StudentID, c.Locals("user_id"))
		return c.SendString(session.Code)
	})
	return app
}

func TestStudentSessionBindsSession(t *testing.T) {
	manager, err := auth.NewManager("portal-secret", time.Hour)
	require.NoError(t, err)
	token, _, err := manager.Issue(auth.Session{StudentID: 7, Code: "HS-007", Name: "Lan"})
	require.NoError(t, err)

	app := newSessionApp(t, stubAuthenticator{manager: manager})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me?access_token="+token, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStudentSessionRejectsMissingAndRevokedTokens(t *testing.T) {
	manager, err := auth.NewManager("portal-secret", time.Hour)
	require.NoError(t, err)
	token, session, err := manager.Issue(auth.Session{StudentID: 7, Code: "HS-007", Name: "Lan"})
	require.NoError(t, err)

	app := newSessionApp(t, stubAuthenticator{manager: manager, revoked: map[string]bool{session.TokenID: true}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestStudentSessionReportsUnavailableRevocationStore(t *testing.T) {
	manager, err := auth.NewManager("portal-secret", time.Hour)
	require.NoError(t, err)
	token, _, err := manager.Issue(auth.Session{StudentID: 7, Code: "HS-007", Name: "Lan"})
	require.NoError(t, err)

	app := newSessionApp(t, stubAuthenticator{manager: manager, err: fmt.Errorf("check session revocation: %w", errors.New("dial tcp: connection refused"))})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var payload struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "session check unavailable", payload.Message)
}
