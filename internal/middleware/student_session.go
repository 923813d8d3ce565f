package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-survey-api/internal/auth"
	"github.com/noah-isme/gema-survey-api/internal/utils"
)

const studentSessionLocal = "student_session"

// SessionAuthenticator resolves a student bearer token into its session.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Session, error)
}

// StudentSession requires a valid, unrevoked student portal token. SSE clients may pass it
// as the access_token query parameter.
func StudentSession(authenticator SessionAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearerToken(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		session, err := authenticator.Authenticate(c.UserContext(), token)
		switch {
		case errors.Is(err, auth.ErrInvalidSession):
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid session")
		case errors.Is(err, auth.ErrSessionRevoked):
			return utils.SendError(c, fiber.StatusUnauthorized, auth.ErrSessionRevoked.Error())
		case err != nil:
			return utils.SendError(c, fiber.StatusServiceUnavailable, "session check unavailable")
		}

		c.Locals(studentSessionLocal, session)
		c.Locals("user_id", session.StudentID)
		c.Locals("user_role", auth.RoleStudent)
		c.SetUserContext(auth.WithSession(c.UserContext(), session))

		return c.Next()
	}
}

// StudentSessionFromCtx returns the session bound by StudentSession.
func StudentSessionFromCtx(c *fiber.Ctx) (auth.Session, bool) {
	session, ok := c.Locals(studentSessionLocal).(auth.Session)
	return session, ok
}
