package middleware

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-survey-api/internal/utils"
)

// SurveyAdminRoles may manage templates, assignments, responses and students.
var SurveyAdminRoles = []string{"admin", "teacher"}

type roleSet map[string]struct{}

func newRoleSet(roles []string) (roleSet, []string) {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for role := range set {
		names = append(names, role)
	}
	sort.Strings(names)
	return set, names
}

func (s roleSet) allows(role string) bool {
	_, ok := s[role]
	return ok
}

// RequireRole rejects requests whose user_role, as bound by JWTProtected, is not one of
// roles. The 403 body lists the accepted roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed, names := newRoleSet(roles)

	return func(c *fiber.Ctx) error {
		role := ""
		switch v := c.Locals("user_role").(type) {
		case string:
			role = normalizeRole(v)
		case fmt.Stringer:
			role = normalizeRole(v.String())
		}
		if !allowed.allows(role) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{"required_roles": names})
		}
		return c.Next()
	}
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
