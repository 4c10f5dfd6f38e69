package web

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/gofiber/fiber/v3"
)

type userLocalKey struct{}

// Authenticator resolves bearer tokens to users.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Authenticate resolves the bearer token of the request and stores the user for the
// handlers. A missing or unknown token leaves the request anonymous; the services then
// reject mutations with 401.
func Authenticate(authenticator Authenticator, logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Next()
		}

		user, err := authenticator.Authenticate(c.Context(), token)
		if err != nil {
			if services.IsUnauthenticatedError(err) {
				return c.Next()
			}

			return internalError(c, logger, err)
		}

		c.Locals(userLocalKey{}, user)

		return c.Next()
	}
}

// CurrentUser returns the authenticated user of the request, or nil.
func CurrentUser(c fiber.Ctx) *models.User {
	user, ok := c.Locals(userLocalKey{}).(*models.User)
	if !ok {
		return nil
	}

	return user
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
