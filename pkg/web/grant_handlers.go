package web

import (
	"github.com/dukex/newsroom/pkg/models"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetPermissions(targetType models.TargetType) fiber.Handler {
	return func(c fiber.Ctx) error {
		grants, err := h.grants.List(c.Context(), models.Target{Type: targetType, ID: c.Params("id")})
		if err != nil {
			return handleServiceError(c, h.logger, err)
		}

		return c.JSON(grants)
	}
}

// PutPermission creates or replaces the grant of a role or user on the target.
func (h *APIHandlers) PutPermission(targetType models.TargetType) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req UpsertGrantRequest

		err := h.bind(c, &req)
		if err != nil {
			return badRequest(c, err.Error())
		}

		grant, err := h.grants.Upsert(
			c.Context(),
			CurrentUser(c),
			models.Target{Type: targetType, ID: c.Params("id")},
			models.Grantee{Type: models.GranteeType(req.GranteeType), ID: req.GranteeID},
			models.AccessLevel(*req.Access),
		)
		if err != nil {
			return handleServiceError(c, h.logger, err)
		}

		return c.JSON(grant)
	}
}

func (h *APIHandlers) DeletePermission(c fiber.Ctx) error {
	err := h.grants.Delete(c.Context(), CurrentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetAccess reports the caller's effective access on the target. Anonymous callers get READ.
func (h *APIHandlers) GetAccess(targetType models.TargetType) fiber.Handler {
	return func(c fiber.Ctx) error {
		target := models.Target{Type: targetType, ID: c.Params("id")}

		access, err := h.grants.Access(c.Context(), CurrentUser(c), target)
		if err != nil {
			return handleServiceError(c, h.logger, err)
		}

		return c.JSON(AccessResponse{
			TargetType: target.Type,
			TargetID:   target.ID,
			Access:     access,
			Level:      access.String(),
		})
	}
}
