package web

import (
	"github.com/dukex/newsroom/pkg/models"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetCurrentUser(c fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return unauthorized(c, "a valid bearer token is required")
	}

	return c.JSON(user)
}

func (h *APIHandlers) GetUsers(c fiber.Ctx) error {
	users, err := h.directory.ListUsers(c.Context())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(users)
}

func (h *APIHandlers) GetUser(c fiber.Ctx) error {
	user, err := h.directory.FetchUser(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(user)
}

// CreateUser registers a user. The response is the only place the access token is shown.
func (h *APIHandlers) CreateUser(c fiber.Ctx) error {
	var req CreateUserRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	user, err := h.directory.CreateUser(c.Context(), CurrentUser(c), &models.User{
		UserName:    req.UserName,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		AccessToken: req.AccessToken,
		Admin:       req.Admin,
		RoleIDs:     req.RoleIDs,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(CreatedUserResponse{User: user, AccessToken: user.AccessToken})
}

func (h *APIHandlers) GetRoles(c fiber.Ctx) error {
	roles, err := h.directory.ListRoles(c.Context())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(roles)
}

func (h *APIHandlers) GetRole(c fiber.Ctx) error {
	role, err := h.directory.FetchRole(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(role)
}

func (h *APIHandlers) CreateRole(c fiber.Ctx) error {
	var req CreateRoleRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	role, err := h.directory.CreateRole(c.Context(), CurrentUser(c), &models.Role{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(role)
}

func (h *APIHandlers) AddRoleMember(c fiber.Ctx) error {
	role, err := h.directory.AddMember(c.Context(), CurrentUser(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(role)
}

func (h *APIHandlers) RemoveRoleMember(c fiber.Ctx) error {
	role, err := h.directory.RemoveMember(c.Context(), CurrentUser(c), c.Params("id"), c.Params("userId"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(role)
}
