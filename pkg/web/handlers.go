package web

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// APIHandlers serves the HTTP API. Reads are open; every mutation acts as the user
// resolved by Authenticate.
type APIHandlers struct {
	validator *validator.Validate
	workflows *services.Workflow
	stages    *services.Stage
	documents *services.Document
	grants    *services.Grants
	directory *services.Directory
	logger    *slog.Logger
}

func NewAPIHandlers(
	workflows *services.Workflow,
	stages *services.Stage,
	documents *services.Document,
	grants *services.Grants,
	directory *services.Directory,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		validator: validator,
		workflows: workflows,
		stages:    stages,
		documents: documents,
		grants:    grants,
		directory: directory,
		logger:    logger.With("module", "api_handlers"),
	}
}

// RegisterRoutes mounts every API route on router.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)

	workflows := router.Group("/workflows")
	workflows.Get("/", h.GetWorkflows)
	workflows.Post("/", h.CreateWorkflow)
	workflows.Get("/:id", h.GetWorkflow)
	workflows.Patch("/:id", h.PatchWorkflow)
	workflows.Delete("/:id", h.DeleteWorkflow)
	workflows.Get("/:id/stages", h.GetWorkflowStages)
	workflows.Post("/:id/stages", h.CreateStage)
	workflows.Get("/:id/permissions", h.GetPermissions(models.TargetWorkflow))
	workflows.Put("/:id/permissions", h.PutPermission(models.TargetWorkflow))
	workflows.Get("/:id/access", h.GetAccess(models.TargetWorkflow))

	stages := router.Group("/stages")
	stages.Get("/:id", h.GetStage)
	stages.Patch("/:id", h.PatchStage)
	stages.Delete("/:id", h.DeleteStage)
	stages.Post("/:id/move", h.MoveStage)
	stages.Get("/:id/permissions", h.GetPermissions(models.TargetStage))
	stages.Put("/:id/permissions", h.PutPermission(models.TargetStage))
	stages.Get("/:id/access", h.GetAccess(models.TargetStage))

	router.Delete("/permissions/:id", h.DeletePermission)

	documents := router.Group("/documents")
	documents.Get("/", h.GetDocuments)
	documents.Post("/", h.CreateDocument)
	documents.Get("/:id", h.GetDocument)
	documents.Patch("/:id", h.PatchDocument)
	documents.Delete("/:id", h.DeleteDocument)
	documents.Post("/:id/next", h.MoveDocumentNext)
	documents.Post("/:id/prev", h.MoveDocumentPrev)

	users := router.Group("/users")
	users.Get("/me", h.GetCurrentUser)
	users.Get("/", h.GetUsers)
	users.Post("/", h.CreateUser)
	users.Get("/:id", h.GetUser)

	roles := router.Group("/roles")
	roles.Get("/", h.GetRoles)
	roles.Post("/", h.CreateRole)
	roles.Get("/:id", h.GetRole)
	roles.Put("/:id/members/:userId", h.AddRoleMember)
	roles.Delete("/:id/members/:userId", h.RemoveRoleMember)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	message, ok := h.workflows.HealthCheck(ctx)

	status := "healthy"
	code := fiber.StatusOK

	if !ok {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": fiber.Map{"status": status, "message": message},
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflows.List(c.Context())
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflows.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflows.Create(c.Context(), CurrentUser(c), &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) PatchWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.workflows.Update(c.Context(), CurrentUser(c), c.Params("id"), services.WorkflowPatch{
		Name:        valueOrEmpty(req.Name),
		Description: valueOrEmpty(req.Description),
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	err := h.workflows.Delete(c.Context(), CurrentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// bind decodes the JSON body into req and validates it.
func (h *APIHandlers) bind(c fiber.Ctx, req any) error {
	err := c.Bind().JSON(req)
	if err != nil {
		return err
	}

	return h.validator.Struct(req)
}
