package web

import (
	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetWorkflowStages(c fiber.Ctx) error {
	stages, err := h.stages.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(stages)
}

func (h *APIHandlers) GetStage(c fiber.Ctx) error {
	stage, err := h.stages.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(stage)
}

func (h *APIHandlers) CreateStage(c fiber.Ctx) error {
	var req CreateStageRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	stage, err := h.stages.Create(c.Context(), CurrentUser(c), c.Params("id"), &models.Stage{
		Name:        req.Name,
		Description: req.Description,
		Trigger:     req.Trigger,
	}, req.Position)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(stage)
}

func (h *APIHandlers) PatchStage(c fiber.Ctx) error {
	var req UpdateStageRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	stage, err := h.stages.Update(c.Context(), CurrentUser(c), c.Params("id"), services.StagePatch{
		Name:        valueOrEmpty(req.Name),
		Description: valueOrEmpty(req.Description),
		Trigger:     req.Trigger,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(stage)
}

func (h *APIHandlers) DeleteStage(c fiber.Ctx) error {
	err := h.stages.Delete(c.Context(), CurrentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) MoveStage(c fiber.Ctx) error {
	var req MoveStageRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	stage, err := h.stages.Move(c.Context(), CurrentUser(c), c.Params("id"), *req.Position)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(stage)
}
