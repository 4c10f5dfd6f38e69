package web

import (
	"strconv"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/persistence"
	"github.com/dukex/newsroom/pkg/services"
	"github.com/gofiber/fiber/v3"
)

// GetDocuments lists documents, optionally filtered by workflow_id, stage_id or orphaned.
func (h *APIHandlers) GetDocuments(c fiber.Ctx) error {
	filter := persistence.DocumentFilter{
		WorkflowID: c.Query("workflow_id"),
		StageID:    c.Query("stage_id"),
	}

	if raw := c.Query("orphaned"); raw != "" {
		orphaned, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "orphaned must be a boolean")
		}

		filter.Orphaned = orphaned
	}

	documents, err := h.documents.List(c.Context(), filter)
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(documents)
}

func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	document, err := h.documents.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(document)
}

func (h *APIHandlers) CreateDocument(c fiber.Ctx) error {
	var req CreateDocumentRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	document, err := h.documents.Create(c.Context(), CurrentUser(c), &models.Document{
		Name:        req.Name,
		Description: req.Description,
		Content:     req.Content,
		Comments:    req.Comments,
		WorkflowID:  req.WorkflowID,
		StageID:     req.StageID,
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(document)
}

func (h *APIHandlers) PatchDocument(c fiber.Ctx) error {
	var req UpdateDocumentRequest

	err := h.bind(c, &req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	document, err := h.documents.Update(c.Context(), CurrentUser(c), c.Params("id"), services.DocumentPatch{
		Name:        valueOrEmpty(req.Name),
		Description: valueOrEmpty(req.Description),
		Content:     valueOrEmpty(req.Content),
		Comments:    valueOrEmpty(req.Comments),
	})
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(document)
}

func (h *APIHandlers) DeleteDocument(c fiber.Ctx) error {
	err := h.documents.Delete(c.Context(), CurrentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// MoveDocumentNext moves a document to the following stage. At the last stage the
// document is returned unchanged.
func (h *APIHandlers) MoveDocumentNext(c fiber.Ctx) error {
	document, err := h.documents.MoveNext(c.Context(), CurrentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(document)
}

func (h *APIHandlers) MoveDocumentPrev(c fiber.Ctx) error {
	document, err := h.documents.MovePrev(c.Context(), CurrentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, h.logger, err)
	}

	return c.JSON(document)
}
