package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/obe-labs/sheetflow/internal/dto"
	"github.com/obe-labs/sheetflow/internal/service"
	"github.com/obe-labs/sheetflow/internal/utils"
)

// SheetHandler manages the assessment sheet endpoints, including the
// approval workflow transitions.
type SheetHandler struct {
	sheets   service.SheetService
	workflow service.WorkflowService
	logger   zerolog.Logger
}

// NewSheetHandler builds a sheet handler instance.
func NewSheetHandler(sheets service.SheetService, workflow service.WorkflowService, logger zerolog.Logger) *SheetHandler {
	return &SheetHandler{
		sheets:   sheets,
		workflow: workflow,
		logger:   logger.With().Str("component", "sheet_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SheetHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
	router.Post("/:id/submit", h.submit)
	router.Post("/:id/approve", h.decide)
}

func (h *SheetHandler) list(c *fiber.Ctx) error {
	sheets, err := h.sheets.List(c.Context(), actorFromContext(c), c.Query("status"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sheets retrieved", sheets)
}

func (h *SheetHandler) create(c *fiber.Ctx) error {
	var payload dto.SheetCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sheet, err := h.sheets.Create(c.Context(), actorFromContext(c), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "sheet created", sheet)
}

func (h *SheetHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sheet, err := h.sheets.Get(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sheet retrieved", sheet)
}

func (h *SheetHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SheetUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sheet, err := h.sheets.Update(c.Context(), actorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sheet updated", sheet)
}

func (h *SheetHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.sheets.Delete(c.Context(), actorFromContext(c), id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sheet deleted", nil)
}

func (h *SheetHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sheet, err := h.workflow.Submit(c.Context(), actorFromContext(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sheet submitted for approval", sheet)
}

func (h *SheetHandler) decide(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SheetDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	sheet, err := h.workflow.Decide(c.Context(), actorFromContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "sheet decision recorded", sheet)
}

func (h *SheetHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrSheetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "sheet not found")
	case errors.Is(err, service.ErrSheetForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrSheetNotEditable),
		errors.Is(err, service.ErrOwnerNotFaculty),
		errors.Is(err, service.ErrInvalidStatusFilter),
		errors.Is(err, service.ErrSheetNameRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSheetConflict):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
