package handlers

import (
	"errors"
	"strconv"

	"boltcard/internal/services/card"
	"boltcard/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// CardHandler serves the operator card administration API.
type CardHandler struct {
	service  card.Service
	walletID string
}

func NewCardHandler(service card.Service, walletID string) *CardHandler {
	return &CardHandler{
		service:  service,
		walletID: walletID,
	}
}

func (h *CardHandler) List(c *fiber.Ctx) error {
	cards, err := h.service.List(c.Context(), []string{h.walletID})
	if err != nil {
		return utils.InternalError(c, "Could not list cards.")
	}
	return utils.Success(c, cards)
}

func (h *CardHandler) Create(c *fiber.Ctx) error {
	var in card.Input
	if err := c.BodyParser(&in); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}

	created, err := h.service.Create(c.Context(), h.walletID, in)
	if err != nil {
		return h.serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, created)
}

func (h *CardHandler) Update(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid card id.")
	}

	var in card.Input
	if err := c.BodyParser(&in); err != nil {
		return utils.BadRequest(c, "Invalid request body.")
	}

	updated, err := h.service.Update(c.Context(), id, in)
	if err != nil {
		return h.serviceError(c, err)
	}
	return utils.Success(c, updated)
}

func (h *CardHandler) SetEnabled(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid card id.")
	}
	enable, err := strconv.ParseBool(c.Params("enable"))
	if err != nil {
		return utils.BadRequest(c, "Invalid enable flag.")
	}

	updated, err := h.service.SetEnabled(c.Context(), id, enable)
	if err != nil {
		return h.serviceError(c, err)
	}
	return utils.Success(c, updated)
}

func (h *CardHandler) Delete(c *fiber.Ctx) error {
	id, err := cardID(c)
	if err != nil {
		return utils.BadRequest(c, "Invalid card id.")
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		return h.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CardHandler) Hits(c *fiber.Ctx) error {
	hits, err := h.service.Hits(c.Context(), []string{h.walletID})
	if err != nil {
		return utils.InternalError(c, "Could not list hits.")
	}
	return utils.Success(c, hits)
}

func (h *CardHandler) Refunds(c *fiber.Ctx) error {
	refunds, err := h.service.Refunds(c.Context(), []string{h.walletID})
	if err != nil {
		return utils.InternalError(c, "Could not list refunds.")
	}
	return utils.Success(c, refunds)
}

func (h *CardHandler) serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, card.ErrNotFound):
		return utils.NotFound(c, "Card does not exist.")
	case errors.Is(err, card.ErrDuplicateUID):
		return utils.BadRequest(c, "UID already registered. Delete registered card and try again.")
	case errors.Is(err, card.ErrInvalidUID), errors.Is(err, card.ErrInvalidKey):
		return utils.BadRequest(c, "Invalid byte data provided.")
	default:
		return utils.InternalError(c, "Could not update card.")
	}
}

func cardID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("card_id"), 10, 32)
	return uint(id), err
}
