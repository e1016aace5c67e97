package handlers

import (
	"errors"
	"fmt"

	"boltcard/internal/models"
	"boltcard/internal/services/provision"
	"boltcard/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// ProvisionHandler serves the device-bootstrap handshake. Unlike the LNURL
// surface, unknown tokens here answer HTTP 404: the provisioning apps do
// interpret status codes.
type ProvisionHandler struct {
	service provision.Service
}

func NewProvisionHandler(service provision.Service) *ProvisionHandler {
	return &ProvisionHandler{service: service}
}

// Auth handles GET /api/v1/auth?a=<otp>.
func (h *ProvisionHandler) Auth(c *fiber.Ctx) error {
	token := c.Query("a")
	if token == "" {
		return utils.BadRequest(c, "Missing token.")
	}

	if token == provision.ZeroToken {
		diag := provision.Diagnostic()
		return utils.Success(c, fiber.Map{"k0": diag.K0, "k1": diag.K1, "k2": diag.K2})
	}

	card, err := h.service.Redeem(c.Context(), token)
	if err != nil {
		if errors.Is(err, provision.ErrUnknownToken) {
			return utils.NotFound(c, "Card does not exist.")
		}
		return utils.InternalError(c, "Could not authenticate card.")
	}

	return utils.Success(c, fiber.Map{
		"card_name":        card.Name,
		"id":               "1",
		"k0":               card.K0,
		"k1":               card.K1,
		"k2":               card.K2,
		"k3":               card.K1,
		"k4":               card.K2,
		"lnurlw_base":      "lnurlw://" + scanBase(c, card),
		"protocol_name":    "new_bolt_card_response",
		"protocol_version": "1",
	})
}

type authPostBody struct {
	UID    string `json:"UID"`
	LNURLW string `json:"LNURLW"`
}

// AuthPost handles POST /api/v1/auth?a=<otp>&wipe=<bool>, the setup/wipe
// variant spoken by the card programming apps (uppercase response keys).
func (h *ProvisionHandler) AuthPost(c *fiber.Ctx) error {
	wipe := c.QueryBool("wipe")

	var card *models.Card
	var err error
	if wipe {
		card, err = h.service.Redeem(c.Context(), c.Query("a"))
	} else {
		var body authPostBody
		if err := c.BodyParser(&body); err != nil {
			return utils.BadRequest(c, "Invalid request body.")
		}
		if body.UID == "" {
			return utils.BadRequest(c, "Missing UID.")
		}
		card, err = h.service.RedeemByUID(c.Context(), body.UID)
	}
	if err != nil {
		if errors.Is(err, provision.ErrUnknownToken) {
			return utils.NotFound(c, "Card does not exist.")
		}
		return utils.InternalError(c, "Could not authenticate card.")
	}

	response := fiber.Map{
		"CARD_NAME":        card.Name,
		"ID":               "1",
		"K0":               card.K0,
		"K1":               card.K1,
		"K2":               card.K2,
		"K3":               card.K1,
		"K4":               card.K2,
		"LNURLW_BASE":      "LNURLW://" + scanBase(c, card),
		"LNURLW":           "LNURLW://" + scanBase(c, card),
		"PROTOCOL_NAME":    "NEW_BOLT_CARD_RESPONSE",
		"PROTOCOL_VERSION": "1",
	}
	if wipe {
		response["action"] = "wipe"
	}
	return utils.Success(c, response)
}

func scanBase(c *fiber.Ctx, card *models.Card) string {
	return fmt.Sprintf("%s/api/v1/scan/%s", c.Hostname(), card.ExternalID)
}
