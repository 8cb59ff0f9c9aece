package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/protokollmine/protokollmine/internal/types"
)

// ProtocolReader is the slice of the store the browse endpoints need
type ProtocolReader interface {
	ListProtocols(limit int) ([]types.ProtocolOverview, error)
	SpeechesForProtocol(protocolID string) ([]types.Speech, error)
}

// ProtocolHandler serves the stored protocols and their speeches
type ProtocolHandler struct {
	store ProtocolReader
}

// NewProtocolHandler creates a new protocol handler
func NewProtocolHandler(store ProtocolReader) *ProtocolHandler {
	return &ProtocolHandler{store: store}
}

// List returns the latest stored protocols
func (h *ProtocolHandler) List(c *fiber.Ctx) error {
	limit := 25
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.Status(400).JSON(fiber.Map{
				"error": "Invalid limit",
				"code":  "ERR_BAD_LIMIT",
			})
		}
		limit = parsed
	}

	protocols, err := h.store.ListProtocols(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_STORAGE",
		})
	}
	if protocols == nil {
		protocols = []types.ProtocolOverview{}
	}
	return c.JSON(protocols)
}

// Speeches returns the ordered speeches of one protocol
func (h *ProtocolHandler) Speeches(c *fiber.Ctx) error {
	speeches, err := h.store.SpeechesForProtocol(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_STORAGE",
		})
	}
	if speeches == nil {
		speeches = []types.Speech{}
	}
	return c.JSON(speeches)
}
