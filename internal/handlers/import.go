package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/protokollmine/protokollmine/internal/queue"
	"github.com/protokollmine/protokollmine/internal/types"
)

// ImportQueue is the slice of the worker pool the import handler needs
type ImportQueue interface {
	Enqueue(trigger, updatedSince string, limit int) (queue.Job, error)
	Job(id string) (queue.Job, bool)
}

// ImportHandler triggers import runs and reports their status
type ImportHandler struct {
	pool ImportQueue
}

// NewImportHandler creates a new import handler
func NewImportHandler(pool ImportQueue) *ImportHandler {
	return &ImportHandler{pool: pool}
}

type importRequest struct {
	UpdatedSince string `json:"updated_since"`
	Limit        int    `json:"limit"`
}

// Trigger enqueues a new import job
func (h *ImportHandler) Trigger(c *fiber.Ctx) error {
	var request importRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&request); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"error": "Invalid request body",
				"code":  "ERR_BAD_REQUEST",
			})
		}
	}
	if request.Limit < 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "Limit must not be negative",
			"code":  "ERR_BAD_LIMIT",
		})
	}

	job, err := h.pool.Enqueue(types.TriggerAPI, request.UpdatedSince, request.Limit)
	if err != nil {
		log.Printf("Failed to enqueue import: %v", err)
		return c.Status(503).JSON(fiber.Map{
			"error": "Import queue is full",
			"code":  "ERR_QUEUE_FULL",
		})
	}

	return c.Status(202).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status,
		"message": "Import started",
	})
}

// Status reports one import job
func (h *ImportHandler) Status(c *fiber.Ctx) error {
	job, ok := h.pool.Job(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_JOB_NOT_FOUND",
		})
	}
	return c.JSON(job)
}
