package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-ops/internal/api/dto"
	"github.com/spec-kit/hotel-ops/internal/service"
)

// DispatchHandler lets a logged-in staff member pull a stale ticket now.
type DispatchHandler struct {
	service *service.DispatchService
}

// NewDispatchHandler constructs handler.
func NewDispatchHandler(dispatchService *service.DispatchService) *DispatchHandler {
	return &DispatchHandler{service: dispatchService}
}

// Run handles POST /dispatch/run.
func (h *DispatchHandler) Run(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.service.DispatchFor(c.UserContext(), principal.Staff)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dispatchResponse(result)})
}

func dispatchResponse(result *service.DispatchResult) dto.DispatchResponse {
	resp := dto.DispatchResponse{Outcome: result.Outcome}
	if result.Ticket != nil {
		t := ticketResponse(result.Ticket, nil)
		resp.Ticket = &t
	}
	return resp
}
