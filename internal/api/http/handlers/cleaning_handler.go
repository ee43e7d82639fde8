package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-ops/internal/api/dto"
	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/service"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// CleaningHandler exposes the cleaning approval workflow.
type CleaningHandler struct {
	service *service.CleaningService
}

// NewCleaningHandler constructs handler.
func NewCleaningHandler(cleaningService *service.CleaningService) *CleaningHandler {
	return &CleaningHandler{service: cleaningService}
}

// PendingApproval GET /cleaning/pending-approval?hotel_id=&date=.
func (h *CleaningHandler) PendingApproval(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	q := service.PendingQuery{
		OrganizationID: principal.Staff.OrganizationID,
		Limit:          parseInt(c.Query("limit"), 100),
	}
	if hotelID := c.Query("hotel_id"); hotelID != "" {
		q.HotelID = &hotelID
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return apperrors.NewValidationError("date must be YYYY-MM-DD", map[string]any{"date": raw})
		}
		q.Date = &day
	}
	assignments, err := h.service.PendingApproval(c.UserContext(), q)
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		items = append(items, assignmentResponse(&assignments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Start POST /cleaning/:id/start.
func (h *CleaningHandler) Start(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	a, err := h.service.Start(c.UserContext(), c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(a)})
}

// Complete POST /cleaning/:id/complete.
func (h *CleaningHandler) Complete(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	a, err := h.service.Complete(c.UserContext(), c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(a)})
}

// Approve POST /cleaning/:id/approve.
func (h *CleaningHandler) Approve(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	a, err := h.service.Approve(c.UserContext(), principal.Staff.OrganizationID, c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assignmentResponse(a)})
}

// Reassign POST /cleaning/:id/reassign.
func (h *CleaningHandler) Reassign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReassignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.StaffID) == "" {
		return apperrors.NewValidationError("staff_id required", nil)
	}
	res, err := h.service.Reassign(c.UserContext(), principal.Staff.OrganizationID, c.Params("id"), req.StaffID, principal.Staff.ID)
	if err != nil {
		return err
	}
	superseded := make([]dto.AssignmentResponse, 0, len(res.Superseded))
	for i := range res.Superseded {
		superseded = append(superseded, assignmentResponse(&res.Superseded[i]))
	}
	return c.JSON(fiber.Map{"data": dto.ReassignResponse{
		Original:    assignmentResponse(&res.Original),
		Superseded:  superseded,
		Replacement: assignmentResponse(&res.Replacement),
	}})
}

func assignmentResponse(a *domain.CleaningAssignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:                   a.ID,
		RoomID:               a.RoomID,
		AssignedTo:           a.AssignedTo,
		AssignmentDate:       a.AssignmentDate.Format(time.DateOnly),
		AssignmentType:       a.AssignmentType,
		Status:               a.Status,
		Priority:             a.Priority,
		Notes:                a.Notes,
		StartedAt:            a.StartedAt,
		CompletedAt:          a.CompletedAt,
		SupervisorApproved:   a.SupervisorApproved,
		SupervisorApprovedBy: a.SupervisorApprovedBy,
		SupervisorApprovedAt: a.SupervisorApprovedAt,
	}
}
