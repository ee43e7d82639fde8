package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-ops/internal/api/dto"
	"github.com/spec-kit/hotel-ops/internal/auth"
	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/service"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// TicketsHandler manages service ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	hotelID := req.HotelID
	if hotelID == "" {
		hotelID = principal.Staff.HotelID
	}
	ticket, err := h.service.Create(c.UserContext(), principal.Staff.ID, service.TicketCreateInput{
		OrganizationID: principal.Staff.OrganizationID,
		HotelID:        hotelID,
		RoomID:         req.RoomID,
		Department:     req.Department,
		Priority:       req.Priority,
		Title:          req.Title,
		Description:    req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	filter.OrganizationID = principal.Staff.OrganizationID
	if filter.HotelID == "" {
		filter.HotelID = principal.Staff.HotelID
	}
	tickets, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PendingApproval GET /tickets/pending-approval.
func (h *TicketsHandler) PendingApproval(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	hotelID := c.Query("hotel_id", principal.Staff.HotelID)
	tickets, err := h.service.PendingApproval(c.UserContext(), principal.Staff.OrganizationID, hotelID, parseInt(c.Query("limit"), 50))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id?change_type=.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	orgID := principal.Staff.OrganizationID
	ticket, eval, err := h.service.Get(c.UserContext(), orgID, c.Params("id"))
	if err != nil {
		return err
	}
	var kinds []domain.TicketChangeType
	if raw := c.Query("change_type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			kinds = append(kinds, domain.TicketChangeType(strings.TrimSpace(part)))
		}
	}
	history, err := h.service.History(c.UserContext(), orgID, ticket.ID, kinds...)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketDetailResponse{
		TicketResponse: ticketResponse(ticket, &eval),
		History:        historyResponses(history),
	}})
}

// StartTicket POST /tickets/:id/start.
func (h *TicketsHandler) StartTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Start(c.UserContext(), principal.Staff.OrganizationID, c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CloseTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Close(c.UserContext(), principal.Staff.OrganizationID, c.Params("id"), principal.Staff.ID, service.TicketCloseInput{
		ResolutionText:  req.ResolutionText,
		SLABreachReason: req.SLABreachReason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// ReassignTicket POST /tickets/:id/reassign.
func (h *TicketsHandler) ReassignTicket(c *fiber.Ctx) error {
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
	ticket, err := h.service.Reassign(c.UserContext(), principal.Staff.OrganizationID, c.Params("id"), req.StaffID, principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

// ApproveTicket POST /tickets/:id/approve.
func (h *TicketsHandler) ApproveTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Approve(c.UserContext(), principal.Staff.OrganizationID, c.Params("id"), principal.Staff.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket, nil)})
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{HotelID: c.Query("hotel_id")}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if deptStr := c.Query("department"); deptStr != "" {
		for _, part := range strings.Split(deptStr, ",") {
			filter.Departments = append(filter.Departments, domain.Department(strings.TrimSpace(part)))
		}
	}
	if room := c.Query("room_id"); room != "" {
		filter.RoomID = &room
	}
	if assignee := c.Query("assigned_to"); assignee != "" {
		filter.AssignedTo = &assignee
	}
	filter.CreatedFrom = parseTime(c.Query("created_from"))
	filter.CreatedTo = parseTime(c.Query("created_to"))
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketResponse(ticket *domain.ServiceTicket, eval *service.SLAEvaluation) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                        ticket.ID,
		HotelID:                   ticket.HotelID,
		RoomID:                    ticket.RoomID,
		Department:                ticket.Department,
		Priority:                  ticket.Priority,
		Status:                    ticket.Status,
		Title:                     ticket.Title,
		Description:               ticket.Description,
		CreatedBy:                 ticket.CreatedBy,
		AssignedTo:                ticket.AssignedTo,
		ResolutionText:            ticket.ResolutionText,
		SLABreachReason:           ticket.SLABreachReason,
		SupervisorApproved:        ticket.SupervisorApproved,
		PendingSupervisorApproval: ticket.PendingSupervisorApproval,
		CreatedAt:                 ticket.CreatedAt,
		UpdatedAt:                 ticket.UpdatedAt,
		ClosedAt:                  ticket.ClosedAt,
	}
	if eval != nil {
		resp.SLA = &dto.SLAResponse{
			SLAHours:       eval.SLAHours,
			ElapsedHours:   eval.ElapsedHours,
			IsOverdue:      eval.IsOverdue,
			RemainingHours: eval.RemainingHours,
		}
	}
	return resp
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}
