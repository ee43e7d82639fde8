package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hotel-ops/internal/api/dto"
	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/service"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// StaffHandler exposes staff login and logout.
type StaffHandler struct {
	authService *service.AuthService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(authService *service.AuthService) *StaffHandler {
	return &StaffHandler{authService: authService}
}

// Login handles POST /auth/staff/login.
func (h *StaffHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	resp := dto.LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.Session.ExpiresAt,
		Staff:       staffResponse(result.Staff),
	}
	if result.Dispatch != nil {
		d := dispatchResponse(result.Dispatch)
		resp.Dispatch = &d
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Logout handles POST /auth/staff/logout.
func (h *StaffHandler) Logout(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.UserContext(), principal.Staff.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:      staff.ID,
		HotelID: staff.HotelID,
		Name:    staff.Name,
		Email:   staff.Email,
		Role:    staff.Role,
	}
}
