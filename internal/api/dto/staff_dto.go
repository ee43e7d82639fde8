package dto

import (
	"time"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID      string           `json:"id"`
	HotelID string           `json:"hotel_id"`
	Name    string           `json:"name"`
	Email   string           `json:"email"`
	Role    domain.StaffRole `json:"role"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Staff       StaffResponse     `json:"staff"`
	Dispatch    *DispatchResponse `json:"dispatch,omitempty"`
}
