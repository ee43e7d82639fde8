package domain

import "time"

// Session is an authenticated staff session.
type Session struct {
	StaffID   string
	Role      StaffRole
	HotelID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
