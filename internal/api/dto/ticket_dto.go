package dto

import (
	"time"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	HotelID     string                `json:"hotel_id"`
	RoomID      *string               `json:"room_id"`
	Department  domain.Department     `json:"department"`
	Priority    domain.TicketPriority `json:"priority"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
}

// CloseTicketRequest payload.
type CloseTicketRequest struct {
	ResolutionText  string `json:"resolution_text"`
	SLABreachReason string `json:"sla_breach_reason"`
}

// ReassignRequest payload shared by ticket and cleaning reassignment.
type ReassignRequest struct {
	StaffID string `json:"staff_id"`
}

// SLAResponse is the SLA position of a ticket.
type SLAResponse struct {
	SLAHours       int  `json:"sla_hours"`
	ElapsedHours   int  `json:"elapsed_hours"`
	IsOverdue      bool `json:"is_overdue"`
	RemainingHours int  `json:"remaining_hours"`
}

// TicketResponse represents a service ticket.
type TicketResponse struct {
	ID                        string                `json:"id"`
	HotelID                   string                `json:"hotel_id"`
	RoomID                    *string               `json:"room_id"`
	Department                domain.Department     `json:"department"`
	Priority                  domain.TicketPriority `json:"priority"`
	Status                    domain.TicketStatus   `json:"status"`
	Title                     string                `json:"title"`
	Description               string                `json:"description,omitempty"`
	CreatedBy                 *string               `json:"created_by"`
	AssignedTo                *string               `json:"assigned_to"`
	ResolutionText            string                `json:"resolution_text,omitempty"`
	SLABreachReason           string                `json:"sla_breach_reason,omitempty"`
	SupervisorApproved        bool                  `json:"supervisor_approved"`
	PendingSupervisorApproval bool                  `json:"pending_supervisor_approval"`
	CreatedAt                 time.Time             `json:"created_at"`
	UpdatedAt                 time.Time             `json:"updated_at"`
	ClosedAt                  *time.Time            `json:"closed_at"`
	SLA                       *SLAResponse          `json:"sla,omitempty"`
}

// TicketDetailResponse adds the audit trail to a ticket.
type TicketDetailResponse struct {
	TicketResponse
	History []TicketHistoryResponse `json:"history"`
}

// TicketHistoryResponse entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.ActorType        `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}

// DispatchResponse reports a manual dispatch run.
type DispatchResponse struct {
	Outcome string          `json:"outcome"`
	Ticket  *TicketResponse `json:"ticket,omitempty"`
}
