package dto

import (
	"time"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// AssignmentResponse represents a cleaning assignment. AssignmentDate is a
// YYYY-MM-DD calendar day.
type AssignmentResponse struct {
	ID                   string                  `json:"id"`
	RoomID               string                  `json:"room_id"`
	AssignedTo           string                  `json:"assigned_to"`
	AssignmentDate       string                  `json:"assignment_date"`
	AssignmentType       domain.AssignmentType   `json:"assignment_type"`
	Status               domain.AssignmentStatus `json:"status"`
	Priority             domain.TicketPriority   `json:"priority"`
	Notes                string                  `json:"notes,omitempty"`
	StartedAt            *time.Time              `json:"started_at"`
	CompletedAt          *time.Time              `json:"completed_at"`
	SupervisorApproved   bool                    `json:"supervisor_approved"`
	SupervisorApprovedBy *string                 `json:"supervisor_approved_by"`
	SupervisorApprovedAt *time.Time              `json:"supervisor_approved_at"`
}

// ReassignResponse lists every assignment a reassignment touched.
type ReassignResponse struct {
	Original    AssignmentResponse   `json:"original"`
	Superseded  []AssignmentResponse `json:"superseded"`
	Replacement AssignmentResponse   `json:"replacement"`
}
