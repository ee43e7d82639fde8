package domain

import "time"

// TicketStatus enumerates lifecycle states for service tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ServiceTicket is a guest or staff reported issue handled by a department.
type ServiceTicket struct {
	ID                        string
	HotelID                   string
	RoomID                    *string
	Department                Department
	Priority                  TicketPriority
	Status                    TicketStatus
	Title                     string
	Description               string
	CreatedBy                 *string
	AssignedTo                *string
	ResolutionText            string
	SLABreachReason           string
	SupervisorApproved        bool
	PendingSupervisorApproval bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
	ClosedAt                  *time.Time
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *ServiceTicket) IsClosed() bool {
	return t.Status == TicketStatusCompleted
}
