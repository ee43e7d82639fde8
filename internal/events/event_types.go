package events

import (
	"time"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAutoAssigned  EventType = "ticket_auto_assigned"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventTicketClosed        EventType = "ticket_closed"
	EventTicketApproved      EventType = "ticket_approved"
	EventCleaningCompleted   EventType = "cleaning_completed"
	EventCleaningApproved    EventType = "cleaning_approved"
	EventCleaningReassigned  EventType = "cleaning_reassigned"
	EventConsumptionRecorded EventType = "consumption_recorded"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.ActorType `json:"type"`
	StaffID *string          `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by services. SubjectID is the
// ticket, assignment or record the event is about.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	HotelID   string      `json:"hotel_id"`
	SubjectID string      `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Department domain.Department     `json:"department"`
	Priority   domain.TicketPriority `json:"priority"`
	RoomID     *string               `json:"room_id,omitempty"`
	Title      string                `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	PreviousStaffID *string `json:"previous_staff_id,omitempty"`
	AssigneeStaffID string  `json:"assignee_staff_id"`
	Title           string  `json:"title"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Department      domain.Department     `json:"department"`
	Priority        domain.TicketPriority `json:"priority"`
	AssigneeStaffID *string               `json:"assignee_staff_id,omitempty"`
	Breached        bool                  `json:"breached"`
	SLABreachReason string                `json:"sla_breach_reason,omitempty"`
}

// CleaningPayload describes a cleaning assignment transition.
type CleaningPayload struct {
	RoomID          string                  `json:"room_id"`
	AssignmentDate  string                  `json:"assignment_date"`
	AssigneeStaffID string                  `json:"assignee_staff_id"`
	Status          domain.AssignmentStatus `json:"status"`
	ReplacementID   string                  `json:"replacement_id,omitempty"`
	SupersededIDs   []string                `json:"superseded_ids,omitempty"`
}

// ConsumptionPayload describes a stored consumption record.
type ConsumptionPayload struct {
	RoomID    string                   `json:"room_id"`
	ItemID    string                   `json:"item_id"`
	ItemName  string                   `json:"item_name"`
	Quantity  int                      `json:"quantity"`
	Source    domain.ConsumptionSource `json:"source"`
	UsageDate string                   `json:"usage_date"`
	Outcome   string                   `json:"outcome"`
}
