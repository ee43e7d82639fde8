package domain

import "time"

// AssignmentStatus enumerates cleaning assignment states.
type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "assigned"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
)

// IsActive reports whether the status counts toward the one-active-per-room-day rule.
func (s AssignmentStatus) IsActive() bool {
	return s == AssignmentStatusAssigned || s == AssignmentStatusInProgress
}

// AssignmentType distinguishes the kind of room work.
type AssignmentType string

const (
	AssignmentTypeDailyCleaning AssignmentType = "daily_cleaning"
	AssignmentTypeCheckout      AssignmentType = "checkout_cleaning"
	AssignmentTypeDeepCleaning  AssignmentType = "deep_cleaning"
	AssignmentTypeMaintenance   AssignmentType = "maintenance"
)

// Notes written by supervisor reassignment.
const (
	NoteSuperseded       = "Reassigned to another housekeeper"
	NoteReassignedReview = "Reassigned — previous completion needs review"
)

// CleaningAssignment is one housekeeper's task on one room for one day.
type CleaningAssignment struct {
	ID                   string
	RoomID               string
	AssignedTo           string
	AssignmentDate       time.Time
	AssignmentType       AssignmentType
	Status               AssignmentStatus
	Priority             TicketPriority
	Notes                string
	StartedAt            *time.Time
	CompletedAt          *time.Time
	SupervisorApproved   bool
	SupervisorApprovedBy *string
	SupervisorApprovedAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AwaitingApproval reports whether the assignment sits in the pending queue.
func (a *CleaningAssignment) AwaitingApproval() bool {
	return a.Status == AssignmentStatusCompleted && !a.SupervisorApproved
}
