package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/observability"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// CleaningService gates housekeeping completions through supervisor approval
// and handles supervisor reassignment.
type CleaningService struct {
	assignments repository.CleaningAssignmentRepository
	staff       repository.StaffRepository
	rooms       *RoomDirectory
	events      eventPublisher
	metrics     *observability.Metrics
	now         func() time.Time
}

// CleaningDependencies bundles collaborators for the cleaning service.
type CleaningDependencies struct {
	AssignmentRepo repository.CleaningAssignmentRepository
	StaffRepo      repository.StaffRepository
	Rooms          *RoomDirectory
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Clock          func() time.Time
}

// PendingQuery scopes the pending-approval queue.
type PendingQuery struct {
	OrganizationID string
	HotelID        *string
	Date           *time.Time
	Limit          int
}

// NewCleaningService constructs the service.
func NewCleaningService(deps CleaningDependencies) *CleaningService {
	now := clockOrDefault(deps.Clock)
	return &CleaningService{
		assignments: deps.AssignmentRepo,
		staff:       deps.StaffRepo,
		rooms:       deps.Rooms,
		events:      newEventPublisher(deps.Dispatcher, deps.Logger, now),
		metrics:     deps.Metrics,
		now:         now,
	}
}

// Get returns one assignment.
func (s *CleaningService) Get(ctx context.Context, assignmentID string) (*domain.CleaningAssignment, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
	}
	return a, nil
}

// Start moves the caller's assigned task to in_progress.
func (s *CleaningService) Start(ctx context.Context, assignmentID, staffID string) (*domain.CleaningAssignment, error) {
	a, err := s.assignments.Start(ctx, assignmentID, staffID, s.now())
	if err != nil {
		return nil, s.ownerTransitionError(ctx, err, assignmentID, staffID, "assignment is not in assigned status")
	}
	s.metrics.CleaningTransition("start")
	return a, nil
}

// Complete marks the caller's task done; it then waits in the pending queue.
func (s *CleaningService) Complete(ctx context.Context, assignmentID, staffID string) (*domain.CleaningAssignment, error) {
	a, err := s.assignments.Complete(ctx, assignmentID, staffID, s.now())
	if err != nil {
		return nil, s.ownerTransitionError(ctx, err, assignmentID, staffID, "assignment is already completed")
	}
	s.metrics.CleaningTransition("complete")
	s.publish(ctx, events.EventCleaningCompleted, a, staffActor(staffID), nil)
	return a, nil
}

// Approve signs off a completed assignment of orgID. The PMS push that
// follows is a subscriber of the approval event and cannot fail the approval.
func (s *CleaningService) Approve(ctx context.Context, orgID, assignmentID, approverID string) (*domain.CleaningAssignment, error) {
	if _, _, err := s.scopedAssignment(ctx, orgID, assignmentID); err != nil {
		return nil, err
	}
	a, err := s.assignments.Approve(ctx, assignmentID, approverID, s.now())
	if err != nil {
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, lookupError(err, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
		}
		current, getErr := s.assignments.GetByID(ctx, assignmentID)
		if getErr != nil {
			return nil, lookupError(getErr, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
		}
		if current.SupervisorApproved {
			return nil, apperrors.NewAlreadyApproved("cleaning assignment", map[string]any{"assignment_id": assignmentID})
		}
		return nil, apperrors.NewConflict("assignment is not completed", map[string]any{
			"assignment_id": assignmentID,
			"status":        current.Status,
		})
	}
	s.metrics.CleaningTransition("approve")
	s.publish(ctx, events.EventCleaningApproved, a, staffActor(approverID), nil)
	return a, nil
}

// ReassignResult reports every assignment touched by a reassignment.
type ReassignResult struct {
	Original    domain.CleaningAssignment   `json:"original"`
	Superseded  []domain.CleaningAssignment `json:"superseded"`
	Replacement domain.CleaningAssignment   `json:"replacement"`
}

// Reassign hands the room-day to newStaffID. Other active assignments of the
// room-day are superseded, the original leaves the pending queue without
// being judged and a fresh assignment is created, all in one write.
func (s *CleaningService) Reassign(ctx context.Context, orgID, assignmentID, newStaffID, approverID string) (*ReassignResult, error) {
	if strings.TrimSpace(newStaffID) == "" {
		return nil, apperrors.NewValidationError("staff is required", map[string]any{"field": "staff_id"})
	}
	_, room, err := s.scopedAssignment(ctx, orgID, assignmentID)
	if err != nil {
		return nil, err
	}
	target, err := s.staff.GetByID(ctx, newStaffID)
	if err != nil {
		return nil, lookupError(err, "staff", map[string]any{"staff_id": newStaffID})
	}
	if !target.Active {
		return nil, apperrors.NewValidationError("staff member is inactive", map[string]any{"staff_id": newStaffID})
	}
	if target.HotelID != room.Hotel.ID {
		return nil, apperrors.NewValidationError("staff member works at another hotel", map[string]any{"staff_id": newStaffID})
	}

	res, err := s.assignments.Reassign(ctx, repository.ReassignParams{
		AssignmentID: assignmentID,
		NewStaffID:   newStaffID,
		ApproverID:   approverID,
		Now:          s.now(),
	})
	if err != nil {
		return nil, lookupError(err, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
	}

	s.metrics.CleaningTransition("reassign")
	supersededIDs := make([]string, 0, len(res.Superseded))
	for _, a := range res.Superseded {
		supersededIDs = append(supersededIDs, a.ID)
	}
	s.publish(ctx, events.EventCleaningReassigned, &res.Replacement, staffActor(approverID), func(p *events.CleaningPayload) {
		p.ReplacementID = res.Replacement.ID
		p.SupersededIDs = supersededIDs
	})
	return &ReassignResult{Original: res.Original, Superseded: res.Superseded, Replacement: res.Replacement}, nil
}

// PendingApproval lists completed, unapproved assignments of an
// organization, newest completion first.
func (s *CleaningService) PendingApproval(ctx context.Context, q PendingQuery) ([]domain.CleaningAssignment, error) {
	if q.OrganizationID == "" {
		return nil, apperrors.NewValidationError("organization is required", map[string]any{"field": "organization_id"})
	}
	list, err := s.assignments.ListPending(ctx, repository.PendingFilter{
		OrganizationID: q.OrganizationID,
		HotelID:        q.HotelID,
		Date:           q.Date,
		Limit:          q.Limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// scopedAssignment loads an assignment with its room and reports assignments
// of other organizations as missing.
func (s *CleaningService) scopedAssignment(ctx context.Context, orgID, assignmentID string) (*domain.CleaningAssignment, *domain.RoomContext, error) {
	a, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, lookupError(err, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
	}
	room, err := s.rooms.Lookup(ctx, a.RoomID)
	if err != nil {
		return nil, nil, err
	}
	if room.Hotel.OrganizationID != orgID {
		return nil, nil, apperrors.NewNotFound("cleaning assignment", map[string]any{"assignment_id": assignmentID})
	}
	return a, room, nil
}

func (s *CleaningService) ownerTransitionError(ctx context.Context, err error, assignmentID, staffID, message string) error {
	if !errors.Is(err, repository.ErrConditionFailed) {
		return lookupError(err, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
	}
	current, getErr := s.assignments.GetByID(ctx, assignmentID)
	if getErr != nil {
		return lookupError(getErr, "cleaning assignment", map[string]any{"assignment_id": assignmentID})
	}
	if current.AssignedTo != staffID {
		return apperrors.NewForbidden("assignment belongs to another staff member")
	}
	return apperrors.NewConflict(message, map[string]any{
		"assignment_id": assignmentID,
		"status":        current.Status,
	})
}

func (s *CleaningService) publish(ctx context.Context, eventType events.EventType, a *domain.CleaningAssignment, actor events.Actor, decorate func(*events.CleaningPayload)) {
	payload := events.CleaningPayload{
		RoomID:          a.RoomID,
		AssignmentDate:  a.AssignmentDate.Format(time.DateOnly),
		AssigneeStaffID: a.AssignedTo,
		Status:          a.Status,
	}
	if decorate != nil {
		decorate(&payload)
	}
	hotelID := ""
	if room, err := s.rooms.Lookup(ctx, a.RoomID); err == nil {
		hotelID = room.Hotel.ID
	}
	s.events.publish(ctx, events.Event{
		Type:      eventType,
		HotelID:   hotelID,
		SubjectID: a.ID,
		Actor:     actor,
		Payload:   payload,
	})
}
