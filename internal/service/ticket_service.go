package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/observability"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

var slaHoursByPriority = map[domain.TicketPriority]int{
	domain.TicketPriorityUrgent: 2,
	domain.TicketPriorityHigh:   8,
	domain.TicketPriorityMedium: 24,
	domain.TicketPriorityLow:    72,
}

// SLAHours returns the resolution bound for priority. Unknown priorities get
// the medium bound.
func SLAHours(priority domain.TicketPriority) int {
	if hours, ok := slaHoursByPriority[priority]; ok {
		return hours
	}
	return slaHoursByPriority[domain.TicketPriorityMedium]
}

// SLAEvaluation is the SLA position of a ticket at a point in time.
type SLAEvaluation struct {
	SLAHours       int  `json:"sla_hours"`
	ElapsedHours   int  `json:"elapsed_hours"`
	IsOverdue      bool `json:"is_overdue"`
	RemainingHours int  `json:"remaining_hours"`
}

// Evaluate computes whole elapsed hours since creation and compares them to
// the priority's bound. A ticket is overdue only once elapsed hours strictly
// exceed the bound.
func Evaluate(ticket *domain.ServiceTicket, now time.Time) SLAEvaluation {
	bound := SLAHours(ticket.Priority)
	elapsed := int(math.Floor(now.Sub(ticket.CreatedAt).Hours()))
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := bound - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return SLAEvaluation{
		SLAHours:       bound,
		ElapsedHours:   elapsed,
		IsOverdue:      elapsed > bound,
		RemainingHours: remaining,
	}
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets repository.TicketRepository
	staff   repository.StaffRepository
	history repository.TicketHistoryRepository
	rooms   *RoomDirectory
	hotels  repository.HotelRepository
	events  eventPublisher
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	StaffRepo   repository.StaffRepository
	HistoryRepo repository.TicketHistoryRepository
	HotelRepo   repository.HotelRepository
	Rooms       *RoomDirectory
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	OrganizationID string
	HotelID        string
	RoomID         *string
	Department     domain.Department
	Priority       domain.TicketPriority
	Title          string
	Description    string
}

// TicketCloseInput carries the resolution of a ticket.
type TicketCloseInput struct {
	ResolutionText  string
	SLABreachReason string
}

// TicketListFilter describes staff listing filters. The hotel must belong to
// OrganizationID.
type TicketListFilter struct {
	OrganizationID string
	HotelID        string
	RoomID         *string
	AssignedTo     *string
	Departments    []domain.Department
	Statuses       []domain.TicketStatus
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Limit          int
	Offset         int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := clockOrDefault(deps.Clock)
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets: deps.TicketRepo,
		staff:   deps.StaffRepo,
		history: deps.HistoryRepo,
		rooms:   deps.Rooms,
		hotels:  deps.HotelRepo,
		events:  newEventPublisher(deps.Dispatcher, logger, now),
		metrics: deps.Metrics,
		logger:  logger,
		now:     now,
	}
}

// Create opens a ticket. A room is optional for public-area issues.
func (s *TicketService) Create(ctx context.Context, actorID string, input TicketCreateInput) (*domain.ServiceTicket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if !input.Department.Valid() {
		return nil, apperrors.NewValidationError("department is invalid", map[string]any{"department": input.Department})
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("priority is invalid", map[string]any{"priority": input.Priority})
	}
	if _, err := hotelInOrganization(ctx, s.hotels, input.OrganizationID, input.HotelID); err != nil {
		return nil, err
	}
	if input.RoomID != nil && *input.RoomID != "" {
		room, err := s.rooms.Lookup(ctx, *input.RoomID)
		if err != nil {
			return nil, err
		}
		if room.Hotel.ID != input.HotelID {
			return nil, apperrors.NewValidationError("room does not belong to hotel", map[string]any{"room_id": *input.RoomID})
		}
	} else {
		input.RoomID = nil
	}

	ticket := &domain.ServiceTicket{
		HotelID:     input.HotelID,
		RoomID:      input.RoomID,
		Department:  input.Department,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
	}
	if actorID != "" {
		ticket.CreatedBy = &actorID
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.events.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		HotelID:   ticket.HotelID,
		SubjectID: ticket.ID,
		Actor:     staffActor(actorID),
		Payload: events.TicketCreatedPayload{
			Department: ticket.Department,
			Priority:   ticket.Priority,
			RoomID:     ticket.RoomID,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// Get returns a ticket of orgID with its current SLA position.
func (s *TicketService) Get(ctx context.Context, orgID, ticketID string) (*domain.ServiceTicket, SLAEvaluation, error) {
	ticket, err := s.scopedTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, SLAEvaluation{}, err
	}
	return ticket, s.evaluate(ticket), nil
}

// List returns tickets of a hotel matching filter.
func (s *TicketService) List(ctx context.Context, filter TicketListFilter) ([]domain.ServiceTicket, error) {
	if _, err := hotelInOrganization(ctx, s.hotels, filter.OrganizationID, filter.HotelID); err != nil {
		return nil, err
	}
	hotelID := filter.HotelID
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		HotelID:     &hotelID,
		RoomID:      filter.RoomID,
		AssignedTo:  filter.AssignedTo,
		Departments: filter.Departments,
		Statuses:    filter.Statuses,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// History lists the audit trail of a ticket in write order, optionally
// narrowed to kinds.
func (s *TicketService) History(ctx context.Context, orgID, ticketID string, kinds ...domain.TicketChangeType) ([]domain.TicketHistory, error) {
	for _, k := range kinds {
		if !k.Valid() {
			return nil, apperrors.NewValidationError("change type is invalid", map[string]any{"change_type": k})
		}
	}
	if _, err := s.scopedTicket(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, kinds...)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Start moves an open ticket to in_progress for staffID.
func (s *TicketService) Start(ctx context.Context, orgID, ticketID, staffID string) (*domain.ServiceTicket, error) {
	if _, err := s.scopedTicket(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.Start(ctx, ticketID, staffID)
	if err != nil {
		return nil, s.transitionError(ctx, err, ticketID, "ticket is not open")
	}
	s.recordStatusChange(ctx, domain.ActorTypeStaff, &staffID, ticket.ID, domain.TicketStatusOpen, ticket.Status, "")
	return ticket, nil
}

// Close resolves a ticket. The resolution is mandatory; an overdue ticket
// also needs a breach reason. The notification is best-effort.
func (s *TicketService) Close(ctx context.Context, orgID, ticketID, actorID string, input TicketCloseInput) (*domain.ServiceTicket, error) {
	resolution := strings.TrimSpace(input.ResolutionText)
	if resolution == "" {
		return nil, apperrors.NewValidationError("resolution text is required", map[string]any{"field": "resolution_text"})
	}
	ticket, err := s.scopedTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsClosed() {
		return nil, apperrors.NewConflict("ticket already completed", map[string]any{"ticket_id": ticketID})
	}

	now := s.now()
	eval := Evaluate(ticket, now)
	reason := strings.TrimSpace(input.SLABreachReason)
	if eval.IsOverdue && reason == "" {
		return nil, apperrors.NewValidationError("sla breach reason is required for an overdue ticket", map[string]any{
			"field":         "sla_breach_reason",
			"elapsed_hours": eval.ElapsedHours,
			"sla_hours":     eval.SLAHours,
		})
	}

	oldStatus := ticket.Status
	closed, err := s.tickets.Close(ctx, ticketID, repository.CloseParams{
		ResolutionText:  resolution,
		SLABreachReason: reason,
		ClosedAt:        now,
	})
	if err != nil {
		return nil, s.transitionError(ctx, err, ticketID, "ticket already completed")
	}

	s.metrics.TicketClosed(eval.IsOverdue)
	s.recordStatusChange(ctx, domain.ActorTypeStaff, &actorID, closed.ID, oldStatus, closed.Status, resolution)
	s.events.publish(ctx, events.Event{
		Type:      events.EventTicketClosed,
		HotelID:   closed.HotelID,
		SubjectID: closed.ID,
		Actor:     staffActor(actorID),
		Payload: events.TicketClosedPayload{
			Department:      closed.Department,
			Priority:        closed.Priority,
			AssigneeStaffID: closed.AssignedTo,
			Breached:        eval.IsOverdue,
			SLABreachReason: closed.SLABreachReason,
		},
	})
	return closed, nil
}

// Reassign hands a ticket to staffID of the ticket's hotel. It changes the
// assignee only.
func (s *TicketService) Reassign(ctx context.Context, orgID, ticketID, staffID, actorID string) (*domain.ServiceTicket, error) {
	if strings.TrimSpace(staffID) == "" {
		return nil, apperrors.NewValidationError("staff is required", map[string]any{"field": "staff_id"})
	}
	ticket, err := s.scopedTicket(ctx, orgID, ticketID)
	if err != nil {
		return nil, err
	}
	target, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, lookupError(err, "staff", map[string]any{"staff_id": staffID})
	}
	if !target.Active {
		return nil, apperrors.NewValidationError("staff member is inactive", map[string]any{"staff_id": staffID})
	}
	if target.HotelID != ticket.HotelID {
		return nil, apperrors.NewValidationError("staff member works at another hotel", map[string]any{"staff_id": staffID})
	}

	previous := ticket.AssignedTo
	updated, err := s.tickets.UpdateAssignee(ctx, ticketID, staffID)
	if err != nil {
		return nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	s.recordAssigneeChange(ctx, domain.ActorTypeStaff, &actorID, updated.ID, previous, updated.AssignedTo)
	s.events.publish(ctx, events.Event{
		Type:      events.EventTicketReassigned,
		HotelID:   updated.HotelID,
		SubjectID: updated.ID,
		Actor:     staffActor(actorID),
		Payload: events.TicketAssignedPayload{
			PreviousStaffID: previous,
			AssigneeStaffID: staffID,
			Title:           updated.Title,
		},
	})
	return updated, nil
}

// Approve signs off a closed ticket awaiting supervisor review.
func (s *TicketService) Approve(ctx context.Context, orgID, ticketID, approverID string) (*domain.ServiceTicket, error) {
	if _, err := s.scopedTicket(ctx, orgID, ticketID); err != nil {
		return nil, err
	}
	approved, err := s.tickets.Approve(ctx, ticketID)
	if err != nil {
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		current, getErr := s.tickets.GetByID(ctx, ticketID)
		if getErr != nil {
			return nil, lookupError(getErr, "ticket", map[string]any{"ticket_id": ticketID})
		}
		if current.SupervisorApproved {
			return nil, apperrors.NewAlreadyApproved("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewConflict("ticket is not awaiting approval", map[string]any{
			"ticket_id": ticketID,
			"status":    current.Status,
		})
	}
	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:      approved.ID,
		ChangedByType: domain.ActorTypeStaff,
		ChangedByID:   &approverID,
		ChangeType:    domain.ChangeTypeApproval,
		OldValue:      map[string]any{"supervisor_approved": false},
		NewValue:      map[string]any{"supervisor_approved": true},
	})
	s.events.publish(ctx, events.Event{
		Type:      events.EventTicketApproved,
		HotelID:   approved.HotelID,
		SubjectID: approved.ID,
		Actor:     staffActor(approverID),
	})
	return approved, nil
}

// PendingApproval lists closed tickets of a hotel awaiting sign-off, newest first.
func (s *TicketService) PendingApproval(ctx context.Context, orgID, hotelID string, limit int) ([]domain.ServiceTicket, error) {
	if _, err := hotelInOrganization(ctx, s.hotels, orgID, hotelID); err != nil {
		return nil, err
	}
	pending := true
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		HotelID:         &hotelID,
		Statuses:        []domain.TicketStatus{domain.TicketStatusCompleted},
		PendingApproval: &pending,
		Limit:           limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// scopedTicket loads a ticket and reports tickets of other organizations as
// missing.
func (s *TicketService) scopedTicket(ctx context.Context, orgID, ticketID string) (*domain.ServiceTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	hotel, err := s.hotels.GetByID(ctx, ticket.HotelID)
	if err != nil {
		return nil, lookupError(err, "hotel", map[string]any{"hotel_id": ticket.HotelID})
	}
	if hotel.OrganizationID != orgID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// evaluate measures open tickets against the clock and closed ones at close time.
func (s *TicketService) evaluate(ticket *domain.ServiceTicket) SLAEvaluation {
	end := s.now()
	if ticket.ClosedAt != nil {
		end = *ticket.ClosedAt
	}
	return Evaluate(ticket, end)
}

// transitionError explains a guarded write that matched no row.
func (s *TicketService) transitionError(ctx context.Context, err error, ticketID, message string) error {
	if !errors.Is(err, repository.ErrConditionFailed) {
		return lookupError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	current, getErr := s.tickets.GetByID(ctx, ticketID)
	if getErr == nil && current.IsClosed() {
		return apperrors.NewConflict("ticket already completed", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.NewConflict(message, map[string]any{"ticket_id": ticketID})
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorType domain.ActorType, actorID *string, ticketID string, oldStatus, newStatus domain.TicketStatus, comment string) {
	newValue := map[string]any{"status": newStatus}
	if comment != "" {
		newValue["comment"] = comment
	}
	s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": oldStatus},
		NewValue:      newValue,
	})
}

func (s *TicketService) recordAssigneeChange(ctx context.Context, actorType domain.ActorType, actorID *string, ticketID string, oldAssignee, newAssignee *string) {
	recordAssigneeChange(ctx, s.history, s.logger, actorType, actorID, ticketID, oldAssignee, newAssignee)
}

// recordHistory appends an audit entry. The ticket write has already
// committed, so a failure here is logged rather than returned.
func (s *TicketService) recordHistory(ctx context.Context, entry *domain.TicketHistory) {
	appendHistory(ctx, s.history, s.logger, entry)
}

func appendHistory(ctx context.Context, history repository.TicketHistoryRepository, logger *zap.Logger, entry *domain.TicketHistory) {
	if history == nil {
		return
	}
	if err := history.Append(ctx, entry); err != nil {
		logger.Warn("ticket history write failed",
			zap.String("ticket_id", entry.TicketID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}

func recordAssigneeChange(ctx context.Context, history repository.TicketHistoryRepository, logger *zap.Logger, actorType domain.ActorType, actorID *string, ticketID string, oldAssignee, newAssignee *string) {
	appendHistory(ctx, history, logger, &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actorType,
		ChangedByID:   actorID,
		ChangeType:    domain.ChangeTypeAssignee,
		OldValue:      map[string]any{"assigned_to": oldAssignee},
		NewValue:      map[string]any{"assigned_to": newAssignee},
	})
}
