package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/observability"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// DefaultStaleness is how long a ticket stays unclaimed before dispatch.
const DefaultStaleness = 4 * time.Hour

// Dispatch outcomes, also used as metric labels.
const (
	DispatchClaimed    = "claimed"
	DispatchNone       = "none"
	DispatchIneligible = "ineligible"
)

// DispatchResult reports one dispatch invocation.
type DispatchResult struct {
	Outcome string                `json:"outcome"`
	Ticket  *domain.ServiceTicket `json:"ticket,omitempty"`
}

// DispatchService assigns stale unclaimed tickets to staff whose role may
// handle their department. Each invocation claims at most one ticket.
type DispatchService struct {
	tickets     repository.TicketRepository
	staff       repository.StaffRepository
	history     repository.TicketHistoryRepository
	eligibility domain.DepartmentEligibility
	staleness   time.Duration
	events      eventPublisher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// DispatchDependencies bundles collaborators for dispatch.
type DispatchDependencies struct {
	TicketRepo  repository.TicketRepository
	StaffRepo   repository.StaffRepository
	HistoryRepo repository.TicketHistoryRepository
	Eligibility domain.DepartmentEligibility
	Staleness   time.Duration
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Clock       func() time.Time
}

// NewDispatchService constructs the service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	eligibility := deps.Eligibility
	if eligibility == nil {
		eligibility = domain.DefaultDepartmentEligibility
	}
	staleness := deps.Staleness
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	now := clockOrDefault(deps.Clock)
	return &DispatchService{
		tickets:     deps.TicketRepo,
		staff:       deps.StaffRepo,
		history:     deps.HistoryRepo,
		eligibility: eligibility,
		staleness:   staleness,
		events:      newEventPublisher(deps.Dispatcher, logger, now),
		metrics:     deps.Metrics,
		logger:      logger,
		now:         now,
	}
}

// EligibleDepartments returns the departments role may be dispatched.
func (s *DispatchService) EligibleDepartments(role domain.StaffRole) []domain.Department {
	return s.eligibility.For(role)
}

// DispatchFor runs one invocation for staff.
func (s *DispatchService) DispatchFor(ctx context.Context, staff *domain.StaffMember) (*DispatchResult, error) {
	if staff == nil || !staff.Active {
		s.metrics.DispatchResult(DispatchIneligible)
		return &DispatchResult{Outcome: DispatchIneligible}, nil
	}
	departments := s.EligibleDepartments(staff.Role)
	if len(departments) == 0 {
		s.metrics.DispatchResult(DispatchIneligible)
		return &DispatchResult{Outcome: DispatchIneligible}, nil
	}

	cutoff := s.now().Add(-s.staleness)
	ticket, err := s.tickets.ClaimOldestStale(ctx, staff.ID, staff.HotelID, departments, cutoff)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket == nil {
		s.metrics.DispatchResult(DispatchNone)
		return &DispatchResult{Outcome: DispatchNone}, nil
	}
	s.metrics.DispatchResult(DispatchClaimed)

	appendHistory(ctx, s.history, s.logger, &domain.TicketHistory{
		TicketID:      ticket.ID,
		ChangedByType: domain.ActorTypeSystem,
		ChangeType:    domain.ChangeTypeStatus,
		OldValue:      map[string]any{"status": domain.TicketStatusOpen},
		NewValue:      map[string]any{"status": ticket.Status, "comment": "auto-dispatched"},
	})
	recordAssigneeChange(ctx, s.history, s.logger, domain.ActorTypeSystem, nil, ticket.ID, nil, ticket.AssignedTo)

	s.logger.Info("ticket auto-dispatched",
		zap.String("ticket_id", ticket.ID),
		zap.String("staff_id", staff.ID),
		zap.String("department", string(ticket.Department)))
	s.events.publish(ctx, events.Event{
		Type:      events.EventTicketAutoAssigned,
		HotelID:   ticket.HotelID,
		SubjectID: ticket.ID,
		Actor:     systemActor(),
		Payload: events.TicketAssignedPayload{
			AssigneeStaffID: staff.ID,
			Title:           ticket.Title,
		},
	})
	return &DispatchResult{Outcome: DispatchClaimed, Ticket: ticket}, nil
}

// DispatchForStaffID loads the staff member and runs one invocation.
func (s *DispatchService) DispatchForStaffID(ctx context.Context, staffID string) (*DispatchResult, error) {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return nil, lookupError(err, "staff member", map[string]any{"staff_id": staffID})
	}
	return s.DispatchFor(ctx, staff)
}
