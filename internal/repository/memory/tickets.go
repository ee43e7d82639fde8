package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
)

type staffRepo struct{ s *Store }

// Staff returns a repository.StaffRepository view.
func (s *Store) Staff() repository.StaffRepository { return staffRepo{s} }

func (r staffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if staff.ID == "" {
		staff.ID = newID()
	}
	now := r.s.now()
	staff.CreatedAt, staff.UpdatedAt = now, now
	r.s.staff[staff.ID] = *staff
	return nil
}

func (r staffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	staff, ok := r.s.staff[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &staff, nil
}

func (r staffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, staff := range r.s.staff {
		if strings.EqualFold(staff.Email, email) {
			out := staff
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r staffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.StaffMember
	for _, staff := range r.s.staff {
		if filter.HotelID != nil && staff.HotelID != *filter.HotelID {
			continue
		}
		if filter.Role != nil && staff.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && staff.Active != *filter.Active {
			continue
		}
		out = append(out, staff)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type ticketRepo struct{ s *Store }

// Tickets returns a repository.TicketRepository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Create keeps a caller supplied CreatedAt so tests can age tickets.
func (r ticketRepo) Create(_ context.Context, ticket *domain.ServiceTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = newID()
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.s.now()
	}
	ticket.UpdatedAt = ticket.CreatedAt
	r.s.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id string) (*domain.ServiceTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepo) UpdateAssignee(_ context.Context, id, staffID string) (*domain.ServiceTicket, error) {
	return r.mutate(id, func(t *domain.ServiceTicket) bool {
		t.AssignedTo = &staffID
		return true
	})
}

func (r ticketRepo) Start(_ context.Context, id, staffID string) (*domain.ServiceTicket, error) {
	return r.mutate(id, func(t *domain.ServiceTicket) bool {
		if t.Status != domain.TicketStatusOpen {
			return false
		}
		t.Status = domain.TicketStatusInProgress
		if t.AssignedTo == nil {
			t.AssignedTo = &staffID
		}
		return true
	})
}

func (r ticketRepo) Close(_ context.Context, id string, params repository.CloseParams) (*domain.ServiceTicket, error) {
	return r.mutate(id, func(t *domain.ServiceTicket) bool {
		if t.Status == domain.TicketStatusCompleted {
			return false
		}
		closedAt := params.ClosedAt
		t.Status = domain.TicketStatusCompleted
		t.ClosedAt = &closedAt
		t.ResolutionText = params.ResolutionText
		if params.SLABreachReason != "" {
			t.SLABreachReason = params.SLABreachReason
		}
		t.PendingSupervisorApproval = true
		t.SupervisorApproved = false
		return true
	})
}

func (r ticketRepo) Approve(_ context.Context, id string) (*domain.ServiceTicket, error) {
	return r.mutate(id, func(t *domain.ServiceTicket) bool {
		if t.Status != domain.TicketStatusCompleted || !t.PendingSupervisorApproval {
			return false
		}
		t.SupervisorApproved = true
		t.PendingSupervisorApproval = false
		return true
	})
}

func (r ticketRepo) ClaimOldestStale(_ context.Context, staffID, hotelID string, departments []domain.Department, cutoff time.Time) (*domain.ServiceTicket, error) {
	if len(departments) == 0 {
		return nil, nil
	}
	eligible := make(map[domain.Department]struct{}, len(departments))
	for _, d := range departments {
		eligible[d] = struct{}{}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var oldest *domain.ServiceTicket
	for id := range r.s.tickets {
		t := r.s.tickets[id]
		if t.HotelID != hotelID || t.AssignedTo != nil || t.Status != domain.TicketStatusOpen {
			continue
		}
		if _, ok := eligible[t.Department]; !ok {
			continue
		}
		if !t.CreatedAt.Before(cutoff) {
			continue
		}
		if oldest == nil || t.CreatedAt.Before(oldest.CreatedAt) {
			candidate := t
			oldest = &candidate
		}
	}
	if oldest == nil {
		return nil, nil
	}
	oldest.AssignedTo = &staffID
	oldest.Status = domain.TicketStatusInProgress
	oldest.UpdatedAt = r.s.now()
	r.s.tickets[oldest.ID] = cloneTicket(*oldest)
	out := cloneTicket(*oldest)
	return &out, nil
}

func (r ticketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.ServiceTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ServiceTicket
	for _, t := range r.s.tickets {
		if !matchesTicket(t, filter) {
			continue
		}
		out = append(out, cloneTicket(t))
	}
	pending := filter.PendingApproval != nil && *filter.PendingApproval
	sort.Slice(out, func(i, j int) bool {
		if pending && out[i].ClosedAt != nil && out[j].ClosedAt != nil {
			return out[i].ClosedAt.After(*out[j].ClosedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesTicket(t domain.ServiceTicket, f repository.TicketFilter) bool {
	if f.HotelID != nil && t.HotelID != *f.HotelID {
		return false
	}
	if f.RoomID != nil && (t.RoomID == nil || *t.RoomID != *f.RoomID) {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.Unassigned && t.AssignedTo != nil {
		return false
	}
	if len(f.Departments) > 0 && !containsDept(f.Departments, t.Department) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if f.PendingApproval != nil && t.PendingSupervisorApproval != *f.PendingApproval {
		return false
	}
	if f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && t.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	return true
}

func containsDept(list []domain.Department, d domain.Department) bool {
	for _, v := range list {
		if v == d {
			return true
		}
	}
	return false
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// mutate applies fn under the lock. fn returns false when the guard fails.
func (r ticketRepo) mutate(id string, fn func(*domain.ServiceTicket) bool) (*domain.ServiceTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	next := cloneTicket(current)
	if !fn(&next) {
		return nil, repository.ErrConditionFailed
	}
	next.UpdatedAt = r.s.now()
	r.s.tickets[id] = next
	out := cloneTicket(next)
	return &out, nil
}

func cloneTicket(t domain.ServiceTicket) domain.ServiceTicket {
	t.RoomID = clonePtr(t.RoomID)
	t.CreatedBy = clonePtr(t.CreatedBy)
	t.AssignedTo = clonePtr(t.AssignedTo)
	t.ClosedAt = clonePtr(t.ClosedAt)
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type historyRepo struct{ s *Store }

// History returns a repository.TicketHistoryRepository view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

func (r historyRepo) Append(_ context.Context, entry *domain.TicketHistory) error {
	if err := repository.ValidateHistoryEntry(entry); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = newID()
	entry.CreatedAt = r.s.now()
	r.s.history = append(r.s.history, *entry)
	return nil
}

func (r historyRepo) ListByTicket(_ context.Context, ticketID string, kinds ...domain.TicketChangeType) ([]domain.TicketHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.TicketHistory{}
	for _, entry := range r.s.history {
		if entry.TicketID != ticketID {
			continue
		}
		if len(kinds) > 0 && !slices.Contains(kinds, entry.ChangeType) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
