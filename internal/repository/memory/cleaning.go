package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

const oneActiveConstraint = "cleaning_assignments_one_active"

type assignmentRepo struct{ s *Store }

// Assignments returns a repository.CleaningAssignmentRepository view.
func (s *Store) Assignments() repository.CleaningAssignmentRepository { return assignmentRepo{s} }

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// activeConflict reports whether another active assignment holds (room, day).
// Caller holds the lock.
func (r assignmentRepo) activeConflict(a domain.CleaningAssignment) bool {
	if !a.Status.IsActive() {
		return false
	}
	for id, other := range r.s.assignments {
		if id == a.ID {
			continue
		}
		if other.RoomID == a.RoomID && apperrors.SameCivilDay(other.AssignmentDate, a.AssignmentDate) && other.Status.IsActive() {
			return true
		}
	}
	return false
}

func (r assignmentRepo) Create(_ context.Context, a *domain.CleaningAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == "" {
		a.ID = newID()
	}
	if r.activeConflict(*a) {
		return uniqueViolation(oneActiveConstraint)
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.assignments[a.ID] = cloneAssignment(*a)
	return nil
}

func (r assignmentRepo) GetByID(_ context.Context, id string) (*domain.CleaningAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.assignments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneAssignment(a)
	return &out, nil
}

func (r assignmentRepo) ListForRoomDay(_ context.Context, roomID string, day time.Time) ([]domain.CleaningAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CleaningAssignment
	for _, a := range r.s.assignments {
		if a.RoomID == roomID && apperrors.SameCivilDay(a.AssignmentDate, day) {
			out = append(out, cloneAssignment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r assignmentRepo) Start(_ context.Context, id, staffID string, now time.Time) (*domain.CleaningAssignment, error) {
	return r.mutate(id, func(a *domain.CleaningAssignment) bool {
		if a.AssignedTo != staffID || a.Status != domain.AssignmentStatusAssigned {
			return false
		}
		a.Status = domain.AssignmentStatusInProgress
		a.StartedAt = &now
		return true
	})
}

func (r assignmentRepo) Complete(_ context.Context, id, staffID string, now time.Time) (*domain.CleaningAssignment, error) {
	return r.mutate(id, func(a *domain.CleaningAssignment) bool {
		if a.AssignedTo != staffID || !a.Status.IsActive() {
			return false
		}
		a.Status = domain.AssignmentStatusCompleted
		a.CompletedAt = &now
		if a.StartedAt == nil {
			a.StartedAt = &now
		}
		return true
	})
}

func (r assignmentRepo) Approve(_ context.Context, id, approverID string, now time.Time) (*domain.CleaningAssignment, error) {
	return r.mutate(id, func(a *domain.CleaningAssignment) bool {
		if a.Status != domain.AssignmentStatusCompleted || a.SupervisorApproved {
			return false
		}
		a.SupervisorApproved = true
		a.SupervisorApprovedBy = &approverID
		a.SupervisorApprovedAt = &now
		return true
	})
}

func (r assignmentRepo) Reassign(_ context.Context, params repository.ReassignParams) (*repository.ReassignResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	original, ok := r.s.assignments[params.AssignmentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	// Work on a copy so a failure leaves the store untouched.
	staged := make(map[string]domain.CleaningAssignment, len(r.s.assignments))
	for id, a := range r.s.assignments {
		staged[id] = a
	}
	stamp := r.s.now()
	approver := params.ApproverID
	approvedAt := params.Now

	var superseded []domain.CleaningAssignment
	for id, a := range staged {
		if id == original.ID || a.RoomID != original.RoomID || !apperrors.SameCivilDay(a.AssignmentDate, original.AssignmentDate) || !a.Status.IsActive() {
			continue
		}
		a.Status = domain.AssignmentStatusCompleted
		if a.CompletedAt == nil {
			a.CompletedAt = &approvedAt
		}
		a.SupervisorApproved = true
		a.SupervisorApprovedBy = &approver
		a.SupervisorApprovedAt = &approvedAt
		a.Notes = domain.NoteSuperseded
		a.UpdatedAt = stamp
		staged[id] = a
		superseded = append(superseded, cloneAssignment(a))
	}

	updated := original
	if updated.Status.IsActive() {
		updated.Notes = domain.NoteSuperseded
	}
	if updated.CompletedAt == nil {
		updated.CompletedAt = &approvedAt
	}
	updated.Status = domain.AssignmentStatusCompleted
	updated.SupervisorApproved = true
	updated.SupervisorApprovedBy = &approver
	updated.SupervisorApprovedAt = &approvedAt
	updated.UpdatedAt = stamp
	staged[updated.ID] = updated

	replacement := domain.CleaningAssignment{
		ID:             newID(),
		RoomID:         original.RoomID,
		AssignedTo:     params.NewStaffID,
		AssignmentDate: original.AssignmentDate,
		AssignmentType: original.AssignmentType,
		Status:         domain.AssignmentStatusAssigned,
		Priority:       original.Priority,
		Notes:          domain.NoteReassignedReview,
		CreatedAt:      stamp,
		UpdatedAt:      stamp,
	}
	for _, a := range staged {
		if a.RoomID == replacement.RoomID && apperrors.SameCivilDay(a.AssignmentDate, replacement.AssignmentDate) && a.Status.IsActive() {
			return nil, uniqueViolation(oneActiveConstraint)
		}
	}
	staged[replacement.ID] = replacement

	r.s.assignments = staged
	sort.Slice(superseded, func(i, j int) bool { return superseded[i].CreatedAt.Before(superseded[j].CreatedAt) })
	return &repository.ReassignResult{
		Original:    cloneAssignment(updated),
		Superseded:  superseded,
		Replacement: cloneAssignment(replacement),
	}, nil
}

func (r assignmentRepo) ListPending(_ context.Context, filter repository.PendingFilter) ([]domain.CleaningAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.CleaningAssignment
	for _, a := range r.s.assignments {
		if !a.AwaitingApproval() {
			continue
		}
		room, ok := r.s.rooms[a.RoomID]
		if !ok {
			continue
		}
		hotel, ok := r.s.hotels[room.HotelID]
		if !ok || hotel.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.HotelID != nil && room.HotelID != *filter.HotelID {
			continue
		}
		if filter.Date != nil && !apperrors.SameCivilDay(a.AssignmentDate, *filter.Date) {
			continue
		}
		out = append(out, cloneAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt == nil {
			return false
		}
		if out[j].CompletedAt == nil {
			return true
		}
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r assignmentRepo) mutate(id string, fn func(*domain.CleaningAssignment) bool) (*domain.CleaningAssignment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.assignments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	next := cloneAssignment(current)
	if !fn(&next) {
		return nil, repository.ErrConditionFailed
	}
	next.UpdatedAt = r.s.now()
	r.s.assignments[id] = next
	out := cloneAssignment(next)
	return &out, nil
}

func cloneAssignment(a domain.CleaningAssignment) domain.CleaningAssignment {
	a.StartedAt = clonePtr(a.StartedAt)
	a.CompletedAt = clonePtr(a.CompletedAt)
	a.SupervisorApprovedBy = clonePtr(a.SupervisorApprovedBy)
	a.SupervisorApprovedAt = clonePtr(a.SupervisorApprovedAt)
	return a
}
