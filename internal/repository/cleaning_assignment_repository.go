package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// PendingFilter scopes the pending-approval queue.
type PendingFilter struct {
	OrganizationID string
	HotelID        *string
	Date           *time.Time
	Limit          int
}

// ReassignParams describes a supervisor reassignment.
type ReassignParams struct {
	AssignmentID string
	NewStaffID   string
	ApproverID   string
	Now          time.Time
}

// ReassignResult reports every row touched by a reassignment.
type ReassignResult struct {
	Original    domain.CleaningAssignment
	Superseded  []domain.CleaningAssignment
	Replacement domain.CleaningAssignment
}

// CleaningAssignmentRepository encapsulates cleaning assignment persistence.
type CleaningAssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.CleaningAssignment) error
	GetByID(ctx context.Context, id string) (*domain.CleaningAssignment, error)
	ListForRoomDay(ctx context.Context, roomID string, day time.Time) ([]domain.CleaningAssignment, error)
	// Start moves an assigned task owned by staffID to in_progress.
	Start(ctx context.Context, id, staffID string, now time.Time) (*domain.CleaningAssignment, error)
	// Complete marks an active task owned by staffID completed.
	Complete(ctx context.Context, id, staffID string, now time.Time) (*domain.CleaningAssignment, error)
	// Approve signs off a completed, unapproved assignment.
	Approve(ctx context.Context, id, approverID string, now time.Time) (*domain.CleaningAssignment, error)
	// Reassign supersedes the room-day's active assignments, clears the
	// original from the pending queue and inserts a replacement atomically.
	Reassign(ctx context.Context, params ReassignParams) (*ReassignResult, error)
	ListPending(ctx context.Context, filter PendingFilter) ([]domain.CleaningAssignment, error)
}

type cleaningAssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewCleaningAssignmentRepository builds the repository.
func NewCleaningAssignmentRepository(pool *pgxpool.Pool) CleaningAssignmentRepository {
	return &cleaningAssignmentRepository{pool: pool}
}

const assignmentColumns = `id, room_id, assigned_to, assignment_date, assignment_type, status, priority, notes,
    started_at, completed_at, supervisor_approved, supervisor_approved_by, supervisor_approved_at,
    created_at, updated_at`

func (r *cleaningAssignmentRepository) Create(ctx context.Context, a *domain.CleaningAssignment) error {
	const query = `
        INSERT INTO cleaning_assignments (room_id, assigned_to, assignment_date, assignment_type, status, priority, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		a.RoomID,
		a.AssignedTo,
		a.AssignmentDate,
		a.AssignmentType,
		a.Status,
		a.Priority,
		a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *cleaningAssignmentRepository) GetByID(ctx context.Context, id string) (*domain.CleaningAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM cleaning_assignments WHERE id=$1`
	return scanAssignment(r.pool.QueryRow(ctx, query, id))
}

func (r *cleaningAssignmentRepository) ListForRoomDay(ctx context.Context, roomID string, day time.Time) ([]domain.CleaningAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM cleaning_assignments
        WHERE room_id=$1 AND assignment_date=$2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, roomID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r *cleaningAssignmentRepository) Start(ctx context.Context, id, staffID string, now time.Time) (*domain.CleaningAssignment, error) {
	query := `UPDATE cleaning_assignments
        SET status='in_progress', started_at=$1, updated_at=NOW()
        WHERE id=$2 AND assigned_to=$3 AND status='assigned'
        RETURNING ` + assignmentColumns
	return r.conditional(ctx, id, query, now, id, staffID)
}

func (r *cleaningAssignmentRepository) Complete(ctx context.Context, id, staffID string, now time.Time) (*domain.CleaningAssignment, error) {
	query := `UPDATE cleaning_assignments
        SET status='completed', completed_at=$1, started_at=COALESCE(started_at, $1), updated_at=NOW()
        WHERE id=$2 AND assigned_to=$3 AND status IN ('assigned','in_progress')
        RETURNING ` + assignmentColumns
	return r.conditional(ctx, id, query, now, id, staffID)
}

func (r *cleaningAssignmentRepository) Approve(ctx context.Context, id, approverID string, now time.Time) (*domain.CleaningAssignment, error) {
	query := `UPDATE cleaning_assignments
        SET supervisor_approved=TRUE, supervisor_approved_by=$1, supervisor_approved_at=$2, updated_at=NOW()
        WHERE id=$3 AND status='completed' AND NOT supervisor_approved
        RETURNING ` + assignmentColumns
	return r.conditional(ctx, id, query, approverID, now, id)
}

func (r *cleaningAssignmentRepository) Reassign(ctx context.Context, params ReassignParams) (*ReassignResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	original, err := scanAssignment(tx.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM cleaning_assignments WHERE id=$1`, params.AssignmentID))
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `UPDATE cleaning_assignments
        SET status='completed', completed_at=COALESCE(completed_at, $1), supervisor_approved=TRUE,
            supervisor_approved_by=$2, supervisor_approved_at=$1, notes=$3, updated_at=NOW()
        WHERE room_id=$4 AND assignment_date=$5 AND id <> $6 AND status IN ('assigned','in_progress')
        RETURNING `+assignmentColumns,
		params.Now, params.ApproverID, domain.NoteSuperseded, original.RoomID, original.AssignmentDate, original.ID)
	if err != nil {
		return nil, err
	}
	superseded, err := scanAssignments(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	// The original leaves the queue without being judged; an original that
	// was still active is taken out of the active set as well.
	updated, err := scanAssignment(tx.QueryRow(ctx, `UPDATE cleaning_assignments
        SET supervisor_approved=TRUE, supervisor_approved_by=$1, supervisor_approved_at=$2,
            completed_at=COALESCE(completed_at, $2),
            notes=CASE WHEN status IN ('assigned','in_progress') THEN $3 ELSE notes END,
            status='completed', updated_at=NOW()
        WHERE id=$4
        RETURNING `+assignmentColumns,
		params.ApproverID, params.Now, domain.NoteSuperseded, original.ID))
	if err != nil {
		return nil, err
	}

	replacement := domain.CleaningAssignment{
		RoomID:         original.RoomID,
		AssignedTo:     params.NewStaffID,
		AssignmentDate: original.AssignmentDate,
		AssignmentType: original.AssignmentType,
		Status:         domain.AssignmentStatusAssigned,
		Priority:       original.Priority,
		Notes:          domain.NoteReassignedReview,
	}
	if err := tx.QueryRow(ctx, `
        INSERT INTO cleaning_assignments (room_id, assigned_to, assignment_date, assignment_type, status, priority, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`,
		replacement.RoomID,
		replacement.AssignedTo,
		replacement.AssignmentDate,
		replacement.AssignmentType,
		replacement.Status,
		replacement.Priority,
		replacement.Notes,
	).Scan(&replacement.ID, &replacement.CreatedAt, &replacement.UpdatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &ReassignResult{Original: *updated, Superseded: superseded, Replacement: replacement}, nil
}

func (r *cleaningAssignmentRepository) ListPending(ctx context.Context, filter PendingFilter) ([]domain.CleaningAssignment, error) {
	cols := make([]string, 0, 15)
	for _, c := range strings.Split(assignmentColumns, ",") {
		cols = append(cols, "ca."+strings.TrimSpace(c))
	}
	clauses := []string{"ca.status='completed'", "NOT ca.supervisor_approved"}
	args := []any{filter.OrganizationID}
	clauses = append(clauses, "h.organization_id=$1")

	if filter.HotelID != nil {
		args = append(args, *filter.HotelID)
		clauses = append(clauses, fmt.Sprintf("r.hotel_id=$%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		clauses = append(clauses, fmt.Sprintf("ca.assignment_date=$%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM cleaning_assignments ca
        JOIN rooms r ON r.id = ca.room_id
        JOIN hotels h ON h.id = r.hotel_id
        WHERE %s ORDER BY ca.completed_at DESC NULLS LAST LIMIT %d`,
		strings.Join(cols, ", "), strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssignments(rows)
}

func (r *cleaningAssignmentRepository) conditional(ctx context.Context, id, query string, args ...any) (*domain.CleaningAssignment, error) {
	assignment, err := scanAssignment(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return assignment, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cleaning_assignments WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, pgx.ErrNoRows
	}
	return nil, ErrConditionFailed
}

func scanAssignments(rows pgx.Rows) ([]domain.CleaningAssignment, error) {
	var result []domain.CleaningAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func scanAssignment(row pgx.Row) (*domain.CleaningAssignment, error) {
	var a domain.CleaningAssignment
	if err := row.Scan(
		&a.ID,
		&a.RoomID,
		&a.AssignedTo,
		&a.AssignmentDate,
		&a.AssignmentType,
		&a.Status,
		&a.Priority,
		&a.Notes,
		&a.StartedAt,
		&a.CompletedAt,
		&a.SupervisorApproved,
		&a.SupervisorApprovedBy,
		&a.SupervisorApprovedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}
