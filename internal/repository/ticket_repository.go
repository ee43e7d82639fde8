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

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	HotelID         *string
	RoomID          *string
	AssignedTo      *string
	Unassigned      bool
	Departments     []domain.Department
	Statuses        []domain.TicketStatus
	PendingApproval *bool
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// CloseParams carries the fields written when a ticket is closed.
type CloseParams struct {
	ResolutionText  string
	SLABreachReason string
	ClosedAt        time.Time
}

// TicketRepository encapsulates service ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.ServiceTicket) error
	GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ServiceTicket, error)
	// UpdateAssignee sets assigned_to unconditionally.
	UpdateAssignee(ctx context.Context, id, staffID string) (*domain.ServiceTicket, error)
	// Start moves an open ticket to in_progress, assigning staffID when unassigned.
	Start(ctx context.Context, id, staffID string) (*domain.ServiceTicket, error)
	// Close completes a ticket that is not already completed.
	Close(ctx context.Context, id string, params CloseParams) (*domain.ServiceTicket, error)
	// Approve signs off a completed ticket awaiting supervisor approval.
	Approve(ctx context.Context, id string) (*domain.ServiceTicket, error)
	// ClaimOldestStale assigns the oldest open, unassigned ticket in one of
	// departments created before cutoff to staffID. It returns nil when no
	// ticket qualifies or another writer claimed it first.
	ClaimOldestStale(ctx context.Context, staffID, hotelID string, departments []domain.Department, cutoff time.Time) (*domain.ServiceTicket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, hotel_id, room_id, department, priority, status, title, description,
    created_by, assigned_to, resolution_text, sla_breach_reason, supervisor_approved,
    pending_supervisor_approval, created_at, updated_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.ServiceTicket) error {
	const query = `
        INSERT INTO service_tickets (hotel_id, room_id, department, priority, status, title, description, created_by, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.HotelID,
		ticket.RoomID,
		ticket.Department,
		ticket.Priority,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.CreatedBy,
		ticket.AssignedTo,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.ServiceTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM service_tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateAssignee(ctx context.Context, id, staffID string) (*domain.ServiceTicket, error) {
	query := `UPDATE service_tickets SET assigned_to=$1, updated_at=NOW()
        WHERE id=$2 RETURNING ` + ticketColumns
	return scanTicket(r.pool.QueryRow(ctx, query, staffID, id))
}

func (r *ticketRepository) Start(ctx context.Context, id, staffID string) (*domain.ServiceTicket, error) {
	query := `UPDATE service_tickets
        SET status='in_progress', assigned_to=COALESCE(assigned_to, $1), updated_at=NOW()
        WHERE id=$2 AND status='open'
        RETURNING ` + ticketColumns
	return r.conditional(ctx, id, query, staffID, id)
}

func (r *ticketRepository) Close(ctx context.Context, id string, params CloseParams) (*domain.ServiceTicket, error) {
	query := `UPDATE service_tickets
        SET status='completed', closed_at=$1, resolution_text=$2,
            sla_breach_reason=CASE WHEN $3 = '' THEN sla_breach_reason ELSE $3 END,
            pending_supervisor_approval=TRUE, supervisor_approved=FALSE, updated_at=NOW()
        WHERE id=$4 AND status <> 'completed'
        RETURNING ` + ticketColumns
	return r.conditional(ctx, id, query, params.ClosedAt, params.ResolutionText, params.SLABreachReason, id)
}

func (r *ticketRepository) Approve(ctx context.Context, id string) (*domain.ServiceTicket, error) {
	query := `UPDATE service_tickets
        SET supervisor_approved=TRUE, pending_supervisor_approval=FALSE, updated_at=NOW()
        WHERE id=$1 AND status='completed' AND pending_supervisor_approval
        RETURNING ` + ticketColumns
	return r.conditional(ctx, id, query, id)
}

// claimOldestStaleQuery skips rows another claimant has locked, so
// concurrent sessions move on to the next-oldest ticket. The outer predicate
// re-checks assigned_to so a lost race matches zero rows instead of
// overwriting.
const claimOldestStaleQuery = `UPDATE service_tickets
        SET assigned_to=$1, status='in_progress', updated_at=NOW()
        WHERE id = (
            SELECT id FROM service_tickets
            WHERE hotel_id=$2 AND assigned_to IS NULL AND status='open'
              AND department = ANY($3) AND created_at < $4
            ORDER BY created_at ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        ) AND assigned_to IS NULL AND status='open'
        RETURNING ` + ticketColumns

func (r *ticketRepository) ClaimOldestStale(ctx context.Context, staffID, hotelID string, departments []domain.Department, cutoff time.Time) (*domain.ServiceTicket, error) {
	if len(departments) == 0 {
		return nil, nil
	}
	depts := make([]string, len(departments))
	for i, d := range departments {
		depts[i] = string(d)
	}
	ticket, err := scanTicket(r.pool.QueryRow(ctx, claimOldestStaleQuery, staffID, hotelID, depts, cutoff))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

// conditional runs a guarded update and distinguishes a missing row from a
// row in the wrong state.
func (r *ticketRepository) conditional(ctx context.Context, id, query string, args ...any) (*domain.ServiceTicket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err == nil {
		return ticket, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM service_tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, pgx.ErrNoRows
	}
	return nil, ErrConditionFailed
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.ServiceTicket, error) {
	base := `SELECT ` + ticketColumns + ` FROM service_tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.HotelID != nil {
		args = append(args, *filter.HotelID)
		clauses = append(clauses, fmt.Sprintf("hotel_id=$%d", len(args)))
	}
	if filter.RoomID != nil {
		args = append(args, *filter.RoomID)
		clauses = append(clauses, fmt.Sprintf("room_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	}
	if len(filter.Departments) > 0 {
		placeholders := make([]string, len(filter.Departments))
		for i, dept := range filter.Departments {
			args = append(args, dept)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("department IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.PendingApproval != nil {
		args = append(args, *filter.PendingApproval)
		clauses = append(clauses, fmt.Sprintf("pending_supervisor_approval=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	order := "created_at DESC"
	if filter.PendingApproval != nil && *filter.PendingApproval {
		order = "closed_at DESC"
	}
	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ServiceTicket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.ServiceTicket, error) {
	var ticket domain.ServiceTicket
	if err := row.Scan(
		&ticket.ID,
		&ticket.HotelID,
		&ticket.RoomID,
		&ticket.Department,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Title,
		&ticket.Description,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.ResolutionText,
		&ticket.SLABreachReason,
		&ticket.SupervisorApproved,
		&ticket.PendingSupervisorApproval,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
