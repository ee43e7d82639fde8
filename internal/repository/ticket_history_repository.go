package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// TicketHistoryRepository keeps the append-only audit trail of service
// tickets. Entries come back in write order.
type TicketHistoryRepository interface {
	Append(ctx context.Context, entry *domain.TicketHistory) error
	// ListByTicket returns the trail of ticketID, limited to kinds when any
	// are given.
	ListByTicket(ctx context.Context, ticketID string, kinds ...domain.TicketChangeType) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds the repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

// ValidateHistoryEntry rejects entries the trail cannot hold. Store
// implementations share it.
func ValidateHistoryEntry(entry *domain.TicketHistory) error {
	if entry.TicketID == "" {
		return fmt.Errorf("history entry without ticket")
	}
	if !entry.ChangeType.Valid() {
		return fmt.Errorf("unknown history change type %q", entry.ChangeType)
	}
	if entry.ChangeType == domain.ChangeTypeApproval && entry.ChangedByID == nil {
		return fmt.Errorf("approval entry without approver")
	}
	if entry.ChangedByType == "" {
		entry.ChangedByType = domain.ActorTypeSystem
		if entry.ChangedByID != nil {
			entry.ChangedByType = domain.ActorTypeStaff
		}
	}
	return nil
}

func (r *ticketHistoryRepository) Append(ctx context.Context, entry *domain.TicketHistory) error {
	if err := ValidateHistoryEntry(entry); err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_history (ticket_id, changed_by_type, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.ChangedByType,
		entry.ChangedByID,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, kinds ...domain.TicketChangeType) ([]domain.TicketHistory, error) {
	// Rows written by one transaction share created_at; seq keeps write order.
	query := `
        SELECT id, ticket_id, changed_by_type, changed_by_id, change_type, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1`
	args := []any{ticketID}
	if len(kinds) > 0 {
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		query += ` AND change_type = ANY($2)`
		args = append(args, names)
	}
	query += ` ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var entry domain.TicketHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ChangedByType,
			&entry.ChangedByID,
			&entry.ChangeType,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
