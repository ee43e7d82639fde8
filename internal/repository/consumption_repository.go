package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// UpsertOutcome reports what a consumption upsert did.
type UpsertOutcome string

const (
	UpsertInserted   UpsertOutcome = "inserted"
	UpsertOverridden UpsertOutcome = "overridden"
	UpsertRejected   UpsertOutcome = "rejected"
)

// ConsumptionFilter selects records by room and usage day range.
type ConsumptionFilter struct {
	RoomIDs        []string
	FromDay        time.Time
	ToDay          time.Time
	IncludeCleared bool
}

// ConsumptionRepository encapsulates consumption record persistence.
type ConsumptionRepository interface {
	// Upsert writes rec for (room, item, usage day). An existing non-cleared
	// record is replaced only while its source is overridable; otherwise the
	// existing record is returned with UpsertRejected.
	Upsert(ctx context.Context, rec *domain.ConsumptionRecord) (UpsertOutcome, *domain.ConsumptionRecord, error)
	// List returns records with usage_date in [FromDay, ToDay] inclusive.
	List(ctx context.Context, filter ConsumptionFilter) ([]domain.ConsumptionRecord, error)
	// ClearHotelRange marks non-cleared records of the hotel's rooms used in
	// [from, to) as cleared and returns the number of rows changed.
	ClearHotelRange(ctx context.Context, hotelID string, from, to, clearedAt time.Time) (int64, error)
}

type consumptionRepository struct {
	pool *pgxpool.Pool
}

// NewConsumptionRepository builds the repository.
func NewConsumptionRepository(pool *pgxpool.Pool) ConsumptionRepository {
	return &consumptionRepository{pool: pool}
}

const recordColumns = `c.id, c.room_id, c.item_id, i.name, i.price::text, c.quantity, c.source, c.usage_date,
    c.used_at, c.is_cleared, c.cleared_at, c.recorded_by, c.created_at, c.updated_at`

func (r *consumptionRepository) Upsert(ctx context.Context, rec *domain.ConsumptionRecord) (UpsertOutcome, *domain.ConsumptionRecord, error) {
	const query = `
        INSERT INTO consumption_records (room_id, item_id, quantity, source, usage_date, used_at, recorded_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (room_id, item_id, usage_date) WHERE NOT is_cleared
        DO UPDATE SET quantity=EXCLUDED.quantity, source=EXCLUDED.source, used_at=EXCLUDED.used_at,
            recorded_by=EXCLUDED.recorded_by, updated_at=NOW()
        WHERE consumption_records.source = 'guest'
        RETURNING id, is_cleared, cleared_at, created_at, updated_at, (xmax = 0) AS inserted`

	var inserted bool
	err := r.pool.QueryRow(ctx, query,
		rec.RoomID,
		rec.ItemID,
		rec.Quantity,
		rec.Source,
		rec.UsageDate,
		rec.UsedAt,
		rec.RecordedBy,
	).Scan(&rec.ID, &rec.IsCleared, &rec.ClearedAt, &rec.CreatedAt, &rec.UpdatedAt, &inserted)
	if err == nil {
		if inserted {
			return UpsertInserted, rec, nil
		}
		return UpsertOverridden, rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", nil, err
	}

	existing, err := scanRecord(r.pool.QueryRow(ctx, `SELECT `+recordColumns+`
        FROM consumption_records c JOIN consumable_items i ON i.id = c.item_id
        WHERE c.room_id=$1 AND c.item_id=$2 AND c.usage_date=$3 AND NOT c.is_cleared`,
		rec.RoomID, rec.ItemID, rec.UsageDate))
	if errors.Is(err, pgx.ErrNoRows) {
		// The blocking record was cleared between the two statements.
		return "", nil, ErrConditionFailed
	}
	if err != nil {
		return "", nil, err
	}
	return UpsertRejected, existing, nil
}

func (r *consumptionRepository) List(ctx context.Context, filter ConsumptionFilter) ([]domain.ConsumptionRecord, error) {
	if len(filter.RoomIDs) == 0 {
		return nil, nil
	}
	args := []any{filter.RoomIDs, filter.FromDay, filter.ToDay}
	clauses := []string{"c.room_id = ANY($1)", "c.usage_date >= $2", "c.usage_date <= $3"}
	if !filter.IncludeCleared {
		clauses = append(clauses, "NOT c.is_cleared")
	}
	query := fmt.Sprintf(`SELECT %s
        FROM consumption_records c JOIN consumable_items i ON i.id = c.item_id
        WHERE %s ORDER BY c.used_at ASC`, recordColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ConsumptionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (r *consumptionRepository) ClearHotelRange(ctx context.Context, hotelID string, from, to, clearedAt time.Time) (int64, error) {
	const query = `
        UPDATE consumption_records SET is_cleared=TRUE, cleared_at=$1, updated_at=NOW()
        WHERE NOT is_cleared
          AND room_id IN (SELECT id FROM rooms WHERE hotel_id=$2)
          AND used_at >= $3 AND used_at < $4`
	cmd, err := r.pool.Exec(ctx, query, clearedAt, hotelID, from, to)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (*domain.ConsumptionRecord, error) {
	var (
		rec   domain.ConsumptionRecord
		price string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.RoomID,
		&rec.ItemID,
		&rec.ItemName,
		&price,
		&rec.Quantity,
		&rec.Source,
		&rec.UsageDate,
		&rec.UsedAt,
		&rec.IsCleared,
		&rec.ClearedAt,
		&rec.RecordedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	rec.ItemPrice = parsed
	return &rec, nil
}
