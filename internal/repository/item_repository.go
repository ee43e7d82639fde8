package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// ItemRepository provides read-only lookups of consumable items.
type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*domain.ConsumableItem, error)
}

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository builds the repository.
func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &itemRepository{pool: pool}
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.ConsumableItem, error) {
	const query = `SELECT id, hotel_id, name, price::text, active FROM consumable_items WHERE id=$1`
	var (
		item  domain.ConsumableItem
		price string
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(&item.ID, &item.HotelID, &item.Name, &price, &item.Active); err != nil {
		return nil, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	item.Price = parsed
	return &item, nil
}
