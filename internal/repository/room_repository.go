package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// RoomRepository provides read-only lookups of rooms and their hotels.
type RoomRepository interface {
	GetContext(ctx context.Context, roomID string) (*domain.RoomContext, error)
	ListByHotel(ctx context.Context, hotelID string) ([]domain.Room, error)
}

// HotelRepository provides read-only lookups of hotels.
type HotelRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Hotel, error)
	List(ctx context.Context) ([]domain.Hotel, error)
}

type roomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository builds the repository.
func NewRoomRepository(pool *pgxpool.Pool) RoomRepository {
	return &roomRepository{pool: pool}
}

func (r *roomRepository) GetContext(ctx context.Context, roomID string) (*domain.RoomContext, error) {
	const query = `
        SELECT r.id, r.hotel_id, r.number, r.pms_room_code, r.guest_nights_stayed, r.created_at, r.updated_at,
               h.id, h.organization_id, h.name, h.pms_enabled, h.pms_property_code, h.created_at, h.updated_at
        FROM rooms r JOIN hotels h ON h.id = r.hotel_id
        WHERE r.id=$1`
	var rc domain.RoomContext
	if err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&rc.Room.ID,
		&rc.Room.HotelID,
		&rc.Room.Number,
		&rc.Room.PMSRoomCode,
		&rc.Room.GuestNightsStayed,
		&rc.Room.CreatedAt,
		&rc.Room.UpdatedAt,
		&rc.Hotel.ID,
		&rc.Hotel.OrganizationID,
		&rc.Hotel.Name,
		&rc.Hotel.PMSEnabled,
		&rc.Hotel.PMSPropertyCode,
		&rc.Hotel.CreatedAt,
		&rc.Hotel.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *roomRepository) ListByHotel(ctx context.Context, hotelID string) ([]domain.Room, error) {
	const query = `
        SELECT id, hotel_id, number, pms_room_code, guest_nights_stayed, created_at, updated_at
        FROM rooms WHERE hotel_id=$1 ORDER BY number ASC`
	rows, err := r.pool.Query(ctx, query, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(
			&room.ID,
			&room.HotelID,
			&room.Number,
			&room.PMSRoomCode,
			&room.GuestNightsStayed,
			&room.CreatedAt,
			&room.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, room)
	}
	return result, rows.Err()
}

type hotelRepository struct {
	pool *pgxpool.Pool
}

// NewHotelRepository builds the repository.
func NewHotelRepository(pool *pgxpool.Pool) HotelRepository {
	return &hotelRepository{pool: pool}
}

const hotelColumns = `id, organization_id, name, pms_enabled, pms_property_code, created_at, updated_at`

func (r *hotelRepository) GetByID(ctx context.Context, id string) (*domain.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE id=$1`
	return scanHotel(r.pool.QueryRow(ctx, query, id))
}

func (r *hotelRepository) List(ctx context.Context) ([]domain.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Hotel
	for rows.Next() {
		hotel, err := scanHotel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *hotel)
	}
	return result, rows.Err()
}

func scanHotel(row pgx.Row) (*domain.Hotel, error) {
	var hotel domain.Hotel
	if err := row.Scan(
		&hotel.ID,
		&hotel.OrganizationID,
		&hotel.Name,
		&hotel.PMSEnabled,
		&hotel.PMSPropertyCode,
		&hotel.CreatedAt,
		&hotel.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &hotel, nil
}
