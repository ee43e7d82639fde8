// Package memory provides an in-process implementation of the repository
// interfaces. It backs local runs without POSTGRES_DSN and the service tests.
// Every guarded write applies the same predicate as its SQL counterpart
// under a single lock.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
)

// Store holds all entities in maps keyed by id.
type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	hotels      map[string]domain.Hotel
	rooms       map[string]domain.Room
	items       map[string]domain.ConsumableItem
	staff       map[string]domain.StaffMember
	tickets     map[string]domain.ServiceTicket
	history     []domain.TicketHistory
	assignments map[string]domain.CleaningAssignment
	records     map[string]domain.ConsumptionRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:         time.Now,
		hotels:      map[string]domain.Hotel{},
		rooms:       map[string]domain.Room{},
		items:       map[string]domain.ConsumableItem{},
		staff:       map[string]domain.StaffMember{},
		tickets:     map[string]domain.ServiceTicket{},
		assignments: map[string]domain.CleaningAssignment{},
		records:     map[string]domain.ConsumptionRecord{},
	}
}

// WithClock overrides the timestamp source used for created/updated fields.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func newID() string {
	return uuid.NewString()
}

// AddHotel seeds a hotel, assigning an id when empty.
func (s *Store) AddHotel(h domain.Hotel) domain.Hotel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == "" {
		h.ID = newID()
	}
	s.hotels[h.ID] = h
	return h
}

// AddRoom seeds a room.
func (s *Store) AddRoom(r domain.Room) domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = newID()
	}
	s.rooms[r.ID] = r
	return r
}

// AddItem seeds a consumable item.
func (s *Store) AddItem(i domain.ConsumableItem) domain.ConsumableItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = newID()
	}
	s.items[i.ID] = i
	return i
}

// SetGuestNights updates a room's current stay length.
func (s *Store) SetGuestNights(roomID string, nights int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.rooms[roomID]
	room.GuestNightsStayed = nights
	s.rooms[roomID] = room
}

// Hotels

type hotelRepo struct{ s *Store }

// Hotels returns a repository.HotelRepository view.
func (s *Store) Hotels() repository.HotelRepository { return hotelRepo{s} }

func (r hotelRepo) GetByID(_ context.Context, id string) (*domain.Hotel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h, ok := r.s.hotels[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &h, nil
}

func (r hotelRepo) List(_ context.Context) ([]domain.Hotel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Hotel, 0, len(r.s.hotels))
	for _, h := range r.s.hotels {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Rooms

type roomRepo struct{ s *Store }

// Rooms returns a repository.RoomRepository view.
func (s *Store) Rooms() repository.RoomRepository { return roomRepo{s} }

func (r roomRepo) GetContext(_ context.Context, roomID string) (*domain.RoomContext, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[roomID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	hotel, ok := r.s.hotels[room.HotelID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.RoomContext{Room: room, Hotel: hotel}, nil
}

func (r roomRepo) ListByHotel(_ context.Context, hotelID string) ([]domain.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Room
	for _, room := range r.s.rooms {
		if room.HotelID == hotelID {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Items

type itemRepo struct{ s *Store }

// Items returns a repository.ItemRepository view.
func (s *Store) Items() repository.ItemRepository { return itemRepo{s} }

func (r itemRepo) GetByID(_ context.Context, id string) (*domain.ConsumableItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &item, nil
}
