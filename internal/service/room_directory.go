package service

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
)

const defaultRoomCacheTTL = time.Minute

// RoomDirectory resolves a room to its hotel and PMS configuration. Lookups
// are cached briefly; stay length reads go through Fresh.
type RoomDirectory struct {
	rooms repository.RoomRepository
	cache *ttlcache.Cache[string, domain.RoomContext]
}

// NewRoomDirectory builds a directory over rooms. ttl <= 0 uses one minute.
func NewRoomDirectory(rooms repository.RoomRepository, ttl time.Duration) *RoomDirectory {
	if ttl <= 0 {
		ttl = defaultRoomCacheTTL
	}
	return &RoomDirectory{
		rooms: rooms,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, domain.RoomContext](ttl),
			ttlcache.WithDisableTouchOnHit[string, domain.RoomContext](),
		),
	}
}

// Start runs expired-item cleanup until Stop.
func (d *RoomDirectory) Start() { d.cache.Start() }

// Stop ends the cleanup loop.
func (d *RoomDirectory) Stop() { d.cache.Stop() }

// Lookup returns the room context, served from cache when possible.
func (d *RoomDirectory) Lookup(ctx context.Context, roomID string) (*domain.RoomContext, error) {
	if item := d.cache.Get(roomID); item != nil {
		rc := item.Value()
		return &rc, nil
	}
	return d.Fresh(ctx, roomID)
}

// Fresh reads the room context from the store and refreshes the cache.
func (d *RoomDirectory) Fresh(ctx context.Context, roomID string) (*domain.RoomContext, error) {
	rc, err := d.rooms.GetContext(ctx, roomID)
	if err != nil {
		return nil, lookupError(err, "room", map[string]any{"room_id": roomID})
	}
	d.cache.Set(roomID, *rc, ttlcache.DefaultTTL)
	return rc, nil
}

// ListByHotel returns the hotel's rooms straight from the store.
func (d *RoomDirectory) ListByHotel(ctx context.Context, hotelID string) ([]domain.Room, error) {
	return d.rooms.ListByHotel(ctx, hotelID)
}
