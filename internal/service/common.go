package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// eventPublisher stamps and publishes domain events. Publishing is a side
// effect: failures are logged and never returned.
type eventPublisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

func newEventPublisher(dispatcher events.Dispatcher, logger *zap.Logger, now func() time.Time) eventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return eventPublisher{dispatcher: dispatcher, logger: logger, now: now}
}

func (p eventPublisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	}
}

func staffActor(staffID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeStaff, StaffID: &staffID}
}

func systemActor() events.Actor {
	return events.Actor{Type: domain.ActorTypeSystem}
}

// lookupError maps a repository read failure, naming resource on a miss.
func lookupError(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}

// hotelInOrganization loads a hotel and hides hotels of other organizations
// behind NOT_FOUND.
func hotelInOrganization(ctx context.Context, hotels repository.HotelRepository, orgID, hotelID string) (*domain.Hotel, error) {
	if hotelID == "" {
		return nil, apperrors.NewValidationError("hotel is required", map[string]any{"field": "hotel_id"})
	}
	hotel, err := hotels.GetByID(ctx, hotelID)
	if err != nil {
		return nil, lookupError(err, "hotel", map[string]any{"hotel_id": hotelID})
	}
	if hotel.OrganizationID != orgID {
		return nil, apperrors.NewNotFound("hotel", map[string]any{"hotel_id": hotelID})
	}
	return hotel, nil
}

// roomInOrganization resolves a room through the directory with the same
// organization rule as hotelInOrganization.
func roomInOrganization(ctx context.Context, rooms *RoomDirectory, orgID, roomID string) (*domain.RoomContext, error) {
	room, err := rooms.Lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Hotel.OrganizationID != orgID {
		return nil, apperrors.NewNotFound("room", map[string]any{"room_id": roomID})
	}
	return room, nil
}

func clockOrDefault(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func locationOrDefault(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
