package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/observability"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// ConsumptionService is the per-room consumable usage ledger.
type ConsumptionService struct {
	records repository.ConsumptionRepository
	items   repository.ItemRepository
	hotels  repository.HotelRepository
	rooms   *RoomDirectory
	events  eventPublisher
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
	loc     *time.Location
}

// ConsumptionDependencies bundles collaborators for the ledger.
type ConsumptionDependencies struct {
	RecordRepo repository.ConsumptionRepository
	ItemRepo   repository.ItemRepository
	HotelRepo  repository.HotelRepository
	Rooms      *RoomDirectory
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      func() time.Time
	Location   *time.Location
}

// RecordInput is one usage submission. The room must belong to
// OrganizationID.
type RecordInput struct {
	OrganizationID string
	RoomID         string
	ItemID         string
	Quantity       int
	Source         domain.ConsumptionSource
	RecordedBy     *string
}

// RecordResult is the committed outcome of a submission.
type RecordResult struct {
	Record  domain.ConsumptionRecord `json:"record"`
	Outcome repository.UpsertOutcome `json:"outcome"`
}

// ClearResult reports a clearing run.
type ClearResult struct {
	HotelID string    `json:"hotel_id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Cleared int64     `json:"cleared"`
}

// NewConsumptionService constructs the service.
func NewConsumptionService(deps ConsumptionDependencies) *ConsumptionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := clockOrDefault(deps.Clock)
	return &ConsumptionService{
		records: deps.RecordRepo,
		items:   deps.ItemRepo,
		hotels:  deps.HotelRepo,
		rooms:   deps.Rooms,
		events:  newEventPublisher(deps.Dispatcher, logger, now),
		metrics: deps.Metrics,
		logger:  logger,
		now:     now,
		loc:     locationOrDefault(deps.Location),
	}
}

// Record stores a submission for today's (room, item). A guest record is
// provisional and is replaced by any later submission; a staff or reception
// record is final and later submissions are rejected naming its source.
func (s *ConsumptionService) Record(ctx context.Context, input RecordInput) (*RecordResult, error) {
	if strings.TrimSpace(input.RoomID) == "" {
		return nil, apperrors.NewValidationError("room is required", map[string]any{"field": "room_id"})
	}
	if strings.TrimSpace(input.ItemID) == "" {
		return nil, apperrors.NewValidationError("item is required", map[string]any{"field": "item_id"})
	}
	if input.Quantity <= 0 {
		return nil, apperrors.NewValidationError("quantity must be positive", map[string]any{"quantity": input.Quantity})
	}
	if !input.Source.Valid() {
		return nil, apperrors.NewValidationError("source is invalid", map[string]any{"source": input.Source})
	}

	room, err := roomInOrganization(ctx, s.rooms, input.OrganizationID, input.RoomID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(ctx, input.ItemID)
	if err != nil {
		return nil, lookupError(err, "item", map[string]any{"item_id": input.ItemID})
	}
	if item.HotelID != room.Hotel.ID {
		return nil, apperrors.NewValidationError("item is not sold at this hotel", map[string]any{"item_id": item.ID})
	}
	if !item.Active {
		return nil, apperrors.NewValidationError("item is inactive", map[string]any{"item_id": item.ID})
	}

	now := s.now()
	rec := &domain.ConsumptionRecord{
		RoomID:     room.Room.ID,
		ItemID:     item.ID,
		ItemName:   item.Name,
		ItemPrice:  item.Price,
		Quantity:   input.Quantity,
		Source:     input.Source,
		UsageDate:  apperrors.CivilDay(now, s.loc),
		UsedAt:     now,
		RecordedBy: input.RecordedBy,
	}
	outcome, stored, err := s.records.Upsert(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, apperrors.NewConflict("concurrent submission, retry", map[string]any{"room_id": rec.RoomID, "item_id": rec.ItemID})
		}
		return nil, apperrors.MapError(err)
	}
	s.metrics.ConsumptionOutcome(string(outcome))
	if outcome == repository.UpsertRejected {
		return nil, apperrors.NewAlreadyRecorded(string(stored.Source), map[string]any{
			"record_id": stored.ID,
			"quantity":  stored.Quantity,
		})
	}
	stored.ItemName, stored.ItemPrice = item.Name, item.Price

	actor := systemActor()
	if input.RecordedBy != nil {
		actor = staffActor(*input.RecordedBy)
	}
	s.events.publish(ctx, events.Event{
		Type:      events.EventConsumptionRecorded,
		HotelID:   room.Hotel.ID,
		SubjectID: stored.ID,
		Actor:     actor,
		Payload: events.ConsumptionPayload{
			RoomID:    stored.RoomID,
			ItemID:    stored.ItemID,
			ItemName:  stored.ItemName,
			Quantity:  stored.Quantity,
			Source:    stored.Source,
			UsageDate: stored.UsageDate.Format(time.DateOnly),
			Outcome:   string(outcome),
		},
	})
	return &RecordResult{Record: *stored, Outcome: outcome}, nil
}

// ForStay returns the usage of one room for day, extended across the guest's
// stay when it spans several nights. day is read in the ledger's time zone.
func (s *ConsumptionService) ForStay(ctx context.Context, orgID, roomID string, day time.Time) (*domain.StayUsage, error) {
	room, err := s.rooms.Fresh(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Hotel.OrganizationID != orgID {
		return nil, apperrors.NewNotFound("room", map[string]any{"room_id": roomID})
	}
	usages, err := s.stayUsage(ctx, []domain.Room{room.Room}, day)
	if err != nil {
		return nil, err
	}
	return &usages[0], nil
}

// ForHotelStay runs ForStay across every room of a hotel. Each room's window
// follows its own stay length.
func (s *ConsumptionService) ForHotelStay(ctx context.Context, orgID, hotelID string, day time.Time) ([]domain.StayUsage, error) {
	if _, err := hotelInOrganization(ctx, s.hotels, orgID, hotelID); err != nil {
		return nil, err
	}
	rooms, err := s.rooms.ListByHotel(ctx, hotelID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(rooms) == 0 {
		return []domain.StayUsage{}, nil
	}
	return s.stayUsage(ctx, rooms, day)
}

// stayUsage loads the selected day (cleared included) and the widest
// lookback (non-cleared only) once, then cuts each room's own window.
func (s *ConsumptionService) stayUsage(ctx context.Context, rooms []domain.Room, day time.Time) ([]domain.StayUsage, error) {
	day = apperrors.CivilDay(day, s.loc)
	ids := make([]string, 0, len(rooms))
	widest := 1
	for _, r := range rooms {
		ids = append(ids, r.ID)
		if n := apperrors.StayLookbackDays(r.GuestNightsStayed); n > widest {
			widest = n
		}
	}

	dayRecords, err := s.records.List(ctx, repository.ConsumptionFilter{
		RoomIDs:        ids,
		FromDay:        day,
		ToDay:          day,
		IncludeCleared: true,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	var earlier []domain.ConsumptionRecord
	if widest > 1 {
		earlier, err = s.records.List(ctx, repository.ConsumptionFilter{
			RoomIDs: ids,
			FromDay: day.AddDate(0, 0, -(widest - 1)),
			ToDay:   day.AddDate(0, 0, -1),
		})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	byRoomDay := groupByRoom(dayRecords)
	byRoomEarlier := groupByRoom(earlier)

	out := make([]domain.StayUsage, 0, len(rooms))
	for _, r := range rooms {
		lookback := apperrors.StayLookbackDays(r.GuestNightsStayed)
		from := day.AddDate(0, 0, -(lookback - 1))

		seen := map[string]struct{}{}
		var recs []domain.ConsumptionRecord
		for _, rec := range byRoomDay[r.ID] {
			seen[rec.ID] = struct{}{}
			recs = append(recs, rec)
		}
		for _, rec := range byRoomEarlier[r.ID] {
			if rec.UsageDate.Before(from) {
				continue
			}
			if _, dup := seen[rec.ID]; dup {
				continue
			}
			seen[rec.ID] = struct{}{}
			recs = append(recs, rec)
		}
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].UsedAt.Before(recs[j].UsedAt) })
		if recs == nil {
			recs = []domain.ConsumptionRecord{}
		}
		out = append(out, domain.StayUsage{
			RoomID: r.ID,
			Window: domain.StayWindow{
				From:   from,
				To:     day.AddDate(0, 0, 1),
				Nights: r.GuestNightsStayed,
			},
			Records: recs,
			Total:   Total(recs),
		})
	}
	return out, nil
}

// ClearPreviousDay settles every open record of the hotel used during
// yesterday's calendar day. Running it again changes nothing.
func (s *ConsumptionService) ClearPreviousDay(ctx context.Context, orgID, hotelID string) (*ClearResult, error) {
	if _, err := hotelInOrganization(ctx, s.hotels, orgID, hotelID); err != nil {
		return nil, err
	}
	now := s.now()
	from, to := apperrors.PreviousDayBounds(now, s.loc)
	n, err := s.records.ClearHotelRange(ctx, hotelID, from, to, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordsCleared(n)
	s.logger.Info("consumption cleared",
		zap.String("hotel_id", hotelID),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int64("cleared", n))
	return &ClearResult{HotelID: hotelID, From: from, To: to, Cleared: n}, nil
}

// Total is Σ quantity × price, unrounded.
func Total(records []domain.ConsumptionRecord) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(rec.LineTotal())
	}
	return total
}

func groupByRoom(records []domain.ConsumptionRecord) map[string][]domain.ConsumptionRecord {
	out := make(map[string][]domain.ConsumptionRecord)
	for _, rec := range records {
		out[rec.RoomID] = append(out[rec.RoomID], rec)
	}
	return out
}
