package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

type consumptionRepo struct{ s *Store }

// Consumption returns a repository.ConsumptionRepository view.
func (s *Store) Consumption() repository.ConsumptionRepository { return consumptionRepo{s} }

func (r consumptionRepo) Upsert(_ context.Context, rec *domain.ConsumptionRecord) (repository.UpsertOutcome, *domain.ConsumptionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	item, ok := r.s.items[rec.ItemID]
	if !ok {
		return "", nil, pgx.ErrNoRows
	}
	rec.ItemName = item.Name
	rec.ItemPrice = item.Price
	now := r.s.now()

	for id, existing := range r.s.records {
		if existing.IsCleared || existing.RoomID != rec.RoomID || existing.ItemID != rec.ItemID ||
			!apperrors.SameCivilDay(existing.UsageDate, rec.UsageDate) {
			continue
		}
		if !existing.Source.Overridable() {
			out := cloneRecord(existing)
			out.ItemName, out.ItemPrice = item.Name, item.Price
			return repository.UpsertRejected, &out, nil
		}
		existing.Quantity = rec.Quantity
		existing.Source = rec.Source
		existing.UsedAt = rec.UsedAt
		existing.RecordedBy = clonePtr(rec.RecordedBy)
		existing.UpdatedAt = now
		r.s.records[id] = existing

		rec.ID = existing.ID
		rec.IsCleared = false
		rec.ClearedAt = nil
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		return repository.UpsertOverridden, rec, nil
	}

	rec.ID = newID()
	rec.IsCleared = false
	rec.ClearedAt = nil
	rec.CreatedAt, rec.UpdatedAt = now, now
	r.s.records[rec.ID] = cloneRecord(*rec)
	return repository.UpsertInserted, rec, nil
}

func (r consumptionRepo) List(_ context.Context, filter repository.ConsumptionFilter) ([]domain.ConsumptionRecord, error) {
	if len(filter.RoomIDs) == 0 {
		return nil, nil
	}
	rooms := make(map[string]struct{}, len(filter.RoomIDs))
	for _, id := range filter.RoomIDs {
		rooms[id] = struct{}{}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ConsumptionRecord
	for _, rec := range r.s.records {
		if _, ok := rooms[rec.RoomID]; !ok {
			continue
		}
		if rec.UsageDate.Before(filter.FromDay) || rec.UsageDate.After(filter.ToDay) {
			continue
		}
		if rec.IsCleared && !filter.IncludeCleared {
			continue
		}
		row := cloneRecord(rec)
		if item, ok := r.s.items[rec.ItemID]; ok {
			row.ItemName, row.ItemPrice = item.Name, item.Price
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UsedAt.Before(out[j].UsedAt) })
	return out, nil
}

func (r consumptionRepo) ClearHotelRange(_ context.Context, hotelID string, from, to, clearedAt time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.hotels[hotelID]; !ok {
		return 0, nil
	}
	var changed int64
	for id, rec := range r.s.records {
		if rec.IsCleared {
			continue
		}
		room, ok := r.s.rooms[rec.RoomID]
		if !ok || room.HotelID != hotelID {
			continue
		}
		if rec.UsedAt.Before(from) || !rec.UsedAt.Before(to) {
			continue
		}
		at := clearedAt
		rec.IsCleared = true
		rec.ClearedAt = &at
		rec.UpdatedAt = r.s.now()
		r.s.records[id] = rec
		changed++
	}
	return changed, nil
}

func cloneRecord(rec domain.ConsumptionRecord) domain.ConsumptionRecord {
	rec.ClearedAt = clonePtr(rec.ClearedAt)
	rec.RecordedBy = clonePtr(rec.RecordedBy)
	return rec
}
