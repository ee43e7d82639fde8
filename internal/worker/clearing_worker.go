package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/repository"
	"github.com/spec-kit/hotel-ops/internal/service"
)

const clearingLockKey = "hotel-ops:lock:clearing"

// ClearingWorker settles the previous day's consumption for every hotel once
// a day at a fixed local hour.
type ClearingWorker struct {
	consumption *service.ConsumptionService
	hotels      repository.HotelRepository
	locker      Locker
	hour        int
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

// NewClearingWorker builds the worker.
func NewClearingWorker(consumption *service.ConsumptionService, hotels repository.HotelRepository, locker Locker, hour int, loc *time.Location, logger *zap.Logger) *ClearingWorker {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClearingWorker{
		consumption: consumption,
		hotels:      hotels,
		locker:      locker,
		hour:        hour,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

// NextRun returns the first instant after now at hour:00 in loc.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run sleeps until each scheduled hour and clears, until ctx is cancelled.
func (w *ClearingWorker) Run(ctx context.Context) {
	for {
		next := NextRun(w.now(), w.hour, w.loc)
		w.logger.Info("clearing scheduled", zap.Time("at", next))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("clearing worker stopped")
			return
		case <-timer.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Warn("clearing run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce clears every hotel and returns the total number of records
// cleared. A hotel failure is logged and the run continues.
func (w *ClearingWorker) RunOnce(ctx context.Context) (int64, error) {
	release, ok, err := w.locker.TryLock(ctx, clearingLockKey, 10*time.Minute)
	if err != nil {
		return 0, err
	}
	if !ok {
		w.logger.Debug("clearing lock held elsewhere")
		return 0, nil
	}
	defer release()

	hotels, err := w.hotels.List(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, h := range hotels {
		res, err := w.consumption.ClearPreviousDay(ctx, h.OrganizationID, h.ID)
		if err != nil {
			w.logger.Warn("hotel clearing failed", zap.String("hotel_id", h.ID), zap.Error(err))
			continue
		}
		total += res.Cleared
	}
	return total, nil
}
