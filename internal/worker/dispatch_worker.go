package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/service"
	"github.com/spec-kit/hotel-ops/internal/session"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

const dispatchLockKey = "hotel-ops:lock:dispatch"

// DispatchWorker runs one dispatch invocation per active session on every
// tick. The lock keeps replicas from dispatching concurrently.
type DispatchWorker struct {
	dispatch *service.DispatchService
	sessions session.Registry
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	logger   *zap.Logger
}

// NewDispatchWorker builds the worker.
func NewDispatchWorker(dispatch *service.DispatchService, sessions session.Registry, locker Locker, interval, lockTTL time.Duration, logger *zap.Logger) *DispatchWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchWorker{
		dispatch: dispatch,
		sessions: sessions,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   logger,
	}
}

// Run ticks until ctx is cancelled.
func (w *DispatchWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.logger.Info("dispatch worker started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("dispatch worker stopped")
			return
		case <-ticker.C:
			if _, err := w.Tick(ctx); err != nil {
				w.logger.Warn("dispatch tick failed", zap.Error(err))
			}
		}
	}
}

// Tick dispatches serially for every active session and returns the number
// of tickets claimed. It does nothing when another process holds the lock.
func (w *DispatchWorker) Tick(ctx context.Context) (int, error) {
	release, ok, err := w.locker.TryLock(ctx, dispatchLockKey, w.lockTTL)
	if err != nil {
		return 0, err
	}
	if !ok {
		w.logger.Debug("dispatch lock held elsewhere")
		return 0, nil
	}
	defer release()

	staffIDs, err := w.sessions.Active(ctx)
	if err != nil {
		return 0, err
	}
	claimed := 0
	for _, staffID := range staffIDs {
		if ctx.Err() != nil {
			return claimed, ctx.Err()
		}
		res, err := w.dispatch.DispatchForStaffID(ctx, staffID)
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			if err := w.sessions.Remove(ctx, staffID); err != nil {
				w.logger.Warn("session removal failed", zap.String("staff_id", staffID), zap.Error(err))
			}
			continue
		}
		if err != nil {
			w.logger.Warn("dispatch failed", zap.String("staff_id", staffID), zap.Error(err))
			continue
		}
		if res.Outcome == service.DispatchClaimed {
			claimed++
		}
	}
	return claimed, nil
}
