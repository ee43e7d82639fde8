package service

import (
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/observability"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// SideEffectFailureHook logs and counts subscriber failures and dropped
// events. It is the only place a SideEffectFailure surfaces.
func SideEffectFailureHook(logger *zap.Logger, metrics *observability.Metrics) events.FailureHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(event events.Event, err error) {
		if errors.Is(err, events.ErrQueueFull) {
			metrics.EventDropped()
			return
		}
		kind := "handler"
		var failure *apperrors.SideEffectFailure
		if errors.As(err, &failure) {
			kind = failure.Kind
		}
		metrics.SideEffectFailed(kind)
		logger.Warn("side effect failed",
			zap.String("kind", kind),
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	}
}
