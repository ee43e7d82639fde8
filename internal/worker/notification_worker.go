package worker

import (
	"github.com/spec-kit/hotel-ops/internal/service"
)

// StartSideEffectSubscribers registers the notification and PMS handlers on
// the event dispatcher. Either may be nil.
func StartSideEffectSubscribers(notificationService *service.NotificationService, pms *service.PMSSyncHandler) {
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	if pms != nil {
		pms.RegisterHandlers()
	}
}
