package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/events"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// SideEffectNotification labels notification failures.
const SideEffectNotification = "notification"

// NotificationService turns assignment events into staff notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketAutoAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketReassigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventCleaningReassigned, n.handleCleaningReassigned)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok || payload.AssigneeStaffID == "" {
		return nil
	}
	details := map[string]any{}
	if payload.PreviousStaffID != nil {
		details["previous_staff_id"] = *payload.PreviousStaffID
	}
	return n.send(ctx, event, payload.AssigneeStaffID, payload.Title, details)
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClosedPayload)
	if !ok || payload.AssigneeStaffID == nil {
		return nil
	}
	details := map[string]any{
		"department": payload.Department,
		"priority":   payload.Priority,
		"breached":   payload.Breached,
	}
	if payload.SLABreachReason != "" {
		details["sla_breach_reason"] = payload.SLABreachReason
	}
	return n.send(ctx, event, *payload.AssigneeStaffID, "", details)
}

func (n *NotificationService) handleCleaningReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CleaningPayload)
	if !ok || payload.AssigneeStaffID == "" {
		return nil
	}
	return n.send(ctx, event, payload.AssigneeStaffID, "", map[string]any{
		"room_id":         payload.RoomID,
		"assignment_date": payload.AssignmentDate,
		"superseded_ids":  payload.SupersededIDs,
	})
}

func (n *NotificationService) send(ctx context.Context, event events.Event, target, title string, details map[string]any) error {
	err := n.notifier.Notify(ctx, Notification{
		Kind:          string(event.Type),
		TargetStaffID: target,
		HotelID:       event.HotelID,
		SubjectID:     event.SubjectID,
		Title:         title,
		Details:       details,
		SentAt:        n.now(),
	})
	if err != nil {
		return &apperrors.SideEffectFailure{Kind: SideEffectNotification, Err: err}
	}
	return nil
}
