package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/config"
	"github.com/spec-kit/hotel-ops/internal/events"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// SideEffectPMS labels PMS push failures.
const SideEffectPMS = "pms_sync"

type pmsRoomStatus struct {
	PropertyCode string    `json:"property_code"`
	RoomCode     string    `json:"room_code"`
	Status       string    `json:"status"`
	AssignmentID string    `json:"assignment_id"`
	ApprovedAt   time.Time `json:"approved_at"`
}

// PMSSyncHandler marks a room clean in the hotel's property management
// system once its cleaning is approved. Hotels without pms_enabled are
// skipped.
type PMSSyncHandler struct {
	dispatcher events.Dispatcher
	rooms      *RoomDirectory
	baseURL    string
	apiKey     string
	client     *http.Client
	logger     *zap.Logger
}

// NewPMSSyncHandler builds the handler. An empty base URL disables pushes.
func NewPMSSyncHandler(cfg config.PMSConfig, dispatcher events.Dispatcher, rooms *RoomDirectory, logger *zap.Logger) *PMSSyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PMSSyncHandler{
		dispatcher: dispatcher,
		rooms:      rooms,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// RegisterHandlers subscribes to cleaning approvals.
func (p *PMSSyncHandler) RegisterHandlers() {
	if p.dispatcher == nil || p.baseURL == "" {
		return
	}
	p.dispatcher.Subscribe(events.EventCleaningApproved, p.handleCleaningApproved)
}

func (p *PMSSyncHandler) handleCleaningApproved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CleaningPayload)
	if !ok {
		return nil
	}
	room, err := p.rooms.Lookup(ctx, payload.RoomID)
	if err != nil {
		return &apperrors.SideEffectFailure{Kind: SideEffectPMS, Err: err}
	}
	if !room.Hotel.PMSEnabled {
		p.logger.Debug("pms sync skipped", zap.String("hotel_id", room.Hotel.ID))
		return nil
	}
	code := room.Room.PMSRoomCode
	if code == "" {
		code = room.Room.Number
	}
	body, err := json.Marshal(pmsRoomStatus{
		PropertyCode: room.Hotel.PMSPropertyCode,
		RoomCode:     code,
		Status:       "clean",
		AssignmentID: event.SubjectID,
		ApprovedAt:   event.Timestamp,
	})
	if err != nil {
		return &apperrors.SideEffectFailure{Kind: SideEffectPMS, Err: err}
	}
	endpoint := fmt.Sprintf("%s/rooms/%s/status", p.baseURL, url.PathEscape(code))
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["X-API-Key"] = p.apiKey
	}
	if err := postJSON(ctx, p.client, endpoint, body, headers); err != nil {
		return &apperrors.SideEffectFailure{Kind: SideEffectPMS, Err: err}
	}
	p.logger.Info("pms room marked clean",
		zap.String("hotel_id", room.Hotel.ID),
		zap.String("room_code", code),
		zap.String("assignment_id", event.SubjectID))
	return nil
}
