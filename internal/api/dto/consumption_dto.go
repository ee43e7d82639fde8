package dto

import (
	"time"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

// RecordConsumptionRequest payload.
type RecordConsumptionRequest struct {
	RoomID   string                   `json:"room_id"`
	ItemID   string                   `json:"item_id"`
	Quantity int                      `json:"quantity"`
	Source   domain.ConsumptionSource `json:"source"`
}

// ConsumptionRecordResponse represents one usage line. Money is rendered to
// two decimals.
type ConsumptionRecordResponse struct {
	ID         string                   `json:"id"`
	RoomID     string                   `json:"room_id"`
	ItemID     string                   `json:"item_id"`
	ItemName   string                   `json:"item_name"`
	ItemPrice  string                   `json:"item_price"`
	Quantity   int                      `json:"quantity"`
	LineTotal  string                   `json:"line_total"`
	Source     domain.ConsumptionSource `json:"source"`
	UsageDate  string                   `json:"usage_date"`
	UsedAt     time.Time                `json:"used_at"`
	IsCleared  bool                     `json:"is_cleared"`
	ClearedAt  *time.Time               `json:"cleared_at"`
	RecordedBy *string                  `json:"recorded_by"`
}

// RecordConsumptionResponse reports a stored submission.
type RecordConsumptionResponse struct {
	Outcome string                    `json:"outcome"`
	Record  ConsumptionRecordResponse `json:"record"`
}

// StayWindowResponse is the [from, to) day range of a stay.
type StayWindowResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Nights int    `json:"nights"`
}

// StayUsageResponse aggregates a room's stay.
type StayUsageResponse struct {
	RoomID  string                      `json:"room_id"`
	Window  StayWindowResponse          `json:"window"`
	Records []ConsumptionRecordResponse `json:"records"`
	Total   string                      `json:"total"`
}

// ClearResponse reports a clearing run.
type ClearResponse struct {
	HotelID string    `json:"hotel_id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Cleared int64     `json:"cleared"`
}
