package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsumptionSource identifies who submitted a usage record.
type ConsumptionSource string

const (
	SourceGuest     ConsumptionSource = "guest"
	SourceStaff     ConsumptionSource = "staff"
	SourceReception ConsumptionSource = "reception"
)

// Valid reports whether s is a known source.
func (s ConsumptionSource) Valid() bool {
	switch s {
	case SourceGuest, SourceStaff, SourceReception:
		return true
	}
	return false
}

// Overridable reports whether a record from s may be replaced by a later
// submission. Only guest records are provisional.
func (s ConsumptionSource) Overridable() bool {
	return s == SourceGuest
}

// ConsumableItem is a minibar or amenity item billed per unit.
type ConsumableItem struct {
	ID      string
	HotelID string
	Name    string
	Price   decimal.Decimal
	Active  bool
}

// ConsumptionRecord is the usage of one item in one room on one day.
type ConsumptionRecord struct {
	ID         string
	RoomID     string
	ItemID     string
	ItemName   string
	ItemPrice  decimal.Decimal
	Quantity   int
	Source     ConsumptionSource
	UsageDate  time.Time
	UsedAt     time.Time
	IsCleared  bool
	ClearedAt  *time.Time
	RecordedBy *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LineTotal is quantity × price, unrounded.
func (r ConsumptionRecord) LineTotal() decimal.Decimal {
	return r.ItemPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// StayWindow is the derived lookback range [From, To) for a room's stay.
type StayWindow struct {
	From   time.Time
	To     time.Time
	Nights int
}

// StayUsage aggregates a room's consumption across its stay window.
type StayUsage struct {
	RoomID  string
	Window  StayWindow
	Records []ConsumptionRecord
	Total   decimal.Decimal
}
