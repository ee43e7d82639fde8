package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

func recordOK(t *testing.T, f *fixture, svc *ConsumptionService, roomID, itemID string, qty int, source domain.ConsumptionSource) *RecordResult {
	t.Helper()
	res, err := svc.Record(f.ctx, RecordInput{OrganizationID: testOrg, RoomID: roomID, ItemID: itemID, Quantity: qty, Source: source})
	require.NoError(t, err)
	return res
}

func TestConsumptionRecordValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	water := f.addItem("water", "2.50")
	foreign := f.store.AddItem(domain.ConsumableItem{HotelID: f.otherHotel.ID, Name: "soda", Price: decimal.NewFromInt(3), Active: true})
	retired := f.store.AddItem(domain.ConsumableItem{HotelID: f.hotel.ID, Name: "chips", Price: decimal.NewFromInt(4)})

	tests := []struct {
		name  string
		input RecordInput
		code  string
	}{
		{"zero quantity", RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: water.ID, Quantity: 0, Source: domain.SourceGuest}, apperrors.CodeValidation},
		{"unknown source", RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: water.ID, Quantity: 1, Source: "robot"}, apperrors.CodeValidation},
		{"missing room", RecordInput{OrganizationID: testOrg, ItemID: water.ID, Quantity: 1, Source: domain.SourceGuest}, apperrors.CodeValidation},
		{"unknown room", RecordInput{OrganizationID: testOrg, RoomID: "nope", ItemID: water.ID, Quantity: 1, Source: domain.SourceGuest}, apperrors.CodeNotFound},
		{"item of another hotel", RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: foreign.ID, Quantity: 1, Source: domain.SourceGuest}, apperrors.CodeValidation},
		{"inactive item", RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: retired.ID, Quantity: 1, Source: domain.SourceGuest}, apperrors.CodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(f.ctx, tc.input)
			requireCode(t, err, tc.code)
		})
	}
}

func TestConsumptionRecordPrecedence(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	water := f.addItem("water", "2.50")

	first := recordOK(t, f, svc, f.room.ID, water.ID, 1, domain.SourceGuest)
	assert.Equal(t, repository.UpsertInserted, first.Outcome)
	assert.True(t, apperrors.SameCivilDay(f.clock.Now(), first.Record.UsageDate))

	again := recordOK(t, f, svc, f.room.ID, water.ID, 2, domain.SourceGuest)
	assert.Equal(t, repository.UpsertOverridden, again.Outcome)
	assert.Equal(t, first.Record.ID, again.Record.ID)

	staffID := f.housekeeper.ID
	confirmed, err := svc.Record(f.ctx, RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: water.ID, Quantity: 3, Source: domain.SourceStaff, RecordedBy: &staffID})
	require.NoError(t, err)
	assert.Equal(t, repository.UpsertOverridden, confirmed.Outcome)
	assert.Equal(t, first.Record.ID, confirmed.Record.ID)
	assert.Equal(t, 3, confirmed.Record.Quantity)
	assert.Equal(t, domain.SourceStaff, confirmed.Record.Source)

	for _, source := range []domain.ConsumptionSource{domain.SourceGuest, domain.SourceStaff, domain.SourceReception} {
		_, err := svc.Record(f.ctx, RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: water.ID, Quantity: 9, Source: source})
		domainErr := requireCode(t, err, apperrors.CodeAlreadyRecorded)
		assert.Equal(t, "staff", domainErr.Details["existing_source"])
		assert.Equal(t, first.Record.ID, domainErr.Details["record_id"])
	}

	usage, err := svc.ForStay(f.ctx, testOrg, f.room.ID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, usage.Records, 1)
	assert.Equal(t, 3, usage.Records[0].Quantity)
	assert.True(t, decimal.RequireFromString("7.5").Equal(usage.Total))
	assert.Contains(t, f.dispatcher.Types(), events.EventConsumptionRecorded)
}

func TestConsumptionReceptionIsFinal(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	water := f.addItem("water", "1")

	recordOK(t, f, svc, f.room.ID, water.ID, 1, domain.SourceReception)
	_, err := svc.Record(f.ctx, RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: water.ID, Quantity: 2, Source: domain.SourceStaff})
	domainErr := requireCode(t, err, apperrors.CodeAlreadyRecorded)
	assert.Equal(t, "reception", domainErr.Details["existing_source"])
}

func TestConsumptionForStayLookback(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	water := f.addItem("water", "2.50")
	snack := f.addItem("snack", "1.25")
	room := f.addRoom("202", 3)

	f.clock.Advance(-72 * time.Hour) // 7 March, outside a three-night window
	recordOK(t, f, svc, room.ID, water.ID, 5, domain.SourceGuest)
	f.clock.Advance(24 * time.Hour) // 8 March
	recordOK(t, f, svc, room.ID, water.ID, 1, domain.SourceGuest)
	f.clock.Advance(24 * time.Hour) // 9 March
	recordOK(t, f, svc, room.ID, snack.ID, 2, domain.SourceStaff)
	f.clock.Advance(24 * time.Hour) // 10 March
	recordOK(t, f, svc, room.ID, water.ID, 2, domain.SourceGuest)

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	usage, err := svc.ForStay(f.ctx, testOrg, room.ID, day)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), usage.Window.From)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), usage.Window.To)
	assert.Equal(t, 3, usage.Window.Nights)
	require.Len(t, usage.Records, 3)
	for i := 1; i < len(usage.Records); i++ {
		assert.False(t, usage.Records[i].UsedAt.Before(usage.Records[i-1].UsedAt))
	}
	// 1×2.50 + 2×1.25 + 2×2.50
	assert.True(t, decimal.RequireFromString("10").Equal(usage.Total), usage.Total.String())

	f.store.SetGuestNights(room.ID, 1)
	usage, err = svc.ForStay(f.ctx, testOrg, room.ID, day)
	require.NoError(t, err)
	require.Len(t, usage.Records, 1)
	assert.Equal(t, day, usage.Window.From)
}

func TestConsumptionForStayEmpty(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()

	usage, err := svc.ForStay(f.ctx, testOrg, f.room.ID, f.clock.Now())
	require.NoError(t, err)
	assert.NotNil(t, usage.Records)
	assert.Empty(t, usage.Records)
	assert.True(t, usage.Total.IsZero())

	_, err = svc.ForStay(f.ctx, testOrg, "missing", f.clock.Now())
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestConsumptionForHotelStayPerRoomWindow(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	water := f.addItem("water", "2")
	longStay := f.addRoom("303", 2)

	f.clock.Advance(-24 * time.Hour)
	recordOK(t, f, svc, f.room.ID, water.ID, 1, domain.SourceGuest)
	recordOK(t, f, svc, longStay.ID, water.ID, 1, domain.SourceGuest)
	f.clock.Advance(24 * time.Hour)

	usages, err := svc.ForHotelStay(f.ctx, testOrg, f.hotel.ID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, usages, 2)
	byRoom := map[string]int{}
	for _, u := range usages {
		byRoom[u.RoomID] = len(u.Records)
	}
	assert.Equal(t, 0, byRoom[f.room.ID])
	assert.Equal(t, 1, byRoom[longStay.ID])

	_, err = svc.ForHotelStay(f.ctx, testOrg, "missing", f.clock.Now())
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestConsumptionClearPreviousDay(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	water := f.addItem("water", "2")
	room := f.addRoom("404", 2)

	recordOK(t, f, svc, room.ID, water.ID, 1, domain.SourceStaff)
	f.clock.Advance(24 * time.Hour)

	res, err := svc.ClearPreviousDay(f.ctx, testOrg, f.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Cleared)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), res.From)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), res.To)

	res, err = svc.ClearPreviousDay(f.ctx, testOrg, f.hotel.ID)
	require.NoError(t, err)
	assert.Zero(t, res.Cleared)

	// Cleared records drop out of the lookback but stay on their own day.
	usage, err := svc.ForStay(f.ctx, testOrg, room.ID, f.clock.Now())
	require.NoError(t, err)
	assert.Empty(t, usage.Records)

	usage, err = svc.ForStay(f.ctx, testOrg, room.ID, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, usage.Records, 1)
	assert.True(t, usage.Records[0].IsCleared)

	_, err = svc.ClearPreviousDay(f.ctx, testOrg, "missing")
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestTotal(t *testing.T) {
	records := []domain.ConsumptionRecord{
		{ItemPrice: decimal.RequireFromString("0.10"), Quantity: 3},
		{ItemPrice: decimal.RequireFromString("19.99"), Quantity: 1},
	}
	assert.True(t, decimal.RequireFromString("20.29").Equal(Total(records)))
	assert.True(t, Total(nil).IsZero())
}
