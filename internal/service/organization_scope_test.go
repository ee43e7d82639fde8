package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-ops/internal/domain"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

const foreignOrg = "org-2"

type foreignSite struct {
	hotel domain.Hotel
	room  domain.Room
	staff domain.StaffMember
}

func (f *fixture) addForeignSite(t *testing.T) foreignSite {
	t.Helper()
	hotel := f.store.AddHotel(domain.Hotel{OrganizationID: foreignOrg, Name: "Lagoon"})
	room := f.store.AddRoom(domain.Room{HotelID: hotel.ID, Number: "201", GuestNightsStayed: 1})
	staff := &domain.StaffMember{
		HotelID:        hotel.ID,
		OrganizationID: foreignOrg,
		Name:           "hk@lagoon.test",
		Email:          "hk@lagoon.test",
		Role:           domain.StaffRoleHousekeeper,
		Active:         true,
	}
	require.NoError(t, f.store.Staff().Create(f.ctx, staff))
	return foreignSite{hotel: hotel, room: room, staff: *staff}
}

func TestTicketServiceHidesOtherOrganizations(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService()
	site := f.addForeignSite(t)

	ticket := &domain.ServiceTicket{
		HotelID:    site.hotel.ID,
		Department: domain.DepartmentHousekeeping,
		Priority:   domain.TicketPriorityMedium,
		Status:     domain.TicketStatusOpen,
		Title:      "towels",
	}
	require.NoError(t, f.store.Tickets().Create(f.ctx, ticket))

	_, _, err := svc.Get(f.ctx, testOrg, ticket.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.History(f.ctx, testOrg, ticket.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Start(f.ctx, testOrg, ticket.ID, f.housekeeper.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Reassign(f.ctx, testOrg, ticket.ID, f.housekeeper.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Close(f.ctx, testOrg, ticket.ID, f.housekeeper.ID, TicketCloseInput{ResolutionText: "done"})
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Approve(f.ctx, testOrg, ticket.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.List(f.ctx, TicketListFilter{OrganizationID: testOrg, HotelID: site.hotel.ID})
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.PendingApproval(f.ctx, testOrg, site.hotel.ID, 10)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Create(f.ctx, f.supervisor.ID, TicketCreateInput{
		OrganizationID: testOrg,
		HotelID:        site.hotel.ID,
		Department:     domain.DepartmentMaintenance,
		Title:          "x",
	})
	requireCode(t, err, apperrors.CodeNotFound)

	stored, _, err := svc.Get(f.ctx, foreignOrg, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Nil(t, stored.AssignedTo)
}

func TestTicketServiceReassignRejectsStaffOfAnotherHotel(t *testing.T) {
	f := newFixture(t)
	svc := f.ticketService()
	ticket := f.addTicket(t, domain.DepartmentHousekeeping, domain.TicketPriorityMedium, time.Hour)

	_, err := svc.Reassign(f.ctx, testOrg, ticket.ID, f.outsider.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeValidation)

	stored, _, err := svc.Get(f.ctx, testOrg, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AssignedTo)
}

func TestCleaningServiceHidesOtherOrganizations(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()
	site := f.addForeignSite(t)

	done := f.clock.Now()
	a := &domain.CleaningAssignment{
		RoomID:         site.room.ID,
		AssignedTo:     site.staff.ID,
		AssignmentDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		AssignmentType: domain.AssignmentTypeDailyCleaning,
		Status:         domain.AssignmentStatusCompleted,
		Priority:       domain.TicketPriorityMedium,
		CompletedAt:    &done,
	}
	require.NoError(t, f.store.Assignments().Create(f.ctx, a))

	_, err := svc.Approve(f.ctx, testOrg, a.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.Reassign(f.ctx, testOrg, a.ID, f.housekeeper.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	stored, err := svc.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, stored.SupervisorApproved)
	assert.Equal(t, site.staff.ID, stored.AssignedTo)

	pending, err := svc.PendingApproval(f.ctx, PendingQuery{OrganizationID: foreignOrg})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)
}

func TestConsumptionServiceHidesOtherOrganizations(t *testing.T) {
	f := newFixture(t)
	svc := f.consumptionService()
	site := f.addForeignSite(t)
	item := f.store.AddItem(domain.ConsumableItem{HotelID: site.hotel.ID, Name: "water", Price: decimal.NewFromInt(2), Active: true})

	_, err := svc.Record(f.ctx, RecordInput{OrganizationID: testOrg, RoomID: site.room.ID, ItemID: item.ID, Quantity: 1, Source: domain.SourceStaff})
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = svc.Record(f.ctx, RecordInput{OrganizationID: foreignOrg, RoomID: site.room.ID, ItemID: item.ID, Quantity: 1, Source: domain.SourceGuest})
	require.NoError(t, err)

	_, err = svc.ForStay(f.ctx, testOrg, site.room.ID, f.clock.Now())
	requireCode(t, err, apperrors.CodeNotFound)
	_, err = svc.ForHotelStay(f.ctx, testOrg, site.hotel.ID, f.clock.Now())
	requireCode(t, err, apperrors.CodeNotFound)

	f.clock.Advance(24 * time.Hour)
	_, err = svc.ClearPreviousDay(f.ctx, testOrg, site.hotel.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	res, err := svc.ClearPreviousDay(f.ctx, foreignOrg, site.hotel.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Cleared)
}

func TestConsumptionForStayReadsDayInLedgerZone(t *testing.T) {
	f := newFixture(t)
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	// 20:00 UTC on the 10th is already the 11th in the ledger zone.
	f.clock.Advance(6 * time.Hour)
	svc := NewConsumptionService(ConsumptionDependencies{
		RecordRepo: f.store.Consumption(),
		ItemRepo:   f.store.Items(),
		HotelRepo:  f.store.Hotels(),
		Rooms:      f.rooms,
		Clock:      f.clock.Now,
		Location:   tokyo,
	})
	water := f.addItem("water", "2.50")

	res, err := svc.Record(f.ctx, RecordInput{OrganizationID: testOrg, RoomID: f.room.ID, ItemID: water.ID, Quantity: 2, Source: domain.SourceStaff})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), res.Record.UsageDate)

	usage, err := svc.ForStay(f.ctx, testOrg, f.room.ID, f.clock.Now())
	require.NoError(t, err)
	require.Len(t, usage.Records, 1)
	assert.Equal(t, "5.00", usage.Total.StringFixed(2))
	assert.Equal(t, "2024-03-11", usage.Window.From.Format(time.DateOnly))

	parsed, err := apperrors.ParseDay("2024-03-11", f.clock.Now(), tokyo)
	require.NoError(t, err)
	usage, err = svc.ForStay(f.ctx, testOrg, f.room.ID, parsed)
	require.NoError(t, err)
	assert.Len(t, usage.Records, 1)
}
