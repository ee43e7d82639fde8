package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	"github.com/spec-kit/hotel-ops/internal/repository/memory"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

const testOrg = "org-1"

func requireCode(t *testing.T, err error, code string) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %v", err)
	require.Equal(t, code, domainErr.Code, domainErr.Message)
	return domainErr
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher(onFailure events.FailureHook) *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher(onFailure)}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) Types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx        context.Context
	clock      *testClock
	store      *memory.Store
	rooms      *RoomDirectory
	dispatcher *recordingDispatcher
	failures   []error

	hotel      domain.Hotel
	otherHotel domain.Hotel
	room       domain.Room

	housekeeper  domain.StaffMember
	housekeeper2 domain.StaffMember
	supervisor   domain.StaffMember
	technician   domain.StaffMember
	outsider     domain.StaffMember
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)}
	f := &fixture{
		ctx:   context.Background(),
		clock: clock,
		store: memory.New().WithClock(clock.Now),
	}
	f.dispatcher = newRecordingDispatcher(func(_ events.Event, err error) {
		f.failures = append(f.failures, err)
	})
	f.hotel = f.store.AddHotel(domain.Hotel{OrganizationID: testOrg, Name: "Harbor", PMSEnabled: true, PMSPropertyCode: "HRB"})
	f.otherHotel = f.store.AddHotel(domain.Hotel{OrganizationID: testOrg, Name: "Summit"})
	f.room = f.store.AddRoom(domain.Room{HotelID: f.hotel.ID, Number: "101", PMSRoomCode: "R101", GuestNightsStayed: 1})
	f.rooms = NewRoomDirectory(f.store.Rooms(), time.Minute)

	f.housekeeper = f.addStaff(t, "hk1@harbor.test", domain.StaffRoleHousekeeper, f.hotel.ID)
	f.housekeeper2 = f.addStaff(t, "hk2@harbor.test", domain.StaffRoleHousekeeper, f.hotel.ID)
	f.supervisor = f.addStaff(t, "sup@harbor.test", domain.StaffRoleHousekeepingSupervisor, f.hotel.ID)
	f.technician = f.addStaff(t, "tech@harbor.test", domain.StaffRoleMaintenanceTechnician, f.hotel.ID)
	f.outsider = f.addStaff(t, "hk@summit.test", domain.StaffRoleHousekeeper, f.otherHotel.ID)
	return f
}

func (f *fixture) addStaff(t *testing.T, email string, role domain.StaffRole, hotelID string) domain.StaffMember {
	t.Helper()
	staff := &domain.StaffMember{
		HotelID:        hotelID,
		OrganizationID: testOrg,
		Name:           email,
		Email:          email,
		Role:           role,
		Active:         true,
	}
	require.NoError(t, f.store.Staff().Create(f.ctx, staff))
	return *staff
}

func (f *fixture) addRoom(number string, nights int) domain.Room {
	return f.store.AddRoom(domain.Room{HotelID: f.hotel.ID, Number: number, GuestNightsStayed: nights})
}

func (f *fixture) addItem(name, price string) domain.ConsumableItem {
	return f.store.AddItem(domain.ConsumableItem{
		HotelID: f.hotel.ID,
		Name:    name,
		Price:   decimal.RequireFromString(price),
		Active:  true,
	})
}

func (f *fixture) addTicket(t *testing.T, dept domain.Department, priority domain.TicketPriority, age time.Duration) domain.ServiceTicket {
	t.Helper()
	roomID := f.room.ID
	ticket := &domain.ServiceTicket{
		HotelID:    f.hotel.ID,
		RoomID:     &roomID,
		Department: dept,
		Priority:   priority,
		Status:     domain.TicketStatusOpen,
		Title:      "leaking tap",
		CreatedAt:  f.clock.Now().Add(-age),
	}
	require.NoError(t, f.store.Tickets().Create(f.ctx, ticket))
	return *ticket
}

func (f *fixture) addAssignment(t *testing.T, staffID string, status domain.AssignmentStatus) domain.CleaningAssignment {
	t.Helper()
	a := &domain.CleaningAssignment{
		RoomID:         f.room.ID,
		AssignedTo:     staffID,
		AssignmentDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		AssignmentType: domain.AssignmentTypeDailyCleaning,
		Status:         status,
		Priority:       domain.TicketPriorityMedium,
	}
	if status == domain.AssignmentStatusCompleted {
		done := f.clock.Now()
		a.CompletedAt = &done
	}
	require.NoError(t, f.store.Assignments().Create(f.ctx, a))
	return *a
}

func (f *fixture) ticketService() *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:  f.store.Tickets(),
		StaffRepo:   f.store.Staff(),
		HistoryRepo: f.store.History(),
		HotelRepo:   f.store.Hotels(),
		Rooms:       f.rooms,
		Dispatcher:  f.dispatcher,
		Clock:       f.clock.Now,
	})
}

func (f *fixture) cleaningService() *CleaningService {
	return NewCleaningService(CleaningDependencies{
		AssignmentRepo: f.store.Assignments(),
		StaffRepo:      f.store.Staff(),
		Rooms:          f.rooms,
		Dispatcher:     f.dispatcher,
		Clock:          f.clock.Now,
	})
}

func (f *fixture) consumptionService() *ConsumptionService {
	return NewConsumptionService(ConsumptionDependencies{
		RecordRepo: f.store.Consumption(),
		ItemRepo:   f.store.Items(),
		HotelRepo:  f.store.Hotels(),
		Rooms:      f.rooms,
		Dispatcher: f.dispatcher,
		Clock:      f.clock.Now,
		Location:   time.UTC,
	})
}

func (f *fixture) dispatchService() *DispatchService {
	return NewDispatchService(DispatchDependencies{
		TicketRepo:  f.store.Tickets(),
		StaffRepo:   f.store.Staff(),
		HistoryRepo: f.store.History(),
		Dispatcher:  f.dispatcher,
		Clock:       f.clock.Now,
	})
}
