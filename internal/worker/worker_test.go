package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository/memory"
	"github.com/spec-kit/hotel-ops/internal/service"
	"github.com/spec-kit/hotel-ops/internal/session"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2024, 3, 10, 1, 30, 0, 0, loc), time.Date(2024, 3, 10, 3, 0, 0, 0, loc)},
		{"exactly on the hour rolls over", time.Date(2024, 3, 10, 3, 0, 0, 0, loc), time.Date(2024, 3, 11, 3, 0, 0, 0, loc)},
		{"already passed", time.Date(2024, 3, 10, 22, 0, 0, 0, loc), time.Date(2024, 3, 11, 3, 0, 0, 0, loc)},
		{"converts from utc", time.Date(2024, 3, 10, 0, 30, 0, 0, time.UTC), time.Date(2024, 3, 10, 3, 0, 0, 0, loc)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(NextRun(tc.now, 3, loc)), NextRun(tc.now, 3, loc))
		})
	}
}

func TestLocalLocker(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

type dispatchEnv struct {
	store    *memory.Store
	hotel    domain.Hotel
	sessions *session.MemoryRegistry
	locker   *LocalLocker
	worker   *DispatchWorker
	clock    *clock
}

func newDispatchEnv(t *testing.T) *dispatchEnv {
	t.Helper()
	c := &clock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := memory.New().WithClock(c.Now)
	hotel := store.AddHotel(domain.Hotel{OrganizationID: "org-1", Name: "Harbor"})
	dispatch := service.NewDispatchService(service.DispatchDependencies{
		TicketRepo:  store.Tickets(),
		StaffRepo:   store.Staff(),
		HistoryRepo: store.History(),
		Clock:       c.Now,
	})
	sessions := session.NewMemoryRegistry(0).WithClock(c.Now)
	locker := NewLocalLocker()
	return &dispatchEnv{
		store:    store,
		hotel:    hotel,
		sessions: sessions,
		locker:   locker,
		worker:   NewDispatchWorker(dispatch, sessions, locker, time.Minute, time.Minute, nil),
		clock:    c,
	}
}

func (e *dispatchEnv) staff(t *testing.T, role domain.StaffRole) domain.StaffMember {
	t.Helper()
	s := &domain.StaffMember{HotelID: e.hotel.ID, OrganizationID: "org-1", Role: role, Active: true}
	require.NoError(t, e.store.Staff().Create(context.Background(), s))
	require.NoError(t, e.sessions.Add(context.Background(), s.ID))
	return *s
}

func (e *dispatchEnv) staleTicket(t *testing.T, dept domain.Department) {
	t.Helper()
	require.NoError(t, e.store.Tickets().Create(context.Background(), &domain.ServiceTicket{
		HotelID:    e.hotel.ID,
		Department: dept,
		Priority:   domain.TicketPriorityLow,
		Status:     domain.TicketStatusOpen,
		Title:      "stale",
		CreatedAt:  e.clock.now.Add(-6 * time.Hour),
	}))
}

func TestDispatchWorkerTick(t *testing.T) {
	env := newDispatchEnv(t)
	env.staff(t, domain.StaffRoleMaintenanceTechnician)
	env.staff(t, domain.StaffRoleReceptionist)
	env.staleTicket(t, domain.DepartmentMaintenance)
	env.staleTicket(t, domain.DepartmentMaintenance)
	env.staleTicket(t, domain.DepartmentFrontOffice)

	claimed, err := env.worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)

	claimed, err = env.worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)

	claimed, err = env.worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, claimed)
}

func TestDispatchWorkerSkipsWhenLocked(t *testing.T) {
	env := newDispatchEnv(t)
	env.staff(t, domain.StaffRoleMaintenanceTechnician)
	env.staleTicket(t, domain.DepartmentMaintenance)

	release, ok, err := env.locker.TryLock(context.Background(), dispatchLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	claimed, err := env.worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, claimed)

	release()
	claimed, err = env.worker.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, claimed)
}

func TestDispatchWorkerDropsUnknownSessions(t *testing.T) {
	env := newDispatchEnv(t)
	require.NoError(t, env.sessions.Add(context.Background(), "deleted-staff"))

	_, err := env.worker.Tick(context.Background())
	require.NoError(t, err)

	active, err := env.sessions.Active(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, active, "deleted-staff")
}

type stuckRegistry struct {
	*session.MemoryRegistry
}

func (r stuckRegistry) Remove(context.Context, string) error {
	return errors.New("redis unavailable")
}

func TestDispatchWorkerLogsFailedSessionRemoval(t *testing.T) {
	env := newDispatchEnv(t)
	require.NoError(t, env.sessions.Add(context.Background(), "deleted-staff"))

	core, logs := observer.New(zap.WarnLevel)
	dispatch := service.NewDispatchService(service.DispatchDependencies{
		TicketRepo:  env.store.Tickets(),
		StaffRepo:   env.store.Staff(),
		HistoryRepo: env.store.History(),
		Clock:       env.clock.Now,
	})
	w := NewDispatchWorker(dispatch, stuckRegistry{env.sessions}, env.locker, time.Minute, time.Minute, zap.New(core))

	_, err := w.Tick(context.Background())
	require.NoError(t, err)

	entries := logs.FilterMessage("session removal failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "deleted-staff", entries[0].ContextMap()["staff_id"])
	assert.Equal(t, "redis unavailable", entries[0].ContextMap()["error"])
}

func TestClearingWorkerRunOnce(t *testing.T) {
	c := &clock{now: time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)}
	store := memory.New().WithClock(c.Now)
	harbor := store.AddHotel(domain.Hotel{OrganizationID: "org-1", Name: "Harbor"})
	summit := store.AddHotel(domain.Hotel{OrganizationID: "org-2", Name: "Summit"})
	rooms := service.NewRoomDirectory(store.Rooms(), time.Minute)
	consumption := service.NewConsumptionService(service.ConsumptionDependencies{
		RecordRepo: store.Consumption(),
		ItemRepo:   store.Items(),
		HotelRepo:  store.Hotels(),
		Rooms:      rooms,
		Clock:      c.Now,
	})

	ctx := context.Background()
	for _, h := range []domain.Hotel{harbor, summit} {
		room := store.AddRoom(domain.Room{HotelID: h.ID, Number: "101"})
		item := store.AddItem(domain.ConsumableItem{HotelID: h.ID, Name: "water", Price: decimal.NewFromInt(2), Active: true})
		_, err := consumption.Record(ctx, service.RecordInput{OrganizationID: h.OrganizationID, RoomID: room.ID, ItemID: item.ID, Quantity: 1, Source: domain.SourceGuest})
		require.NoError(t, err)
	}

	c.now = c.now.Add(24 * time.Hour)
	w := NewClearingWorker(consumption, store.Hotels(), NewLocalLocker(), 3, time.UTC, nil)

	cleared, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	cleared, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, cleared)
}
