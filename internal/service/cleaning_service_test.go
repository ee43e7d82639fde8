package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/events"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

func TestCleaningServiceLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()
	a := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusAssigned)

	started, err := svc.Start(f.ctx, a.ID, f.housekeeper.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	f.clock.Advance(30 * time.Minute)
	completed, err := svc.Complete(f.ctx, a.ID, f.housekeeper.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusCompleted, completed.Status)
	assert.True(t, completed.AwaitingApproval())
	assert.Contains(t, f.dispatcher.Types(), events.EventCleaningCompleted)

	_, err = svc.Complete(f.ctx, a.ID, f.housekeeper.ID)
	requireCode(t, err, apperrors.CodeConflict)
}

func TestCleaningServiceOwnerOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()
	a := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusAssigned)

	_, err := svc.Start(f.ctx, a.ID, f.housekeeper2.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = svc.Complete(f.ctx, a.ID, f.housekeeper2.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = svc.Start(f.ctx, "missing", f.housekeeper.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	stored, err := svc.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentStatusAssigned, stored.Status)
}

func TestCleaningServiceApprove(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()

	active := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusInProgress)
	_, err := svc.Approve(f.ctx, testOrg, active.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeConflict)
	stored, err := svc.Get(f.ctx, active.ID)
	require.NoError(t, err)
	assert.False(t, stored.SupervisorApproved)
	assert.Equal(t, domain.AssignmentStatusInProgress, stored.Status)

	_, err = svc.Complete(f.ctx, active.ID, f.housekeeper.ID)
	require.NoError(t, err)

	approved, err := svc.Approve(f.ctx, testOrg, active.ID, f.supervisor.ID)
	require.NoError(t, err)
	assert.True(t, approved.SupervisorApproved)
	require.NotNil(t, approved.SupervisorApprovedBy)
	assert.Equal(t, f.supervisor.ID, *approved.SupervisorApprovedBy)
	assert.Contains(t, f.dispatcher.Types(), events.EventCleaningApproved)

	_, err = svc.Approve(f.ctx, testOrg, active.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeAlreadyApproved)
}

func TestCleaningServiceReassignSupersedesActive(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()
	third := f.addStaff(t, "hk3@harbor.test", domain.StaffRoleHousekeeper, f.hotel.ID)

	original := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusCompleted)
	other := f.addAssignment(t, f.housekeeper2.ID, domain.AssignmentStatusAssigned)

	res, err := svc.Reassign(f.ctx, testOrg, original.ID, third.ID, f.supervisor.ID)
	require.NoError(t, err)

	assert.True(t, res.Original.SupervisorApproved)
	assert.Equal(t, domain.AssignmentStatusCompleted, res.Original.Status)

	require.Len(t, res.Superseded, 1)
	assert.Equal(t, other.ID, res.Superseded[0].ID)
	assert.Equal(t, domain.AssignmentStatusCompleted, res.Superseded[0].Status)
	assert.True(t, res.Superseded[0].SupervisorApproved)
	assert.Equal(t, domain.NoteSuperseded, res.Superseded[0].Notes)

	assert.Equal(t, third.ID, res.Replacement.AssignedTo)
	assert.Equal(t, domain.AssignmentStatusAssigned, res.Replacement.Status)
	assert.Equal(t, domain.NoteReassignedReview, res.Replacement.Notes)
	assert.True(t, apperrors.SameCivilDay(original.AssignmentDate, res.Replacement.AssignmentDate))

	day, err := f.store.Assignments().ListForRoomDay(f.ctx, f.room.ID, original.AssignmentDate)
	require.NoError(t, err)
	activeCount := 0
	for _, a := range day {
		if a.Status.IsActive() {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	pending, err := svc.PendingApproval(f.ctx, PendingQuery{OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Contains(t, f.dispatcher.Types(), events.EventCleaningReassigned)
}

func TestCleaningServiceReassignActiveOriginal(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()
	original := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusAssigned)

	res, err := svc.Reassign(f.ctx, testOrg, original.ID, f.housekeeper2.ID, f.supervisor.ID)
	require.NoError(t, err)
	assert.Empty(t, res.Superseded)
	assert.Equal(t, domain.NoteSuperseded, res.Original.Notes)
	assert.Equal(t, domain.AssignmentStatusCompleted, res.Original.Status)
	assert.Equal(t, f.housekeeper2.ID, res.Replacement.AssignedTo)
}

func TestCleaningServiceReassignRejectsTarget(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()
	original := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusCompleted)

	_, err := svc.Reassign(f.ctx, testOrg, original.ID, f.outsider.ID, f.supervisor.ID)
	requireCode(t, err, apperrors.CodeValidation)

	_, err = svc.Reassign(f.ctx, testOrg, original.ID, "", f.supervisor.ID)
	requireCode(t, err, apperrors.CodeValidation)

	_, err = svc.Reassign(f.ctx, testOrg, original.ID, "nobody", f.supervisor.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	stored, err := svc.Get(f.ctx, original.ID)
	require.NoError(t, err)
	assert.True(t, stored.AwaitingApproval())
}

func TestCleaningServicePendingApproval(t *testing.T) {
	f := newFixture(t)
	svc := f.cleaningService()

	older := f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusCompleted)
	f.clock.Advance(time.Hour)
	newer := f.addAssignment(t, f.housekeeper2.ID, domain.AssignmentStatusCompleted)
	f.addAssignment(t, f.housekeeper.ID, domain.AssignmentStatusAssigned)

	foreignHotel := f.store.AddHotel(domain.Hotel{OrganizationID: "org-2", Name: "Elsewhere"})
	foreignRoom := f.store.AddRoom(domain.Room{HotelID: foreignHotel.ID, Number: "1"})
	done := f.clock.Now()
	require.NoError(t, f.store.Assignments().Create(f.ctx, &domain.CleaningAssignment{
		RoomID:         foreignRoom.ID,
		AssignedTo:     f.outsider.ID,
		AssignmentDate: older.AssignmentDate,
		AssignmentType: domain.AssignmentTypeDailyCleaning,
		Status:         domain.AssignmentStatusCompleted,
		CompletedAt:    &done,
	}))

	pending, err := svc.PendingApproval(f.ctx, PendingQuery{OrganizationID: "org-1"})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, newer.ID, pending[0].ID)
	assert.Equal(t, older.ID, pending[1].ID)

	otherDay := older.AssignmentDate.AddDate(0, 0, 1)
	pending, err = svc.PendingApproval(f.ctx, PendingQuery{OrganizationID: "org-1", Date: &otherDay})
	require.NoError(t, err)
	assert.Empty(t, pending)

	pending, err = svc.PendingApproval(f.ctx, PendingQuery{OrganizationID: "org-1", HotelID: &f.otherHotel.ID})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = svc.PendingApproval(f.ctx, PendingQuery{})
	requireCode(t, err, apperrors.CodeValidation)
}
