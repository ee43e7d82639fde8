package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/hotel-ops/internal/auth"
	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/session"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

func newAuthFixture(t *testing.T) (*fixture, *AuthService, *session.MemoryRegistry) {
	t.Helper()
	f := newFixture(t)
	hash, err := auth.HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	f.technician.PasswordHash = hash
	require.NoError(t, f.store.Staff().Create(f.ctx, &f.technician))

	sessions := session.NewMemoryRegistry(time.Hour).WithClock(f.clock.Now)
	svc := NewAuthService(AuthDependencies{
		StaffRepo:    f.store.Staff(),
		TokenManager: auth.NewTokenManager("test-secret", time.Hour),
		Sessions:     sessions,
		Dispatch:     f.dispatchService(),
	})
	return f, svc, sessions
}

func TestLoginRegistersSessionAndDispatches(t *testing.T) {
	f, svc, sessions := newAuthFixture(t)
	stale := f.addTicket(t, domain.DepartmentMaintenance, domain.TicketPriorityLow, 8*time.Hour)

	res, err := svc.LoginStaff(f.ctx, "  TECH@harbor.test ", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, f.technician.ID, res.Staff.ID)

	claims, err := svc.TokenManager().ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, f.technician.ID, claims.StaffID())

	active, err := sessions.Active(f.ctx)
	require.NoError(t, err)
	assert.Contains(t, active, f.technician.ID)

	require.NotNil(t, res.Dispatch)
	assert.Equal(t, DispatchClaimed, res.Dispatch.Outcome)
	assert.Equal(t, stale.ID, res.Dispatch.Ticket.ID)

	require.NoError(t, svc.Logout(f.ctx, f.technician.ID))
	active, err = sessions.Active(f.ctx)
	require.NoError(t, err)
	assert.NotContains(t, active, f.technician.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f, svc, sessions := newAuthFixture(t)

	_, err := svc.LoginStaff(f.ctx, "tech@harbor.test", "wrong")
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = svc.LoginStaff(f.ctx, "nobody@harbor.test", "s3cret-pass")
	requireCode(t, err, apperrors.CodeUnauthorized)

	_, err = svc.LoginStaff(f.ctx, "", "")
	requireCode(t, err, apperrors.CodeValidation)

	active, err := sessions.Active(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestLoginRejectsInactiveStaff(t *testing.T) {
	f, svc, _ := newAuthFixture(t)
	f.technician.Active = false
	require.NoError(t, f.store.Staff().Create(f.ctx, &f.technician))

	_, err := svc.LoginStaff(f.ctx, "tech@harbor.test", "s3cret-pass")
	requireCode(t, err, apperrors.CodeForbidden)
}
