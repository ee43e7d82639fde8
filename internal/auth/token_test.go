package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/hotel-ops/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	staff := &domain.StaffMember{ID: "staff-1", HotelID: "hotel-1", Role: domain.StaffRoleHousekeeper}

	token, session, err := tm.GenerateToken(staff)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", session.StaffID)
	assert.Equal(t, time.Hour, session.ExpiresAt.Sub(session.IssuedAt))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.StaffID())
	assert.Equal(t, domain.StaffRoleHousekeeper, claims.Role)
	assert.Equal(t, "hotel-1", claims.HotelID)
}

func TestTokenRejections(t *testing.T) {
	staff := &domain.StaffMember{ID: "staff-1", Role: domain.StaffRoleWaiter}

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewTokenManager("a", time.Hour).GenerateToken(staff)
		require.NoError(t, err)
		_, err = NewTokenManager("b", time.Hour).ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tm := NewTokenManager("a", time.Minute)
		issued := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		tm.now = func() time.Time { return issued }
		token, _, err := tm.GenerateToken(staff)
		require.NoError(t, err)

		tm.now = func() time.Time { return issued.Add(2 * time.Minute) }
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewTokenManager("a", time.Hour).ParseToken("not-a-jwt")
		assert.Error(t, err)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "battery staple"))

	_, err = HashPassword("short", 4)
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.ErrorIs(t, ComparePassword("", "correct horse"), ErrNoPassword)

	hash, err = HashPassword("correct horse", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
