package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/hotel-ops/internal/auth"
	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
	"github.com/spec-kit/hotel-ops/internal/session"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

// AuthService coordinates staff login and logout.
type AuthService struct {
	staff    repository.StaffRepository
	tokenMgr *auth.TokenManager
	sessions session.Registry
	dispatch *DispatchService
	logger   *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	StaffRepo    repository.StaffRepository
	TokenManager *auth.TokenManager
	Sessions     session.Registry
	Dispatch     *DispatchService
	Logger       *zap.Logger
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Staff    *domain.StaffMember
	Token    string
	Session  domain.Session
	Dispatch *DispatchResult
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		staff:    deps.StaffRepo,
		tokenMgr: deps.TokenManager,
		sessions: deps.Sessions,
		dispatch: deps.Dispatch,
		logger:   logger,
	}
}

// LoginStaff authenticates staff, registers the session and runs one
// dispatch invocation for them. Dispatch failures do not fail the login.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	staff, err := s.staff.GetByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, apperrors.NewForbidden("staff member is inactive")
	}

	token, sess, err := s.tokenMgr.GenerateToken(staff)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if s.sessions != nil {
		if err := s.sessions.Add(ctx, staff.ID); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	result := &LoginResult{Staff: staff, Token: token, Session: sess}
	if s.dispatch != nil {
		res, err := s.dispatch.DispatchFor(ctx, staff)
		if err != nil {
			s.logger.Warn("login dispatch failed", zap.String("staff_id", staff.ID), zap.Error(err))
		} else {
			result.Dispatch = res
		}
	}
	s.logger.Info("staff logged in", zap.String("staff_id", staff.ID), zap.String("role", string(staff.Role)))
	return result, nil
}

// Logout ends the staff session so the dispatch worker skips it.
func (s *AuthService) Logout(ctx context.Context, staffID string) error {
	if s.sessions == nil {
		return nil
	}
	if err := s.sessions.Remove(ctx, staffID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("staff logged out", zap.String("staff_id", staffID))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
