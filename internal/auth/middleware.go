package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hotel-ops/internal/domain"
	"github.com/spec-kit/hotel-ops/internal/repository"
	apperrors "github.com/spec-kit/hotel-ops/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Staff  *domain.StaffMember
	Claims *Claims
}

// SessionChecker reports whether a staff member still has a live session.
type SessionChecker interface {
	Touch(ctx context.Context, staffID string) (bool, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	staff    repository.StaffRepository
	sessions SessionChecker
}

// NewAuthMiddleware constructs middleware. sessions may be nil, in which
// case a valid token is sufficient.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository, sessions SessionChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff, sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	ctx := c.UserContext()
	staff, err := m.staff.GetByID(ctx, claims.StaffID())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("staff not found")
		}
		return apperrors.MapError(err)
	}
	if !staff.Active {
		return apperrors.NewUnauthorized("staff inactive")
	}

	if m.sessions != nil {
		live, err := m.sessions.Touch(ctx, staff.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if !live {
			return apperrors.NewUnauthorized("session ended")
		}
	}

	c.Locals(principalKey, &Principal{Staff: staff, Claims: claims})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
