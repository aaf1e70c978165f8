// Package auth turns credentials into an Identity and gates operations on
// the caller's role.
package auth

import (
	"context"
	"errors"
	"fmt"

	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotAuthenticated      = fmt.Errorf("%w: authentication required", apierrors.ErrAuthentication)
	ErrOrganizationInactive  = fmt.Errorf("%w: organization is inactive", apierrors.ErrAuthentication)
	ErrInsufficientRole      = fmt.Errorf("%w: insufficient role", apierrors.ErrAuthorization)
	errIdentityResolveFailed = errors.New("failed to resolve identity")
)

// Identity is the caller as seen by the services. It is rebuilt from the
// store on every request so role changes apply immediately.
type Identity struct {
	UserID         uint64
	OrganizationID uint64
	Role           models.Role
}

// Guard authenticates callers and checks their role.
type Guard struct {
	tokens   *TokenIssuer
	userRepo repository.UserRepository
	orgRepo  repository.OrganizationRepository
}

// NewGuard creates a Guard.
func NewGuard(tokens *TokenIssuer, userRepo repository.UserRepository, orgRepo repository.OrganizationRepository) *Guard {
	return &Guard{
		tokens:   tokens,
		userRepo: userRepo,
		orgRepo:  orgRepo,
	}
}

// Tokens returns the issuer used to verify bearer tokens.
func (g *Guard) Tokens() *TokenIssuer {
	return g.tokens
}

// Authenticate verifies a bearer token and resolves the caller's identity.
func (g *Guard) Authenticate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNotAuthenticated
	}

	userID, err := g.tokens.Parse(token)
	if err != nil {
		return Identity{}, ErrNotAuthenticated
	}

	return g.Resolve(ctx, userID)
}

// Resolve loads the current role and organization of userID. A deleted user
// or an inactive organization fails authentication.
func (g *Guard) Resolve(ctx context.Context, userID uint64) (Identity, error) {
	user, err := g.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrNotAuthenticated
		}
		return Identity{}, fmt.Errorf("%w: %w", errIdentityResolveFailed, err)
	}

	org, err := g.orgRepo.FindByID(ctx, user.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrNotAuthenticated
		}
		return Identity{}, fmt.Errorf("%w: %w", errIdentityResolveFailed, err)
	}
	if !org.IsActive {
		return Identity{}, ErrOrganizationInactive
	}

	return Identity{
		UserID:         user.ID,
		OrganizationID: user.OrganizationID,
		Role:           user.Role,
	}, nil
}

// Authorize fails unless the identity holds one of roles.
func Authorize(identity Identity, roles ...models.Role) error {
	if identity.Role.In(roles...) {
		return nil
	}
	return ErrInsufficientRole
}

// ScopeToOrganization returns the only organization the identity may touch.
func ScopeToOrganization(identity Identity) uint64 {
	return identity.OrganizationID
}
