package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/org-task-api/internal/auth"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apierrors.ErrAuthentication)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", apierrors.ErrNotFound)
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo repository.UserRepository
	orgRepo  repository.OrganizationRepository
	tokens   *auth.TokenIssuer
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		orgRepo:  orgRepo,
		tokens:   tokens,
	}
}

// Session is what a successful sign-in hands back to the client.
type Session struct {
	Token        string
	User         *models.User
	Organization *models.Organization
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and issues a bearer token. Members of inactive
// organizations cannot sign in.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	org, err := s.orgRepo.FindByID(ctx, user.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	if !org.IsActive {
		return nil, auth.ErrOrganizationInactive
	}

	return s.NewSession(user, org)
}

// NewSession issues a token for a user who has just been authenticated or
// created.
func (s *AuthService) NewSession(user *models.User, org *models.Organization) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user, Organization: org}, nil
}

// Me returns the current user and organization.
func (s *AuthService) Me(ctx context.Context, userID uint64) (*models.User, *models.Organization, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	org, err := s.orgRepo.FindByID(ctx, user.OrganizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrganizationNotFound
		}
		return nil, nil, fmt.Errorf("failed to find organization: %w", err)
	}

	return user, org, nil
}
