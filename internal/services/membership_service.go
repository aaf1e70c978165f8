package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yukikurage/org-task-api/internal/auth"
	"github.com/yukikurage/org-task-api/internal/constants"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/metrics"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/notify"
	"github.com/yukikurage/org-task-api/internal/repository"
	"github.com/yukikurage/org-task-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound    = fmt.Errorf("%w: organization not found", apierrors.ErrNotFound)
	ErrInvalidInviteCode       = fmt.Errorf("%w: invalid invite code", apierrors.ErrNotFound)
	ErrMemberNotFound          = fmt.Errorf("%w: member not found", apierrors.ErrNotFound)
	ErrEmailTaken              = fmt.Errorf("%w: email already registered", apierrors.ErrConflict)
	ErrSlugTaken               = fmt.Errorf("%w: organization name already in use", apierrors.ErrConflict)
	ErrInviteCodeExhausted     = fmt.Errorf("%w: could not allocate a unique invite code", apierrors.ErrConflict)
	ErrLastAdmin               = fmt.Errorf("%w: last admin", apierrors.ErrInvariantViolation)
	ErrInvalidRole             = fmt.Errorf("%w: invalid role", apierrors.ErrValidation)
	ErrInvalidOrganizationName = fmt.Errorf("%w: organization name must contain letters or digits", apierrors.ErrValidation)
	ErrInvalidEmail            = fmt.Errorf("%w: invalid email", apierrors.ErrValidation)
	ErrPasswordTooShort        = fmt.Errorf("%w: password must be at least %d characters", apierrors.ErrValidation, constants.MinPasswordLength)
	ErrNameRequired            = fmt.Errorf("%w: first and last name are required", apierrors.ErrValidation)
	ErrForbidden               = fmt.Errorf("%w: insufficient role", apierrors.ErrAuthorization)
)

// MembershipService owns organizations, their members, and invite codes.
type MembershipService struct {
	orgRepo      repository.OrganizationRepository
	userRepo     repository.UserRepository
	dispatcher   *notify.Dispatcher
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	generateCode func() (string, error)
}

// NewMembershipService creates a new MembershipService. dispatcher and m may
// be nil.
func NewMembershipService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	dispatcher *notify.Dispatcher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *MembershipService {
	return &MembershipService{
		orgRepo:      orgRepo,
		userRepo:     userRepo,
		dispatcher:   dispatcher,
		metrics:      m,
		logger:       logger.With().Str("component", "membership").Logger(),
		generateCode: utils.GenerateInviteCode,
	}
}

// Credentials are the personal fields every new user supplies.
type Credentials struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterOrganizationInput represents parameters to create an organization
// together with its first admin.
type RegisterOrganizationInput struct {
	OrganizationName string
	Credentials
}

// RegisterOrganization creates an organization with a fresh invite code and
// its first user as admin.
func (s *MembershipService) RegisterOrganization(ctx context.Context, input RegisterOrganizationInput) (*models.Organization, *models.User, error) {
	name := strings.TrimSpace(input.OrganizationName)
	slug := utils.Slugify(name)
	if slug == "" {
		return nil, nil, ErrInvalidOrganizationName
	}

	draft, err := newUserDraft(input.Credentials)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < constants.MaxInviteCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate invite code: %w", err)
		}

		org := &models.Organization{
			Name:       name,
			Slug:       slug,
			InviteCode: code,
			IsActive:   true,
			Settings: models.OrganizationSettings{
				Theme:    models.ThemeLight,
				Timezone: models.DefaultTimezone,
			},
		}
		admin := draft.user(models.RoleAdmin)

		err = s.orgRepo.CreateWithAdmin(ctx, org, admin)
		switch {
		case err == nil:
			s.logger.Info().
				Uint64("organization_id", org.ID).
				Uint64("user_id", admin.ID).
				Msg("organization registered")
			return org, admin, nil
		case errors.Is(err, repository.ErrDuplicateKey):
			continue
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, nil, ErrEmailTaken
		case errors.Is(err, repository.ErrSlugTaken):
			return nil, nil, ErrSlugTaken
		default:
			return nil, nil, fmt.Errorf("failed to register organization: %w", err)
		}
	}

	return nil, nil, ErrInviteCodeExhausted
}

// JoinOrganizationInput represents parameters to join through an invite code.
type JoinOrganizationInput struct {
	InviteCode string
	Credentials
}

// JoinOrganization adds a new member to the active organization owning the
// invite code.
func (s *MembershipService) JoinOrganization(ctx context.Context, input JoinOrganizationInput) (*models.User, *models.Organization, error) {
	draft, err := newUserDraft(input.Credentials)
	if err != nil {
		return nil, nil, err
	}

	org, err := s.orgRepo.FindActiveByInviteCode(ctx, utils.NormalizeInviteCode(input.InviteCode))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidInviteCode
		}
		return nil, nil, fmt.Errorf("failed to find organization: %w", err)
	}

	user := draft.user(models.RoleMember)
	user.OrganizationID = org.ID
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.logger.Info().
		Uint64("organization_id", org.ID).
		Uint64("user_id", user.ID).
		Msg("member joined")
	return user, org, nil
}

// GetOrganization returns the caller's organization.
func (s *MembershipService) GetOrganization(ctx context.Context, orgID uint64) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// RotateInviteCode replaces the organization's invite code with a new one
// that no organization currently holds.
func (s *MembershipService) RotateInviteCode(ctx context.Context, orgID uint64, callerRole models.Role) (string, error) {
	if err := requireRole(callerRole, models.ElevatedRoles...); err != nil {
		return "", err
	}

	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < constants.MaxInviteCodeAttempts; attempt++ {
		code, err := s.generateCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		if code == org.InviteCode {
			continue
		}

		err = s.orgRepo.UpdateInviteCode(ctx, orgID, code)
		switch {
		case err == nil:
			s.metrics.RecordInviteCodeRotation()
			s.logger.Info().Uint64("organization_id", orgID).Msg("invite code rotated")
			return code, nil
		case errors.Is(err, repository.ErrDuplicateKey):
			continue
		case errors.Is(err, gorm.ErrRecordNotFound):
			return "", ErrOrganizationNotFound
		default:
			return "", fmt.Errorf("failed to update invite code: %w", err)
		}
	}

	return "", ErrInviteCodeExhausted
}

// InviteByEmail returns the current invite code and notifies email in the
// background. Notification failures never fail the call.
func (s *MembershipService) InviteByEmail(ctx context.Context, orgID uint64, email string, callerRole models.Role) (string, error) {
	if err := requireRole(callerRole, models.ElevatedRoles...); err != nil {
		return "", err
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}

	org, err := s.GetOrganization(ctx, orgID)
	if err != nil {
		return "", err
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchInvite(normalized, org.ID)
	}
	return org.InviteCode, nil
}

// ChangeRole sets the role of a member. Demoting the last admin fails with
// ErrLastAdmin.
func (s *MembershipService) ChangeRole(ctx context.Context, orgID, targetUserID uint64, newRole, callerRole models.Role) (*models.User, error) {
	if err := requireRole(callerRole, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !newRole.Valid() {
		return nil, ErrInvalidRole
	}

	user, err := s.orgRepo.UpdateMemberRole(ctx, orgID, targetUserID, newRole)
	if err != nil {
		return nil, s.translateMemberError(err)
	}

	s.logger.Info().
		Uint64("organization_id", orgID).
		Uint64("user_id", targetUserID).
		Str("role", string(newRole)).
		Msg("member role changed")
	return user, nil
}

// RemoveMember deletes a member. Removing the last admin fails with
// ErrLastAdmin. Tasks assigned to the member become unassigned.
func (s *MembershipService) RemoveMember(ctx context.Context, orgID, targetUserID uint64, callerRole models.Role) error {
	if err := requireRole(callerRole, models.RoleAdmin); err != nil {
		return err
	}

	if err := s.orgRepo.RemoveMember(ctx, orgID, targetUserID); err != nil {
		return s.translateMemberError(err)
	}

	s.logger.Info().
		Uint64("organization_id", orgID).
		Uint64("user_id", targetUserID).
		Msg("member removed")
	return nil
}

// ListMembers returns the members ordered admin, manager, member, then by
// first name.
func (s *MembershipService) ListMembers(ctx context.Context, orgID uint64) ([]models.User, error) {
	users, err := s.userRepo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return users, nil
}

// UpdateSettings applies a decoded organization patch to the row read under
// lock. A new name recomputes the slug; settings fields are merged.
func (s *MembershipService) UpdateSettings(ctx context.Context, orgID uint64, patch OrganizationPatch, callerRole models.Role) (*models.Organization, error) {
	if err := requireRole(callerRole, models.RoleAdmin); err != nil {
		return nil, err
	}

	var patchErr error
	org, err := s.orgRepo.UpdateLocked(ctx, orgID, func(org *models.Organization) error {
		patchErr = patch.apply(org)
		return patchErr
	})
	if err != nil {
		switch {
		case patchErr != nil:
			return nil, patchErr
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrOrganizationNotFound
		case errors.Is(err, repository.ErrSlugTaken):
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return org, nil
}

func (s *MembershipService) translateMemberError(err error) error {
	switch {
	case errors.Is(err, repository.ErrLastAdmin):
		return ErrLastAdmin
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrMemberNotFound
	default:
		return fmt.Errorf("failed to update member: %w", err)
	}
}

func requireRole(role models.Role, allowed ...models.Role) error {
	if !role.In(allowed...) {
		return ErrForbidden
	}
	return nil
}

// userDraft is a validated, hashed set of credentials.
type userDraft struct {
	email        string
	passwordHash string
	firstName    string
	lastName     string
}

func newUserDraft(c Credentials) (userDraft, error) {
	email, err := normalizeEmail(c.Email)
	if err != nil {
		return userDraft{}, err
	}
	if len(c.Password) < constants.MinPasswordLength {
		return userDraft{}, ErrPasswordTooShort
	}

	firstName := strings.TrimSpace(c.FirstName)
	lastName := strings.TrimSpace(c.LastName)
	if firstName == "" || lastName == "" {
		return userDraft{}, ErrNameRequired
	}

	hash, err := auth.HashPassword(c.Password)
	if err != nil {
		return userDraft{}, fmt.Errorf("failed to hash password: %w", err)
	}

	return userDraft{
		email:        email,
		passwordHash: hash,
		firstName:    firstName,
		lastName:     lastName,
	}, nil
}

func (d userDraft) user(role models.Role) *models.User {
	return &models.User{
		Email:        d.email,
		PasswordHash: d.passwordHash,
		FirstName:    d.firstName,
		LastName:     d.lastName,
		Role:         role,
	}
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}
