package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/auth"
	"github.com/yukikurage/org-task-api/internal/constants"
	"github.com/yukikurage/org-task-api/internal/dto"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/middleware"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService       *services.AuthService
	membershipService *services.MembershipService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, membershipService *services.MembershipService) *AuthHandler {
	return &AuthHandler{
		authService:       authService,
		membershipService: membershipService,
	}
}

// Register creates an organization together with its first admin.
func (h *AuthHandler) Register(c *gin.Context) {
	type RegisterRequest struct {
		OrganizationName string `json:"organizationName" binding:"required"`
		Email            string `json:"email" binding:"required"`
		Password         string `json:"password" binding:"required"`
		FirstName        string `json:"firstName"`
		LastName         string `json:"lastName"`
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	org, user, err := h.membershipService.RegisterOrganization(c.Request.Context(), services.RegisterOrganizationInput{
		OrganizationName: req.OrganizationName,
		Credentials: services.Credentials{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.startSession(c, http.StatusCreated, user, org)
}

// JoinOrganization creates a member account through an invite code.
func (h *AuthHandler) JoinOrganization(c *gin.Context) {
	type JoinRequest struct {
		InviteCode string `json:"inviteCode" binding:"required"`
		Email      string `json:"email" binding:"required"`
		Password   string `json:"password" binding:"required"`
		FirstName  string `json:"firstName"`
		LastName   string `json:"lastName"`
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, org, err := h.membershipService.JoinOrganization(c.Request.Context(), services.JoinOrganizationInput{
		InviteCode: req.InviteCode,
		Credentials: services.Credentials{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.startSession(c, http.StatusCreated, user, org)
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	session, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if !saveSession(c, session.User.ID) {
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToSessionDTO(session.Token, *session.User, *session.Organization))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		log := middleware.LoggerFrom(c)
		log.Error().Err(err).Msg("failed to clear session")
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	dto.Respond(c, http.StatusOK, dto.MessageDTO{Message: "Logged out successfully"})
}

// GetCurrentUser returns the authenticated user and their organization.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	user, org, err := h.authService.Me(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToSessionDTO("", *user, *org))
}

func (h *AuthHandler) startSession(c *gin.Context, status int, user *models.User, org *models.Organization) {
	session, err := h.authService.NewSession(user, org)
	if err != nil {
		respondError(c, err)
		return
	}

	if !saveSession(c, user.ID) {
		return
	}

	dto.Respond(c, status, dto.ToSessionDTO(session.Token, *session.User, *session.Organization))
}

func saveSession(c *gin.Context, userID uint64) bool {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, userID)
	if err := session.Save(); err != nil {
		log := middleware.LoggerFrom(c)
		log.Error().Err(err).Uint64("user_id", userID).Msg("failed to save session")
		apierrors.InternalError(c, "Failed to save session")
		return false
	}
	return true
}

func respondError(c *gin.Context, err error) {
	apierrors.Respond(c, middleware.LoggerFrom(c), err)
}

func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		apierrors.Unauthorized(c, "")
	}
	return identity, ok
}
