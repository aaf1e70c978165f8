package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-task-api/internal/dto"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/services"
	"github.com/yukikurage/org-task-api/internal/utils"
)

// OrganizationHandler handles organization-related HTTP requests
type OrganizationHandler struct {
	membershipService *services.MembershipService
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(membershipService *services.MembershipService) *OrganizationHandler {
	return &OrganizationHandler{
		membershipService: membershipService,
	}
}

// GetOrganization returns the caller's organization. Members do not see the
// invite code.
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	org, err := h.membershipService.GetOrganization(c.Request.Context(), identity.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToOrganizationDTO(*org, dto.CanSeeInviteCode(identity.Role)))
}

// UpdateOrganization applies a partial update of name and settings.
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	patch, err := services.DecodeOrganizationPatch(body)
	if err != nil {
		respondError(c, err)
		return
	}

	org, err := h.membershipService.UpdateSettings(c.Request.Context(), identity.OrganizationID, patch, identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToOrganizationDTO(*org, true))
}

// ListMembers lists the members of the caller's organization.
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(c.Request.Context(), identity.OrganizationID)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToUserDTOs(members))
}

// ChangeMemberRole sets the role of a member.
func (h *OrganizationHandler) ChangeMemberRole(c *gin.Context) {
	type ChangeRoleRequest struct {
		Role string `json:"role" binding:"required"`
	}

	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	targetID, err := utils.ParseIDParam(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.membershipService.ChangeRole(c.Request.Context(), identity.OrganizationID, targetID, models.Role(req.Role), identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.ToUserDTO(*user))
}

// RemoveMember removes a member from the organization.
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	targetID, err := utils.ParseIDParam(c, "user_id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.membershipService.RemoveMember(c.Request.Context(), identity.OrganizationID, targetID, identity.Role); err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.MessageDTO{Message: "Member removed successfully"})
}

// RotateInviteCode issues a new invite code for the organization.
func (h *OrganizationHandler) RotateInviteCode(c *gin.Context) {
	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	code, err := h.membershipService.RotateInviteCode(c.Request.Context(), identity.OrganizationID, identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusOK, dto.InviteCodeDTO{InviteCode: code})
}

// Invite sends the organization's invite code to an email address.
func (h *OrganizationHandler) Invite(c *gin.Context) {
	type InviteRequest struct {
		Email string `json:"email" binding:"required"`
	}

	identity, ok := currentIdentity(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	code, err := h.membershipService.InviteByEmail(c.Request.Context(), identity.OrganizationID, req.Email, identity.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	dto.Respond(c, http.StatusAccepted, dto.InviteCodeDTO{InviteCode: code, Email: req.Email})
}
