package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/access"
	"taskboard/internal/apperror"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// MemberHandler manages project memberships.
type MemberHandler struct {
	members MembershipStore
	users   repository.UserRepositoryInterface
	guard   *access.Guard
}

func NewMemberHandler(members MembershipStore, users repository.UserRepositoryInterface, guard *access.Guard) *MemberHandler {
	return &MemberHandler{members: members, users: users, guard: guard}
}

// AddMemberRequest names the user by id or by email.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"omitempty,uuid"`
	Email  string `json:"email" binding:"omitempty,email"`
	Role   string `json:"role" binding:"required"`
}

type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required"`
}

type MemberResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

var errMemberTarget = apperror.Validation("either user_id or email is required")

func toMemberResponse(m *model.Membership) MemberResponse {
	return MemberResponse{
		ID:        m.ID.String(),
		ProjectID: m.ProjectID.String(),
		UserID:    m.UserID.String(),
		Username:  m.User.Username,
		Email:     m.User.Email,
		Role:      string(m.Role),
		JoinedAt:  m.JoinedAt,
	}
}

// List godoc
// @Summary      List project members
// @Tags         Members
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Success      200 {array} MemberResponse
// @Failure      404 {object} ErrorResponse
// @Router       /projects/{id}/members [get]
func (h *MemberHandler) List(c *gin.Context) {
	projectID, ok := h.authorize(c, access.CapabilityMember)
	if !ok {
		return
	}

	members, err := h.members.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MemberResponse, len(members))
	for i := range members {
		response[i] = toMemberResponse(&members[i])
	}
	c.JSON(http.StatusOK, response)
}

// Add godoc
// @Summary      Add a member (owner or admin)
// @Tags         Members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Param        request body AddMemberRequest true "Member"
// @Success      201 {object} MemberResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /projects/{id}/members [post]
func (h *MemberHandler) Add(c *gin.Context) {
	projectID, ok := h.authorize(c, access.CapabilityAdmin)
	if !ok {
		return
	}

	var req AddMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var target *model.User
	var err error
	switch {
	case req.UserID != "":
		target, err = h.users.GetByID(ctx, uuid.MustParse(req.UserID))
	case req.Email != "":
		target, err = h.users.FindByEmail(ctx, strings.ToLower(req.Email))
		if err == nil && target == nil {
			err = repository.ErrUserNotFound
		}
	default:
		err = errMemberTarget
	}
	if err != nil {
		respondError(c, err)
		return
	}

	membership, err := h.members.AddMember(ctx, projectID, target.ID, model.Role(req.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	membership.User = *target

	c.JSON(http.StatusCreated, toMemberResponse(membership))
}

// Get godoc
// @Summary      Get one membership
// @Tags         Members
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Param        member_id path string true "Membership ID"
// @Success      200 {object} MemberResponse
// @Failure      404 {object} ErrorResponse
// @Router       /projects/{id}/members/{member_id} [get]
func (h *MemberHandler) Get(c *gin.Context) {
	membership, ok := h.load(c, access.CapabilityMember)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(membership))
}

// Update godoc
// @Summary      Change a member's role (owner or admin)
// @Tags         Members
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Param        member_id path string true "Membership ID"
// @Param        request body UpdateMemberRequest true "New role"
// @Success      200 {object} MemberResponse
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /projects/{id}/members/{member_id} [put]
func (h *MemberHandler) Update(c *gin.Context) {
	membership, ok := h.load(c, access.CapabilityAdmin)
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.members.ChangeRole(c.Request.Context(), membership, model.Role(req.Role)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toMemberResponse(membership))
}

// Remove godoc
// @Summary      Remove a member (owner or admin)
// @Tags         Members
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Param        member_id path string true "Membership ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /projects/{id}/members/{member_id} [delete]
func (h *MemberHandler) Remove(c *gin.Context) {
	membership, ok := h.load(c, access.CapabilityAdmin)
	if !ok {
		return
	}

	if err := h.members.RemoveMember(c.Request.Context(), membership); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member removed successfully"})
}

func (h *MemberHandler) authorize(c *gin.Context, capability access.Capability) (uuid.UUID, bool) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.guard.Require(c.Request.Context(), middleware.CurrentUserID(c), projectID, capability); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return projectID, true
}

func (h *MemberHandler) load(c *gin.Context, capability access.Capability) (*model.Membership, bool) {
	projectID, ok := h.authorize(c, capability)
	if !ok {
		return nil, false
	}
	membershipID, ok := pathID(c, "member_id", "member")
	if !ok {
		return nil, false
	}

	membership, err := h.members.GetByID(c.Request.Context(), projectID, membershipID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return membership, true
}
