package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/access"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// MembershipStore is the membership registry as the handlers use it.
// Both repository.MembershipRepository and the Redis-cached variant
// satisfy it.
type MembershipStore interface {
	access.RoleLookup
	ListMembers(ctx context.Context, projectID uuid.UUID) ([]model.Membership, error)
	GetByID(ctx context.Context, projectID, membershipID uuid.UUID) (*model.Membership, error)
	AddMember(ctx context.Context, projectID, userID uuid.UUID, role model.Role) (*model.Membership, error)
	ChangeRole(ctx context.Context, membership *model.Membership, role model.Role) error
	RemoveMember(ctx context.Context, membership *model.Membership) error
}

// projectForgetter is implemented by stores that cache per-project state.
type projectForgetter interface {
	ForgetProject(ctx context.Context, projectID uuid.UUID)
}

type ProjectHandler struct {
	projects *repository.ProjectRepository
	members  MembershipStore
	guard    *access.Guard
}

func NewProjectHandler(projects *repository.ProjectRepository, members MembershipStore, guard *access.Guard) *ProjectHandler {
	return &ProjectHandler{projects: projects, members: members, guard: guard}
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	IsArchived  *bool   `json:"is_archived"`
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	IsArchived  bool      `json:"is_archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProjectResponse(p *model.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID.String(),
		IsArchived:  p.IsArchived,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// GetAll godoc
// @Summary      List projects the caller owns or belongs to
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} ProjectResponse
// @Router       /projects [get]
func (h *ProjectHandler) GetAll(c *gin.Context) {
	projects, err := h.projects.ListVisible(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ProjectResponse, len(projects))
	for i := range projects {
		response[i] = toProjectResponse(&projects[i])
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Create a project owned by the caller
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateProjectRequest true "Project"
// @Success      201 {object} ProjectResponse
// @Failure      400 {object} ErrorResponse
// @Router       /projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if err := h.guard.RequireAuthenticated(userID); err != nil {
		respondError(c, err)
		return
	}

	var req CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project := &model.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toProjectResponse(project))
}

// GetByID godoc
// @Summary      Get a project
// @Tags         Projects
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Success      200 {object} ProjectResponse
// @Failure      404 {object} ErrorResponse
// @Router       /projects/{id} [get]
func (h *ProjectHandler) GetByID(c *gin.Context) {
	project, ok := h.load(c, access.CapabilityMember)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(project))
}

// Update godoc
// @Summary      Update a project (owner only)
// @Tags         Projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Param        request body UpdateProjectRequest true "Fields to change"
// @Success      200 {object} ProjectResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /projects/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	project, ok := h.load(c, access.CapabilityOwner)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.IsArchived != nil {
		project.IsArchived = *req.IsArchived
	}

	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProjectResponse(project))
}

// Delete godoc
// @Summary      Delete a project and everything in it (owner only)
// @Tags         Projects
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	project, ok := h.load(c, access.CapabilityOwner)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.projects.Delete(ctx, project.ID); err != nil {
		respondError(c, err)
		return
	}
	if f, ok := h.members.(projectForgetter); ok {
		f.ForgetProject(ctx, project.ID)
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Project deleted successfully"})
}

// load parses :id, checks capability and fetches the project.
func (h *ProjectHandler) load(c *gin.Context, capability access.Capability) (*model.Project, bool) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	if _, err := h.guard.Require(ctx, middleware.CurrentUserID(c), projectID, capability); err != nil {
		respondError(c, err)
		return nil, false
	}

	project, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return project, true
}
