package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskboard/internal/access"
	"taskboard/internal/apperror"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type LabelHandler struct {
	labels *repository.LabelRepository
	guard  *access.Guard
}

func NewLabelHandler(labels *repository.LabelRepository, guard *access.Guard) *LabelHandler {
	return &LabelHandler{labels: labels, guard: guard}
}

type CreateLabelRequest struct {
	Name  string `json:"name" binding:"required,max=50"`
	Color string `json:"color" binding:"required,hexcolor"`
}

type UpdateLabelRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=50"`
	Color *string `json:"color" binding:"omitempty,hexcolor"`
}

type LabelResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func toLabelResponse(l *model.Label) LabelResponse {
	return LabelResponse{
		ID:        l.ID.String(),
		ProjectID: l.ProjectID.String(),
		Name:      l.Name,
		Color:     l.Color,
		CreatedAt: l.CreatedAt,
	}
}

// GetByProject godoc
// @Summary      List a project's labels
// @Tags         Labels
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Success      200 {array} LabelResponse
// @Router       /projects/{id}/labels [get]
func (h *LabelHandler) GetByProject(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.guard.RequireProjectAccess(ctx, middleware.CurrentUserID(c), projectID); err != nil {
		respondError(c, err)
		return
	}

	labels, err := h.labels.GetByProjectID(ctx, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]LabelResponse, len(labels))
	for i := range labels {
		response[i] = toLabelResponse(&labels[i])
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Create a label (owner or admin)
// @Tags         Labels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Project ID"
// @Param        request body CreateLabelRequest true "Label"
// @Success      201 {object} LabelResponse
// @Failure      409 {object} ErrorResponse
// @Router       /projects/{id}/labels [post]
func (h *LabelHandler) Create(c *gin.Context) {
	projectID, ok := pathID(c, "id", "project")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.guard.RequireProjectAdmin(ctx, middleware.CurrentUserID(c), projectID); err != nil {
		respondError(c, err)
		return
	}

	var req CreateLabelRequest
	if !bindJSON(c, &req) {
		return
	}

	label := &model.Label{ProjectID: projectID, Name: req.Name, Color: req.Color}
	if err := h.labels.Create(ctx, label); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toLabelResponse(label))
}

// Update godoc
// @Summary      Update a label (owner or admin)
// @Tags         Labels
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Label ID"
// @Param        request body UpdateLabelRequest true "Fields to change"
// @Success      200 {object} LabelResponse
// @Router       /labels/{id} [put]
func (h *LabelHandler) Update(c *gin.Context) {
	label, ok := h.loadForAdmin(c)
	if !ok {
		return
	}

	var req UpdateLabelRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		label.Name = *req.Name
	}
	if req.Color != nil {
		label.Color = *req.Color
	}

	if err := h.labels.Update(c.Request.Context(), label); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toLabelResponse(label))
}

// Delete godoc
// @Summary      Delete a label (owner or admin)
// @Tags         Labels
// @Security     BearerAuth
// @Param        id path string true "Label ID"
// @Success      200 {object} MessageResponse
// @Router       /labels/{id} [delete]
func (h *LabelHandler) Delete(c *gin.Context) {
	label, ok := h.loadForAdmin(c)
	if !ok {
		return
	}

	if err := h.labels.Delete(c.Request.Context(), label.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Label deleted successfully"})
}

func (h *LabelHandler) loadForAdmin(c *gin.Context) (*model.Label, bool) {
	labelID, ok := pathID(c, "id", "label")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	label, err := h.labels.GetByID(ctx, labelID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	if _, err := h.guard.RequireProjectAdmin(ctx, middleware.CurrentUserID(c), label.ProjectID); err != nil {
		// Outsiders must not learn the label exists.
		if apperror.KindOf(err) == apperror.KindNotFound {
			err = repository.ErrLabelNotFound
		}
		respondError(c, err)
		return nil, false
	}
	return label, true
}
