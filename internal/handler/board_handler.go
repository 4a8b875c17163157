package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/access"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type BoardHandler struct {
	boards *repository.BoardRepository
	guard  *access.Guard
}

func NewBoardHandler(boards *repository.BoardRepository, guard *access.Guard) *BoardHandler {
	return &BoardHandler{boards: boards, guard: guard}
}

type CreateBoardRequest struct {
	ProjectID   string `json:"project_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

type UpdateBoardRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	IsDefault   *bool   `json:"is_default"`
}

type BoardResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

func toBoardResponse(b *model.Board) BoardResponse {
	return BoardResponse{
		ID:          b.ID.String(),
		ProjectID:   b.ProjectID.String(),
		Name:        b.Name,
		Description: b.Description,
		IsDefault:   b.IsDefault,
		CreatedAt:   b.CreatedAt,
	}
}

// GetAll godoc
// @Summary      List boards of every accessible project
// @Tags         Boards
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} BoardResponse
// @Router       /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	boards, err := h.boards.ListVisible(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BoardResponse, len(boards))
	for i := range boards {
		response[i] = toBoardResponse(&boards[i])
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Create the board of a project
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateBoardRequest true "Board"
// @Success      201 {object} BoardResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	var req CreateBoardRequest
	if !bindJSON(c, &req) {
		return
	}
	projectID := uuid.MustParse(req.ProjectID)

	ctx := c.Request.Context()
	if _, err := h.guard.RequireProjectAccess(ctx, middleware.CurrentUserID(c), projectID); err != nil {
		respondError(c, err)
		return
	}

	board := &model.Board{
		ProjectID:   projectID,
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	}
	if err := h.boards.Create(ctx, board); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBoardResponse(board))
}

// GetByID godoc
// @Summary      Get a board
// @Tags         Boards
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} BoardResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id} [get]
func (h *BoardHandler) GetByID(c *gin.Context) {
	board, ok := h.load(c, access.CapabilityMember)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Update godoc
// @Summary      Update a board (project owner only)
// @Tags         Boards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Param        request body UpdateBoardRequest true "Fields to change"
// @Success      200 {object} BoardResponse
// @Failure      403 {object} ErrorResponse
// @Router       /boards/{id} [put]
func (h *BoardHandler) Update(c *gin.Context) {
	board, ok := h.load(c, access.CapabilityOwner)
	if !ok {
		return
	}

	var req UpdateBoardRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		board.Name = *req.Name
	}
	if req.Description != nil {
		board.Description = *req.Description
	}
	if req.IsDefault != nil {
		board.IsDefault = *req.IsDefault
	}

	if err := h.boards.Update(c.Request.Context(), board); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBoardResponse(board))
}

// Delete godoc
// @Summary      Delete a board (project owner only)
// @Tags         Boards
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	board, ok := h.load(c, access.CapabilityOwner)
	if !ok {
		return
	}

	if err := h.boards.Delete(c.Request.Context(), board.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Board deleted successfully"})
}

func (h *BoardHandler) load(c *gin.Context, capability access.Capability) (*model.Board, bool) {
	boardID, ok := pathID(c, "id", "board")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	if _, err := h.guard.ForBoard(ctx, middleware.CurrentUserID(c), boardID, capability); err != nil {
		respondError(c, err)
		return nil, false
	}

	board, err := h.boards.GetByID(ctx, boardID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return board, true
}
