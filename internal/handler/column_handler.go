package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskboard/internal/access"
	"taskboard/internal/middleware"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type ColumnHandler struct {
	columns *repository.ColumnRepository
	reorder *repository.ReorderRepository
	guard   *access.Guard
}

func NewColumnHandler(columns *repository.ColumnRepository, reorder *repository.ReorderRepository, guard *access.Guard) *ColumnHandler {
	return &ColumnHandler{columns: columns, reorder: reorder, guard: guard}
}

type CreateColumnRequest struct {
	BoardID string `json:"board_id" binding:"required,uuid"`
	Name    string `json:"name" binding:"required,max=255"`
}

type UpdateColumnRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// ReorderColumnsRequest lists every column of the board in the new order.
type ReorderColumnsRequest struct {
	ColumnIDs []string `json:"column_ids"`
}

type ColumnResponse struct {
	ID       string `json:"id"`
	BoardID  string `json:"board_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

func toColumnResponse(col *model.Column) ColumnResponse {
	return ColumnResponse{
		ID:       col.ID.String(),
		BoardID:  col.BoardID.String(),
		Name:     col.Name,
		Position: col.Position,
	}
}

func toColumnResponses(columns []model.Column) []ColumnResponse {
	response := make([]ColumnResponse, len(columns))
	for i := range columns {
		response[i] = toColumnResponse(&columns[i])
	}
	return response
}

// GetAll godoc
// @Summary      List accessible columns
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Param        board_id query string false "Only columns of this board"
// @Success      200 {array} ColumnResponse
// @Router       /columns [get]
func (h *ColumnHandler) GetAll(c *gin.Context) {
	boardID, ok := queryID(c, "board_id")
	if !ok {
		return
	}

	columns, err := h.columns.ListVisible(c.Request.Context(), middleware.CurrentUserID(c), boardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toColumnResponses(columns))
}

// GetByBoard godoc
// @Summary      List a board's columns in order
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Success      200 {array} ColumnResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id}/columns [get]
func (h *ColumnHandler) GetByBoard(c *gin.Context) {
	boardID, ok := h.authorizeBoard(c)
	if !ok {
		return
	}

	columns, err := h.columns.GetByBoardID(c.Request.Context(), boardID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toColumnResponses(columns))
}

// Reorder godoc
// @Summary      Reorder all columns of a board
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Board ID"
// @Param        request body ReorderColumnsRequest true "Every column id in the new order"
// @Success      200 {array} ColumnResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /boards/{id}/columns/reorder [post]
func (h *ColumnHandler) Reorder(c *gin.Context) {
	boardID, ok := h.authorizeBoard(c)
	if !ok {
		return
	}

	var req ReorderColumnsRequest
	if !bindJSON(c, &req) {
		return
	}
	ids, err := parseIDs(req.ColumnIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	columns, err := h.reorder.ReorderColumns(c.Request.Context(), boardID, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toColumnResponses(columns))
}

// Create godoc
// @Summary      Append a column to a board
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateColumnRequest true "Column"
// @Success      201 {object} ColumnResponse
// @Failure      404 {object} ErrorResponse
// @Router       /columns [post]
func (h *ColumnHandler) Create(c *gin.Context) {
	var req CreateColumnRequest
	if !bindJSON(c, &req) {
		return
	}
	boardID := uuid.MustParse(req.BoardID)

	ctx := c.Request.Context()
	if _, err := h.guard.ForBoard(ctx, middleware.CurrentUserID(c), boardID, access.CapabilityMember); err != nil {
		respondError(c, err)
		return
	}

	column := &model.Column{BoardID: boardID, Name: req.Name}
	if err := h.columns.Create(ctx, column); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toColumnResponse(column))
}

// GetByID godoc
// @Summary      Get a column
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Success      200 {object} ColumnResponse
// @Failure      404 {object} ErrorResponse
// @Router       /columns/{id} [get]
func (h *ColumnHandler) GetByID(c *gin.Context) {
	column, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toColumnResponse(column))
}

// Update godoc
// @Summary      Rename a column
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Param        request body UpdateColumnRequest true "New name"
// @Success      200 {object} ColumnResponse
// @Router       /columns/{id} [put]
func (h *ColumnHandler) Update(c *gin.Context) {
	column, ok := h.load(c)
	if !ok {
		return
	}

	var req UpdateColumnRequest
	if !bindJSON(c, &req) {
		return
	}
	column.Name = req.Name

	if err := h.columns.Update(c.Request.Context(), column); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toColumnResponse(column))
}

// Delete godoc
// @Summary      Delete a column and its tasks
// @Tags         Columns
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Success      200 {object} MessageResponse
// @Router       /columns/{id} [delete]
func (h *ColumnHandler) Delete(c *gin.Context) {
	column, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.columns.Delete(c.Request.Context(), column); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Column deleted successfully"})
}

func (h *ColumnHandler) authorizeBoard(c *gin.Context) (uuid.UUID, bool) {
	boardID, ok := pathID(c, "id", "board")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.guard.ForBoard(c.Request.Context(), middleware.CurrentUserID(c), boardID, access.CapabilityMember); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return boardID, true
}

func (h *ColumnHandler) load(c *gin.Context) (*model.Column, bool) {
	columnID, ok := pathID(c, "id", "column")
	if !ok {
		return nil, false
	}

	ctx := c.Request.Context()
	if _, err := h.guard.ForColumn(ctx, middleware.CurrentUserID(c), columnID, access.CapabilityMember); err != nil {
		respondError(c, err)
		return nil, false
	}

	column, err := h.columns.GetByID(ctx, columnID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return column, true
}
