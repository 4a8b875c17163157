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

type CommentHandler struct {
	comments *repository.CommentRepository
	guard    *access.Guard
}

func NewCommentHandler(comments *repository.CommentRepository, guard *access.Guard) *CommentHandler {
	return &CommentHandler{comments: comments, guard: guard}
}

// CommentRequest carries only content; the task comes from the path and
// the author from the token.
type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCommentResponse(cm *model.Comment) CommentResponse {
	return CommentResponse{
		ID:        cm.ID.String(),
		TaskID:    cm.TaskID.String(),
		AuthorID:  cm.AuthorID.String(),
		Author:    cm.Author.Username,
		Content:   cm.Content,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
}

// List godoc
// @Summary      List a task's comments, oldest first
// @Tags         Comments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {array} CommentResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	taskID, ok := h.authorizeTask(c)
	if !ok {
		return
	}

	comments, err := h.comments.ListByTask(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CommentResponse, len(comments))
	for i := range comments {
		response[i] = toCommentResponse(&comments[i])
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Comment on a task
// @Tags         Comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body CommentRequest true "Comment"
// @Success      201 {object} CommentResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	taskID, ok := h.authorizeTask(c)
	if !ok {
		return
	}

	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	comment := &model.Comment{
		TaskID:   taskID,
		AuthorID: middleware.CurrentUserID(c),
		Content:  req.Content,
	}
	if err := h.comments.Create(ctx, comment); err != nil {
		respondError(c, err)
		return
	}

	created, err := h.comments.GetByID(ctx, taskID, comment.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(created))
}

// Get godoc
// @Summary      Get a comment
// @Tags         Comments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        comment_id path string true "Comment ID"
// @Success      200 {object} CommentResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id}/comments/{comment_id} [get]
func (h *CommentHandler) Get(c *gin.Context) {
	comment, ok := h.load(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toCommentResponse(comment))
}

// Update godoc
// @Summary      Edit a comment (author only)
// @Tags         Comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        comment_id path string true "Comment ID"
// @Param        request body CommentRequest true "New content"
// @Success      200 {object} CommentResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tasks/{id}/comments/{comment_id} [put]
func (h *CommentHandler) Update(c *gin.Context) {
	comment, ok := h.load(c, true)
	if !ok {
		return
	}

	var req CommentRequest
	if !bindJSON(c, &req) {
		return
	}
	comment.Content = req.Content

	if err := h.comments.Update(c.Request.Context(), comment); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentResponse(comment))
}

// Delete godoc
// @Summary      Delete a comment (author only)
// @Tags         Comments
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        comment_id path string true "Comment ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Router       /tasks/{id}/comments/{comment_id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	comment, ok := h.load(c, true)
	if !ok {
		return
	}

	if err := h.comments.Delete(c.Request.Context(), comment.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Comment deleted successfully"})
}

func (h *CommentHandler) authorizeTask(c *gin.Context) (uuid.UUID, bool) {
	taskID, ok := pathID(c, "id", "task")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.guard.ForTask(c.Request.Context(), middleware.CurrentUserID(c), taskID, access.CapabilityMember); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return taskID, true
}

// load fetches the comment under its task; authorOnly additionally
// requires the caller to have written it.
func (h *CommentHandler) load(c *gin.Context, authorOnly bool) (*model.Comment, bool) {
	taskID, ok := h.authorizeTask(c)
	if !ok {
		return nil, false
	}
	commentID, ok := pathID(c, "comment_id", "comment")
	if !ok {
		return nil, false
	}

	comment, err := h.comments.GetByID(c.Request.Context(), taskID, commentID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}

	if authorOnly {
		if err := access.RequireAuthor(middleware.CurrentUserID(c), comment.AuthorID); err != nil {
			respondError(c, err)
			return nil, false
		}
	}
	return comment, true
}
