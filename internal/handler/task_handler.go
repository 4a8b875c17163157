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

type TaskHandler struct {
	tasks   *repository.TaskRepository
	reorder *repository.ReorderRepository
	roles   access.RoleLookup
	guard   *access.Guard
}

func NewTaskHandler(
	tasks *repository.TaskRepository,
	reorder *repository.ReorderRepository,
	roles access.RoleLookup,
	guard *access.Guard,
) *TaskHandler {
	return &TaskHandler{
		tasks:   tasks,
		reorder: reorder,
		roles:   roles,
		guard:   guard,
	}
}

type CreateTaskRequest struct {
	ColumnID    string     `json:"column_id" binding:"required,uuid"`
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	AssigneeID  string     `json:"assignee_id" binding:"omitempty,uuid"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	LabelIDs    []string   `json:"label_ids" binding:"omitempty,dive,uuid"`
}

// UpdateTaskRequest changes only the fields present. LabelIDs, when
// present, replaces the task's labels.
type UpdateTaskRequest struct {
	Title        *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description  *string    `json:"description"`
	Priority     *string    `json:"priority" binding:"omitempty,oneof=low medium high"`
	DueDate      *time.Time `json:"due_date"`
	ClearDueDate bool       `json:"clear_due_date"`
	IsComplete   *bool      `json:"is_complete"`
	LabelIDs     *[]string  `json:"label_ids" binding:"omitempty,dive,uuid"`
}

type MoveTaskRequest struct {
	ColumnID string `json:"column_id" binding:"required,uuid"`
}

type AssignTaskRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// ReorderTasksRequest lists every task of the column in the new order.
type ReorderTasksRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type TaskResponse struct {
	ID          string          `json:"id"`
	ColumnID    string          `json:"column_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	CreatedBy   *string         `json:"created_by"`
	AssigneeID  *string         `json:"assignee_id"`
	Priority    string          `json:"priority"`
	DueDate     *time.Time      `json:"due_date"`
	IsComplete  bool            `json:"is_complete"`
	Position    int             `json:"position"`
	Labels      []LabelResponse `json:"labels"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func optionalID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toTaskResponse(t *model.Task) TaskResponse {
	labels := make([]LabelResponse, len(t.Labels))
	for i := range t.Labels {
		labels[i] = toLabelResponse(&t.Labels[i])
	}
	return TaskResponse{
		ID:          t.ID.String(),
		ColumnID:    t.ColumnID.String(),
		Title:       t.Title,
		Description: t.Description,
		CreatedBy:   optionalID(t.CreatedBy),
		AssigneeID:  optionalID(t.AssigneeID),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		IsComplete:  t.IsComplete,
		Position:    t.Position,
		Labels:      labels,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskResponses(tasks []model.Task) []TaskResponse {
	response := make([]TaskResponse, len(tasks))
	for i := range tasks {
		response[i] = toTaskResponse(&tasks[i])
	}
	return response
}

// GetAll godoc
// @Summary      List accessible tasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        column_id query string false "Only tasks of this column"
// @Success      200 {array} TaskResponse
// @Router       /tasks [get]
func (h *TaskHandler) GetAll(c *gin.Context) {
	columnID, ok := queryID(c, "column_id")
	if !ok {
		return
	}

	tasks, err := h.tasks.ListVisible(c.Request.Context(), middleware.CurrentUserID(c), columnID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks))
}

// GetByColumn godoc
// @Summary      List a column's tasks in order
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Success      200 {array} TaskResponse
// @Failure      404 {object} ErrorResponse
// @Router       /columns/{id}/tasks [get]
func (h *TaskHandler) GetByColumn(c *gin.Context) {
	columnID, ok := h.authorizeColumn(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.GetByColumnID(c.Request.Context(), columnID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks))
}

// Reorder godoc
// @Summary      Reorder all tasks of a column
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Param        request body ReorderTasksRequest true "Every task id in the new order"
// @Success      200 {array} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /columns/{id}/tasks/reorder [post]
func (h *TaskHandler) Reorder(c *gin.Context) {
	columnID, ok := h.authorizeColumn(c)
	if !ok {
		return
	}

	var req ReorderTasksRequest
	if !bindJSON(c, &req) {
		return
	}
	ids, err := parseIDs(req.TaskIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	tasks, err := h.reorder.ReorderTasks(c.Request.Context(), columnID, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponses(tasks))
}

// Create godoc
// @Summary      Append a task to a column
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTaskRequest true "Task"
// @Success      201 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	columnID := uuid.MustParse(req.ColumnID)

	ctx := c.Request.Context()
	userID := middleware.CurrentUserID(c)
	scope, err := h.guard.ForColumn(ctx, userID, columnID, access.CapabilityMember)
	if err != nil {
		respondError(c, err)
		return
	}

	task := &model.Task{
		ColumnID:    columnID,
		Title:       req.Title,
		Description: req.Description,
		CreatedBy:   &userID,
		Priority:    model.PriorityMedium,
		DueDate:     req.DueDate,
	}
	if req.Priority != "" {
		task.Priority = model.Priority(req.Priority)
	}
	if req.AssigneeID != "" {
		assigneeID := uuid.MustParse(req.AssigneeID)
		if err := h.requireMember(ctx, scope.ProjectID, assigneeID); err != nil {
			respondError(c, err)
			return
		}
		task.AssigneeID = &assigneeID
	}

	labelIDs := mustParseIDs(req.LabelIDs)
	if err := h.tasks.Create(ctx, task, scope.ProjectID, labelIDs); err != nil {
		respondError(c, err)
		return
	}

	h.respondTask(c, http.StatusCreated, task.ID)
}

// GetByID godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} TaskResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	task, _, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

// Update godoc
// @Summary      Update a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body UpdateTaskRequest true "Fields to change"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	task, scope, ok := h.load(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = model.Priority(*req.Priority)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.ClearDueDate {
		task.DueDate = nil
	}
	if req.IsComplete != nil {
		task.IsComplete = *req.IsComplete
	}

	var labelIDs []uuid.UUID
	if req.LabelIDs != nil {
		labelIDs = mustParseIDs(*req.LabelIDs)
	}

	if err := h.tasks.Update(c.Request.Context(), task, scope.ProjectID, labelIDs); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, http.StatusOK, task.ID)
}

// Delete godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} MessageResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	task, _, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), task); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted successfully"})
}

// Move godoc
// @Summary      Move a task to the end of another column on the same board
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body MoveTaskRequest true "Target column"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /tasks/{id}/move [post]
func (h *TaskHandler) Move(c *gin.Context) {
	task, _, ok := h.load(c)
	if !ok {
		return
	}

	var req MoveTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	targetID := uuid.MustParse(req.ColumnID)

	ctx := c.Request.Context()
	if _, err := h.guard.ForColumn(ctx, middleware.CurrentUserID(c), targetID, access.CapabilityMember); err != nil {
		respondError(c, err)
		return
	}

	moved, err := h.tasks.MoveTask(ctx, task.ID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(moved))
}

// Assign godoc
// @Summary      Assign a project member to a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body AssignTaskRequest true "Assignee"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Router       /tasks/{id}/assign [post]
func (h *TaskHandler) Assign(c *gin.Context) {
	task, scope, ok := h.load(c)
	if !ok {
		return
	}

	var req AssignTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	assigneeID := uuid.MustParse(req.UserID)

	ctx := c.Request.Context()
	if err := h.requireMember(ctx, scope.ProjectID, assigneeID); err != nil {
		respondError(c, err)
		return
	}

	task.AssigneeID = &assigneeID
	if err := h.tasks.Update(ctx, task, scope.ProjectID, nil); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, http.StatusOK, task.ID)
}

// Unassign godoc
// @Summary      Clear a task's assignee
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} TaskResponse
// @Router       /tasks/{id}/assign [delete]
func (h *TaskHandler) Unassign(c *gin.Context) {
	task, scope, ok := h.load(c)
	if !ok {
		return
	}

	task.AssigneeID = nil
	if err := h.tasks.Update(c.Request.Context(), task, scope.ProjectID, nil); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, http.StatusOK, task.ID)
}

// AddLabel godoc
// @Summary      Attach a project label to a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        label_id path string true "Label ID"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} ErrorResponse
// @Router       /tasks/{id}/labels/{label_id} [post]
func (h *TaskHandler) AddLabel(c *gin.Context) {
	task, scope, ok := h.load(c)
	if !ok {
		return
	}
	labelID, ok := pathID(c, "label_id", "label")
	if !ok {
		return
	}

	if err := h.tasks.AddLabel(c.Request.Context(), task.ID, scope.ProjectID, labelID); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, http.StatusOK, task.ID)
}

// RemoveLabel godoc
// @Summary      Detach a label from a task
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        label_id path string true "Label ID"
// @Success      200 {object} TaskResponse
// @Router       /tasks/{id}/labels/{label_id} [delete]
func (h *TaskHandler) RemoveLabel(c *gin.Context) {
	task, _, ok := h.load(c)
	if !ok {
		return
	}
	labelID, ok := pathID(c, "label_id", "label")
	if !ok {
		return
	}

	if err := h.tasks.RemoveLabel(c.Request.Context(), task.ID, labelID); err != nil {
		respondError(c, err)
		return
	}
	h.respondTask(c, http.StatusOK, task.ID)
}

// requireMember rejects assignees without a role in the project.
func (h *TaskHandler) requireMember(ctx context.Context, projectID, userID uuid.UUID) error {
	role, err := h.roles.RoleOf(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if role == model.RoleNone {
		return repository.ErrAssigneeNotMember
	}
	return nil
}

func (h *TaskHandler) respondTask(c *gin.Context, status int, taskID uuid.UUID) {
	task, err := h.tasks.GetByID(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, toTaskResponse(task))
}

func (h *TaskHandler) authorizeColumn(c *gin.Context) (uuid.UUID, bool) {
	columnID, ok := pathID(c, "id", "column")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.guard.ForColumn(c.Request.Context(), middleware.CurrentUserID(c), columnID, access.CapabilityMember); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return columnID, true
}

func (h *TaskHandler) load(c *gin.Context) (*model.Task, model.Scope, bool) {
	taskID, ok := pathID(c, "id", "task")
	if !ok {
		return nil, model.Scope{}, false
	}

	ctx := c.Request.Context()
	scope, err := h.guard.ForTask(ctx, middleware.CurrentUserID(c), taskID, access.CapabilityMember)
	if err != nil {
		respondError(c, err)
		return nil, model.Scope{}, false
	}

	task, err := h.tasks.GetByID(ctx, taskID)
	if err != nil {
		respondError(c, err)
		return nil, model.Scope{}, false
	}
	return task, scope, true
}

// mustParseIDs parses ids already validated by the binding's uuid rule.
func mustParseIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, len(raw))
	for i, s := range raw {
		ids[i] = uuid.MustParse(s)
	}
	return ids
}
