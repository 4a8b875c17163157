package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create appends the task to its column and attaches labelIDs, which
// must all belong to projectID.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task, projectID uuid.UUID, labelIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var column model.Column
		if err := forUpdate(tx).Select("id").Where("id = ?", task.ColumnID).First(&column).Error; err != nil {
			return notFound(err, ErrColumnNotFound)
		}

		position, err := nextPosition(tx, &model.Task{}, "column_id = ?", task.ColumnID)
		if err != nil {
			return err
		}
		task.Position = position

		if err := tx.Omit("Column", "Creator", "Assignee", "Labels").Create(task).Error; err != nil {
			return err
		}
		return replaceLabels(tx, task.ID, projectID, labelIDs)
	})
}

// GetByID retrieves a task with its labels.
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Labels").First(&task, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrTaskNotFound)
	}
	return &task, nil
}

// GetByColumnID lists a column's tasks in display order.
func (r *TaskRepository) GetByColumnID(ctx context.Context, columnID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).
		Preload("Labels").
		Where("column_id = ?", columnID).
		Order("position ASC").
		Order("id ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListVisible returns tasks in projects the user can access, optionally
// limited to one column.
func (r *TaskRepository) ListVisible(ctx context.Context, userID uuid.UUID, columnID *uuid.UUID) ([]model.Task, error) {
	query := r.db.WithContext(ctx).
		Preload("Labels").
		Joins("JOIN columns ON columns.id = tasks.column_id").
		Joins("JOIN boards ON boards.id = columns.board_id").
		Joins("JOIN projects ON projects.id = boards.project_id").
		Scopes(visibleTo(userID))
	if columnID != nil {
		query = query.Where("tasks.column_id = ?", *columnID)
	}

	var tasks []model.Task
	err := query.
		Order("tasks.column_id ASC").
		Order("tasks.position ASC").
		Order("tasks.id ASC").
		Find(&tasks).Error
	return tasks, err
}

// Update writes the editable fields. CreatedBy, ColumnID and Position are
// never touched here. A nil labelIDs leaves labels unchanged.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task, projectID uuid.UUID, labelIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(task).
			Select("title", "description", "assignee_id", "priority", "due_date", "is_complete").
			Updates(task)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		if labelIDs == nil {
			return nil
		}
		return replaceLabels(tx, task.ID, projectID, labelIDs)
	})
}

// Delete removes the task (cascading to comments) and closes the gap in
// its column.
func (r *TaskRepository) Delete(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var column model.Column
		if err := forUpdate(tx).Select("id").Where("id = ?", task.ColumnID).First(&column).Error; err != nil {
			return notFound(err, ErrColumnNotFound)
		}

		result := tx.Delete(&model.Task{}, "id = ?", task.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		return compactPositions(tx, &model.Task{}, "column_id = ?", task.ColumnID)
	})
}

// MoveTask moves the task to the end of another column on the same
// board and compacts the column it left.
func (r *TaskRepository) MoveTask(ctx context.Context, taskID, targetColumnID uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			return notFound(err, ErrTaskNotFound)
		}
		if task.ColumnID == targetColumnID {
			return nil
		}

		source, target, err := lockMoveColumns(tx, &task, targetColumnID)
		if err != nil {
			return err
		}
		if source == nil {
			return nil
		}
		if source.BoardID != target.BoardID {
			return ErrColumnOutsideBoard
		}

		position, err := nextPosition(tx, &model.Task{}, "column_id = ?", targetColumnID)
		if err != nil {
			return err
		}

		if err := tx.Model(&task).Updates(map[string]interface{}{
			"column_id": targetColumnID,
			"position":  position,
		}).Error; err != nil {
			return err
		}
		task.ColumnID = targetColumnID
		task.Position = position

		return compactPositions(tx, &model.Task{}, "column_id = ?", source.ID)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, task.ID)
}

// maxMoveAttempts bounds how often a move chases a task that keeps
// changing columns under it.
const maxMoveAttempts = 3

// lockMoveColumns locks the task's current column and the target column.
// The task's column is re-read once the locks are held: a move that
// committed after the first read means the wrong column was locked, so
// the new one is locked as well. Once the column holding the task is
// locked no other writer can take the task out of it. A nil source means
// the task already sits in the target column.
func lockMoveColumns(tx *gorm.DB, task *model.Task, targetColumnID uuid.UUID) (source, target *model.Column, err error) {
	locked := make(map[uuid.UUID]*model.Column, 2)
	wanted := []uuid.UUID{task.ColumnID, targetColumnID}

	for attempt := 0; attempt < maxMoveAttempts; attempt++ {
		// Lock in id order so opposite moves cannot deadlock.
		var columns []model.Column
		if err := forUpdate(tx).
			Where("id IN ?", wanted).
			Order("id ASC").
			Find(&columns).Error; err != nil {
			return nil, nil, err
		}
		for i := range columns {
			locked[columns[i].ID] = &columns[i]
		}

		var current model.Task
		if err := tx.Select("column_id", "position").First(&current, "id = ?", task.ID).Error; err != nil {
			return nil, nil, notFound(err, ErrTaskNotFound)
		}
		task.ColumnID, task.Position = current.ColumnID, current.Position

		if task.ColumnID == targetColumnID {
			return nil, nil, nil
		}
		source, target = locked[task.ColumnID], locked[targetColumnID]
		if target == nil {
			return nil, nil, ErrColumnNotFound
		}
		if source != nil {
			return source, target, nil
		}
		wanted = []uuid.UUID{task.ColumnID}
	}
	return nil, nil, ErrConcurrentMove
}

// AddLabel attaches one label; it must belong to projectID.
func (r *TaskRepository) AddLabel(ctx context.Context, taskID, projectID, labelID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureLabelsInProject(tx, projectID, []uuid.UUID{labelID}); err != nil {
			return err
		}
		return tx.Exec(
			"INSERT INTO task_labels (task_id, label_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			taskID, labelID,
		).Error
	})
}

// RemoveLabel removes a label from a task
func (r *TaskRepository) RemoveLabel(ctx context.Context, taskID, labelID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(
		"DELETE FROM task_labels WHERE task_id = ? AND label_id = ?",
		taskID, labelID,
	).Error
}

func replaceLabels(tx *gorm.DB, taskID, projectID uuid.UUID, labelIDs []uuid.UUID) error {
	if err := ensureLabelsInProject(tx, projectID, labelIDs); err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM task_labels WHERE task_id = ?", taskID).Error; err != nil {
		return err
	}
	for _, labelID := range labelIDs {
		if err := tx.Exec(
			"INSERT INTO task_labels (task_id, label_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
			taskID, labelID,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

// ensureLabelsInProject rejects any label id that is unknown or scoped to
// a different project.
func ensureLabelsInProject(tx *gorm.DB, projectID uuid.UUID, labelIDs []uuid.UUID) error {
	if len(labelIDs) == 0 {
		return nil
	}

	unique := make(map[uuid.UUID]struct{}, len(labelIDs))
	for _, id := range labelIDs {
		unique[id] = struct{}{}
	}

	var matched int64
	err := tx.Model(&model.Label{}).
		Where("id IN ? AND project_id = ?", labelIDs, projectID).
		Count(&matched).Error
	if err != nil {
		return err
	}
	if int(matched) != len(unique) {
		return ErrLabelOutsideProject
	}
	return nil
}
