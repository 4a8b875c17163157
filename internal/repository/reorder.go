package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// ReorderRepository reassigns dense 0..n-1 positions to the children of
// a board (columns) or a column (tasks) in a single transaction.
type ReorderRepository struct {
	db *gorm.DB
}

func NewReorderRepository(db *gorm.DB) *ReorderRepository {
	return &ReorderRepository{db: db}
}

// ReorderColumns sets each column's position to its index in ids. ids
// must be exactly the board's columns. Returns the board's columns in
// their new order.
func (r *ReorderRepository) ReorderColumns(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) ([]model.Column, error) {
	if err := validateOrder(ids); err != nil {
		return nil, err
	}

	var columns []model.Column
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board model.Board
		if err := forUpdate(tx).Select("id").Where("id = ?", boardID).First(&board).Error; err != nil {
			return notFound(err, ErrBoardNotFound)
		}

		if err := reassignPositions(tx, &model.Column{}, "board_id = ?", boardID, ids); err != nil {
			return err
		}

		return tx.Where("board_id = ?", boardID).
			Order("position ASC").
			Order("id ASC").
			Find(&columns).Error
	})
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// ReorderTasks sets each task's position to its index in ids. ids must
// be exactly the column's tasks. Returns the column's tasks in their new
// order.
func (r *ReorderRepository) ReorderTasks(ctx context.Context, columnID uuid.UUID, ids []uuid.UUID) ([]model.Task, error) {
	if err := validateOrder(ids); err != nil {
		return nil, err
	}

	var tasks []model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var column model.Column
		if err := forUpdate(tx).Select("id").Where("id = ?", columnID).First(&column).Error; err != nil {
			return notFound(err, ErrColumnNotFound)
		}

		if err := reassignPositions(tx, &model.Task{}, "column_id = ?", columnID, ids); err != nil {
			return err
		}

		return tx.Preload("Labels").
			Where("column_id = ?", columnID).
			Order("position ASC").
			Order("id ASC").
			Find(&tasks).Error
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func validateOrder(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrEmptyReorder
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return ErrDuplicateReorder
		}
		seen[id] = struct{}{}
	}
	return nil
}

// reassignPositions locks the container's children, checks that ids is
// exactly that set and writes position = index. The caller must already
// hold the container row lock.
func reassignPositions(tx *gorm.DB, table interface{}, where string, parentID uuid.UUID, ids []uuid.UUID) error {
	var current []uuid.UUID
	if err := forUpdate(tx).Model(table).Where(where, parentID).Pluck("id", &current).Error; err != nil {
		return err
	}

	if len(current) != len(ids) {
		return ErrReorderMismatch
	}
	children := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		children[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := children[id]; !ok {
			return ErrReorderMismatch
		}
	}

	for position, id := range ids {
		if err := tx.Model(table).Where("id = ?", id).Update("position", position).Error; err != nil {
			return err
		}
	}
	return nil
}

// compactPositions renumbers the container's children to 0..n-1 keeping
// their relative order. Used after a child leaves the container.
func compactPositions(tx *gorm.DB, table interface{}, where string, parentID uuid.UUID) error {
	var ids []uuid.UUID
	err := tx.Model(table).
		Where(where, parentID).
		Order("position ASC").
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}

	for position, id := range ids {
		err := tx.Model(table).
			Where("id = ? AND position <> ?", id, position).
			Update("position", position).Error
		if err != nil {
			return err
		}
	}
	return nil
}
