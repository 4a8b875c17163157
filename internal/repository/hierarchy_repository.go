package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// HierarchyRepository resolves which project owns a board, column or task.
type HierarchyRepository struct {
	db *gorm.DB
}

func NewHierarchyRepository(db *gorm.DB) *HierarchyRepository {
	return &HierarchyRepository{db: db}
}

func (r *HierarchyRepository) BoardScope(ctx context.Context, boardID uuid.UUID) (model.Scope, error) {
	var scope model.Scope
	err := r.db.WithContext(ctx).
		Table("boards").
		Select("boards.project_id AS project_id, boards.id AS board_id").
		Where("boards.id = ?", boardID).
		Take(&scope).Error
	if err != nil {
		return model.Scope{}, notFound(err, ErrBoardNotFound)
	}
	return scope, nil
}

func (r *HierarchyRepository) ColumnScope(ctx context.Context, columnID uuid.UUID) (model.Scope, error) {
	var scope model.Scope
	err := r.db.WithContext(ctx).
		Table("columns").
		Select("boards.project_id AS project_id, boards.id AS board_id, columns.id AS column_id").
		Joins("JOIN boards ON boards.id = columns.board_id").
		Where("columns.id = ?", columnID).
		Take(&scope).Error
	if err != nil {
		return model.Scope{}, notFound(err, ErrColumnNotFound)
	}
	return scope, nil
}

func (r *HierarchyRepository) TaskScope(ctx context.Context, taskID uuid.UUID) (model.Scope, error) {
	var scope model.Scope
	err := r.db.WithContext(ctx).
		Table("tasks").
		Select("boards.project_id AS project_id, boards.id AS board_id, columns.id AS column_id, tasks.id AS task_id").
		Joins("JOIN columns ON columns.id = tasks.column_id").
		Joins("JOIN boards ON boards.id = columns.board_id").
		Where("tasks.id = ?", taskID).
		Take(&scope).Error
	if err != nil {
		return model.Scope{}, notFound(err, ErrTaskNotFound)
	}
	return scope, nil
}
