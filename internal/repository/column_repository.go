package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

type ColumnRepository struct {
	db *gorm.DB
}

func NewColumnRepository(db *gorm.DB) *ColumnRepository {
	return &ColumnRepository{db: db}
}

// Create appends the column after the board's last column. The board row
// is locked so concurrent creates and reorders cannot collide.
func (r *ColumnRepository) Create(ctx context.Context, column *model.Column) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board model.Board
		if err := forUpdate(tx).Select("id").Where("id = ?", column.BoardID).First(&board).Error; err != nil {
			return notFound(err, ErrBoardNotFound)
		}

		position, err := nextPosition(tx, &model.Column{}, "board_id = ?", column.BoardID)
		if err != nil {
			return err
		}
		column.Position = position

		return tx.Omit("Board").Create(column).Error
	})
}

func (r *ColumnRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Column, error) {
	var column model.Column
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&column).Error; err != nil {
		return nil, notFound(err, ErrColumnNotFound)
	}
	return &column, nil
}

// GetByBoardID lists a board's columns in display order.
func (r *ColumnRepository) GetByBoardID(ctx context.Context, boardID uuid.UUID) ([]model.Column, error) {
	var columns []model.Column
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC").
		Order("id ASC").
		Find(&columns).Error
	return columns, err
}

// ListVisible returns columns on boards the user can access, optionally
// limited to one board.
func (r *ColumnRepository) ListVisible(ctx context.Context, userID uuid.UUID, boardID *uuid.UUID) ([]model.Column, error) {
	query := r.db.WithContext(ctx).
		Joins("JOIN boards ON boards.id = columns.board_id").
		Joins("JOIN projects ON projects.id = boards.project_id").
		Scopes(visibleTo(userID))
	if boardID != nil {
		query = query.Where("columns.board_id = ?", *boardID)
	}

	var columns []model.Column
	err := query.
		Order("columns.board_id ASC").
		Order("columns.position ASC").
		Order("columns.id ASC").
		Find(&columns).Error
	return columns, err
}

// Update renames the column. Position is owned by ReorderRepository.
func (r *ColumnRepository) Update(ctx context.Context, column *model.Column) error {
	result := r.db.WithContext(ctx).Model(column).Update("name", column.Name)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrColumnNotFound
	}
	return nil
}

// Delete removes the column (cascading to its tasks) and closes the gap
// it leaves in the board's ordering.
func (r *ColumnRepository) Delete(ctx context.Context, column *model.Column) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board model.Board
		if err := forUpdate(tx).Select("id").Where("id = ?", column.BoardID).First(&board).Error; err != nil {
			return notFound(err, ErrBoardNotFound)
		}

		result := tx.Delete(&model.Column{}, "id = ?", column.ID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrColumnNotFound
		}

		return compactPositions(tx, &model.Column{}, "board_id = ?", column.BoardID)
	})
}
