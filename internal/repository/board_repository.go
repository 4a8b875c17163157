package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

type BoardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) *BoardRepository {
	return &BoardRepository{db: db}
}

// Create inserts the project's board. A project has at most one.
func (r *BoardRepository) Create(ctx context.Context, board *model.Board) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := forUpdate(tx).Select("id").Where("id = ?", board.ProjectID).First(&project).Error; err != nil {
			return notFound(err, ErrProjectNotFound)
		}

		var existing int64
		if err := tx.Model(&model.Board{}).Where("project_id = ?", board.ProjectID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrBoardExists
		}

		if err := tx.Omit("Project").Create(board).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrBoardExists
			}
			return err
		}
		return nil
	})
}

func (r *BoardRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&board).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	return &board, nil
}

func (r *BoardRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) (*model.Board, error) {
	var board model.Board
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&board).Error; err != nil {
		return nil, notFound(err, ErrBoardNotFound)
	}
	return &board, nil
}

// ListVisible returns boards of every project the user can access.
func (r *BoardRepository) ListVisible(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	var boards []model.Board
	err := r.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = boards.project_id").
		Scopes(visibleTo(userID)).
		Order("boards.created_at ASC").
		Order("boards.id ASC").
		Find(&boards).Error
	return boards, err
}

func (r *BoardRepository) Update(ctx context.Context, board *model.Board) error {
	result := r.db.WithContext(ctx).Model(board).
		Select("name", "description", "is_default").
		Updates(board)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func (r *BoardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Board{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}
