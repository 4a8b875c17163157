package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

type LabelRepository struct {
	db *gorm.DB
}

func NewLabelRepository(db *gorm.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

// Create adds a new label to the project
func (r *LabelRepository) Create(ctx context.Context, label *model.Label) error {
	err := r.db.WithContext(ctx).Omit("Project").Create(label).Error
	if isUniqueViolation(err) {
		return ErrLabelExists
	}
	return err
}

// GetByID retrieves a label by its ID
func (r *LabelRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Label, error) {
	var label model.Label
	if err := r.db.WithContext(ctx).First(&label, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrLabelNotFound)
	}
	return &label, nil
}

// GetByProjectID retrieves all labels for a specific project
func (r *LabelRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]model.Label, error) {
	var labels []model.Label
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&labels).Error
	return labels, err
}

// Update updates an existing label
func (r *LabelRepository) Update(ctx context.Context, label *model.Label) error {
	result := r.db.WithContext(ctx).Model(label).Select("name", "color").Updates(label)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrLabelExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLabelNotFound
	}
	return nil
}

// Delete removes a label by its ID; task associations cascade.
func (r *LabelRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&model.Label{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLabelNotFound
	}
	return nil
}
