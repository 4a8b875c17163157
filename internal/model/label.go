package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Label is a tag scoped to one project.
type Label struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_labels_project_name"`
	Name      string    `gorm:"not null;uniqueIndex:idx_labels_project_name"`
	Color     string    `gorm:"not null"`
	CreatedAt time.Time

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (l *Label) BeforeCreate(*gorm.DB) error {
	l.ID = ensureID(l.ID)
	return nil
}
