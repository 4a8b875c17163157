package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Board struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Name        string    `gorm:"not null"`
	Description string
	IsDefault   bool `gorm:"not null;default:false"`
	CreatedAt   time.Time

	Project Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

func (b *Board) BeforeCreate(*gorm.DB) error {
	b.ID = ensureID(b.ID)
	return nil
}
