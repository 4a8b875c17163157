package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Column struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	BoardID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"not null"`
	Position int       `gorm:"not null;default:0"`

	Board Board `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

func (c *Column) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}
