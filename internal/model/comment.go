package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Task   Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Author User `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	c.ID = ensureID(c.ID)
	return nil
}
