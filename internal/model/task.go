package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Task struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ColumnID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Title       string    `gorm:"not null"`
	Description string
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid"`
	Priority    Priority   `gorm:"type:varchar(10);not null;default:medium"`
	DueDate     *time.Time
	IsComplete  bool `gorm:"not null;default:false"`
	Position    int  `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Column   Column  `gorm:"foreignKey:ColumnID;constraint:OnDelete:CASCADE"`
	Creator  *User   `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL"`
	Assignee *User   `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL"`
	Labels   []Label `gorm:"many2many:task_labels"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}

// TaskLabel is the task_labels join row. It is registered with
// SetupJoinTable so both foreign keys cascade.
type TaskLabel struct {
	TaskID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	LabelID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	Task  Task  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Label Label `gorm:"foreignKey:LabelID;constraint:OnDelete:CASCADE"`
}
