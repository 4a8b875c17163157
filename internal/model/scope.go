package model

import "github.com/google/uuid"

// Scope locates an entity in the hierarchy. Fields below the entity's own
// level are zero.
type Scope struct {
	ProjectID uuid.UUID
	BoardID   uuid.UUID
	ColumnID  uuid.UUID
	TaskID    uuid.UUID
}
