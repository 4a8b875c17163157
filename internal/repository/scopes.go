package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/model"
)

// visibleTo restricts a query that has "projects" in scope to projects
// the user owns or holds a membership in. It is the read-side twin of
// MembershipRepository.RoleOf and must select exactly the projects for
// which RoleOf is not RoleNone.
func visibleTo(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		memberOf := db.Session(&gorm.Session{NewDB: true}).
			Model(&model.Membership{}).
			Select("project_id").
			Where("user_id = ?", userID)
		return db.Where("projects.owner_id = ? OR projects.id IN (?)", userID, memberOf)
	}
}

// forUpdate takes row locks on the selected rows until the transaction
// ends. Dialects without row locking (sqlite) drop the clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// nextPosition returns max(position)+1 of the rows matching where, or 0
// for an empty container. Call inside the transaction that inserts.
func nextPosition(tx *gorm.DB, table interface{}, where string, parentID uuid.UUID) (int, error) {
	var result struct {
		Next int
	}
	err := tx.Model(table).
		Select("COALESCE(MAX(position) + 1, 0) AS next").
		Where(where, parentID).
		Scan(&result).Error
	return result.Next, err
}
