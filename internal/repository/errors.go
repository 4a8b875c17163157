package repository

import (
	"errors"
	"strings"

	"taskboard/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Common repository errors
var (
	ErrUserNotFound       = apperror.NotFound("user not found")
	ErrProjectNotFound    = apperror.NotFound("project not found")
	ErrMembershipNotFound = apperror.NotFound("membership not found")
	ErrBoardNotFound      = apperror.NotFound("board not found")
	ErrColumnNotFound     = apperror.NotFound("column not found")
	ErrTaskNotFound       = apperror.NotFound("task not found")
	ErrCommentNotFound    = apperror.NotFound("comment not found")
	ErrLabelNotFound      = apperror.NotFound("label not found")

	ErrAlreadyMember      = apperror.Conflict("user is already a member of this project")
	ErrBoardExists        = apperror.Conflict("project already has a board")
	ErrConcurrentMove     = apperror.Conflict("task is being moved concurrently, try again")
	ErrLabelExists        = apperror.Conflict("label with this name already exists in the project")
	ErrUserExists         = apperror.Conflict("user with this email or username already exists")
	ErrOwnerRoleImmutable = apperror.Forbidden("the project owner's role cannot be changed")
	ErrOwnerNotRemovable  = apperror.Forbidden("the project owner cannot be removed")
	ErrOwnerRoleGrant     = apperror.Validation("the owner role cannot be granted")
	ErrInvalidRole        = apperror.Validation("role must be one of owner, admin, member")

	ErrEmptyReorder     = apperror.Validation("ids must be a non-empty list")
	ErrDuplicateReorder = apperror.Validation("duplicate id in reorder list")
	ErrReorderMismatch  = apperror.Validation("some ids not found or not belonging to this container")

	ErrLabelOutsideProject = apperror.Validation("label does not belong to this project")
	ErrAssigneeNotMember   = apperror.Validation("assignee is not a member of this project")
	ErrColumnOutsideBoard  = apperror.Validation("target column belongs to a different board")
)

// notFound maps gorm.ErrRecordNotFound to the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// isUniqueViolation reports whether err is a unique-constraint failure
// from postgres (SQLSTATE 23505) or sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
