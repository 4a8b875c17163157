// Package access implements project-scoped authorization.
//
// Every check reduces to one question: does the caller's role in the
// owning project grant the required capability. Callers without any role
// are told the target does not exist; callers with an insufficient role
// are told they are forbidden.
package access

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

type Capability string

const (
	CapabilityMember Capability = "member"
	CapabilityAdmin  Capability = "admin"
	CapabilityOwner  Capability = "owner"
)

var (
	ErrUnauthenticated = apperror.Unauthenticated("authentication required")
	ErrAdminRequired   = apperror.Forbidden("only the project owner or an admin can perform this action")
	ErrOwnerRequired   = apperror.Forbidden("only the project owner can perform this action")
	ErrAuthorRequired  = apperror.Forbidden("only the author can modify this comment")
)

// Allows reports whether role grants capability.
func Allows(role model.Role, capability Capability) bool {
	switch role {
	case model.RoleOwner:
		return true
	case model.RoleAdmin:
		return capability == CapabilityMember || capability == CapabilityAdmin
	case model.RoleMember:
		return capability == CapabilityMember
	default:
		return false
	}
}

type RoleLookup interface {
	RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.Role, error)
}

type ScopeResolver interface {
	BoardScope(ctx context.Context, boardID uuid.UUID) (model.Scope, error)
	ColumnScope(ctx context.Context, columnID uuid.UUID) (model.Scope, error)
	TaskScope(ctx context.Context, taskID uuid.UUID) (model.Scope, error)
}

type Guard struct {
	roles  RoleLookup
	scopes ScopeResolver
}

func NewGuard(roles RoleLookup, scopes ScopeResolver) *Guard {
	return &Guard{roles: roles, scopes: scopes}
}

func (g *Guard) RequireAuthenticated(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthenticated
	}
	return nil
}

// require checks capability on the project. hidden is returned when the
// caller has no role at all.
func (g *Guard) require(ctx context.Context, userID, projectID uuid.UUID, capability Capability, hidden error) (model.Role, error) {
	if err := g.RequireAuthenticated(userID); err != nil {
		return model.RoleNone, err
	}

	role, err := g.roles.RoleOf(ctx, projectID, userID)
	if err != nil {
		return model.RoleNone, fmt.Errorf("resolve role: %w", err)
	}
	if role == model.RoleNone {
		return model.RoleNone, hidden
	}
	if !Allows(role, capability) {
		switch capability {
		case CapabilityOwner:
			return role, ErrOwnerRequired
		default:
			return role, ErrAdminRequired
		}
	}
	return role, nil
}

func (g *Guard) Require(ctx context.Context, userID, projectID uuid.UUID, capability Capability) (model.Role, error) {
	return g.require(ctx, userID, projectID, capability, repository.ErrProjectNotFound)
}

func (g *Guard) RequireProjectAccess(ctx context.Context, userID, projectID uuid.UUID) (model.Role, error) {
	return g.Require(ctx, userID, projectID, CapabilityMember)
}

func (g *Guard) RequireProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (model.Role, error) {
	return g.Require(ctx, userID, projectID, CapabilityAdmin)
}

func (g *Guard) RequireProjectOwner(ctx context.Context, userID, projectID uuid.UUID) (model.Role, error) {
	return g.Require(ctx, userID, projectID, CapabilityOwner)
}

// ForBoard resolves the board's project and checks capability there.
func (g *Guard) ForBoard(ctx context.Context, userID, boardID uuid.UUID, capability Capability) (model.Scope, error) {
	if err := g.RequireAuthenticated(userID); err != nil {
		return model.Scope{}, err
	}
	scope, err := g.scopes.BoardScope(ctx, boardID)
	if err != nil {
		return model.Scope{}, err
	}
	if _, err := g.require(ctx, userID, scope.ProjectID, capability, repository.ErrBoardNotFound); err != nil {
		return model.Scope{}, err
	}
	return scope, nil
}

func (g *Guard) ForColumn(ctx context.Context, userID, columnID uuid.UUID, capability Capability) (model.Scope, error) {
	if err := g.RequireAuthenticated(userID); err != nil {
		return model.Scope{}, err
	}
	scope, err := g.scopes.ColumnScope(ctx, columnID)
	if err != nil {
		return model.Scope{}, err
	}
	if _, err := g.require(ctx, userID, scope.ProjectID, capability, repository.ErrColumnNotFound); err != nil {
		return model.Scope{}, err
	}
	return scope, nil
}

func (g *Guard) ForTask(ctx context.Context, userID, taskID uuid.UUID, capability Capability) (model.Scope, error) {
	if err := g.RequireAuthenticated(userID); err != nil {
		return model.Scope{}, err
	}
	scope, err := g.scopes.TaskScope(ctx, taskID)
	if err != nil {
		return model.Scope{}, err
	}
	if _, err := g.require(ctx, userID, scope.ProjectID, capability, repository.ErrTaskNotFound); err != nil {
		return model.Scope{}, err
	}
	return scope, nil
}

// RequireAuthor allows only the author. Project owners and admins get no
// override.
func RequireAuthor(userID, authorID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUnauthenticated
	}
	if userID != authorID {
		return ErrAuthorRequired
	}
	return nil
}
