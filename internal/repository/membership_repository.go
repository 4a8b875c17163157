package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskboard/internal/model"
)

// MembershipRepository is the membership registry: it answers which role
// a user holds in a project and manages membership rows.
type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// RoleOf returns the user's role in the project, or model.RoleNone. An
// unknown project yields RoleNone.
func (r *MembershipRepository) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.Role, error) {
	if projectID == uuid.Nil || userID == uuid.Nil {
		return model.RoleNone, nil
	}

	var membership model.Membership
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&membership).Error
	if err == nil {
		return membership.Role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RoleNone, err
	}

	// The owner row is written with the project, so this only matters
	// for rows created outside ProjectRepository.Create.
	var owned int64
	err = r.db.WithContext(ctx).Model(&model.Project{}).
		Where("id = ? AND owner_id = ?", projectID, userID).
		Count(&owned).Error
	if err != nil {
		return model.RoleNone, err
	}
	if owned > 0 {
		return model.RoleOwner, nil
	}
	return model.RoleNone, nil
}

// ListMembers returns the project's memberships ordered by join time.
func (r *MembershipRepository) ListMembers(ctx context.Context, projectID uuid.UUID) ([]model.Membership, error) {
	var members []model.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&members).Error
	return members, err
}

func (r *MembershipRepository) GetByID(ctx context.Context, projectID, membershipID uuid.UUID) (*model.Membership, error) {
	var membership model.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND project_id = ?", membershipID, projectID).
		First(&membership).Error
	if err != nil {
		return nil, notFound(err, ErrMembershipNotFound)
	}
	return &membership, nil
}

// AddMember grants role to the user. The owner role is only ever created
// together with its project.
func (r *MembershipRepository) AddMember(ctx context.Context, projectID, userID uuid.UUID, role model.Role) (*model.Membership, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if role == model.RoleOwner {
		return nil, ErrOwnerRoleGrant
	}

	membership := &model.Membership{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := forUpdate(tx).Select("id", "owner_id").Where("id = ?", projectID).First(&project).Error; err != nil {
			return notFound(err, ErrProjectNotFound)
		}
		if project.OwnerID == userID {
			return ErrAlreadyMember
		}

		var existing int64
		if err := tx.Model(&model.Membership{}).
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		if err := tx.Create(membership).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// ChangeRole updates a membership's role. The owner's row is immutable
// and no second owner can be created.
func (r *MembershipRepository) ChangeRole(ctx context.Context, membership *model.Membership, role model.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Select("id", "owner_id").Where("id = ?", membership.ProjectID).First(&project).Error; err != nil {
			return notFound(err, ErrProjectNotFound)
		}

		isOwner := membership.UserID == project.OwnerID
		switch {
		case isOwner && role != model.RoleOwner:
			return ErrOwnerRoleImmutable
		case !isOwner && role == model.RoleOwner:
			return ErrOwnerRoleGrant
		case isOwner:
			return nil
		}

		result := tx.Model(&model.Membership{}).
			Where("id = ? AND project_id = ?", membership.ID, membership.ProjectID).
			Update("role", role)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMembershipNotFound
		}
		membership.Role = role
		return nil
	})
}

// RemoveMember deletes a membership. The owner's row cannot be removed.
func (r *MembershipRepository) RemoveMember(ctx context.Context, membership *model.Membership) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project model.Project
		if err := tx.Select("id", "owner_id").Where("id = ?", membership.ProjectID).First(&project).Error; err != nil {
			return notFound(err, ErrProjectNotFound)
		}
		if membership.UserID == project.OwnerID {
			return ErrOwnerNotRemovable
		}

		result := tx.Where("id = ? AND project_id = ?", membership.ID, membership.ProjectID).Delete(&model.Membership{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMembershipNotFound
		}
		return nil
	})
}
