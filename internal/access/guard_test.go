package access_test

import (
	"context"
	"errors"
	"testing"

	"taskboard/internal/access"
	"taskboard/internal/apperror"
	"taskboard/internal/model"
	"taskboard/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockRoleLookup struct {
	mock.Mock
}

func (m *MockRoleLookup) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.Role, error) {
	args := m.Called(ctx, projectID, userID)
	return args.Get(0).(model.Role), args.Error(1)
}

type MockScopeResolver struct {
	mock.Mock
}

func (m *MockScopeResolver) BoardScope(ctx context.Context, boardID uuid.UUID) (model.Scope, error) {
	args := m.Called(ctx, boardID)
	return args.Get(0).(model.Scope), args.Error(1)
}

func (m *MockScopeResolver) ColumnScope(ctx context.Context, columnID uuid.UUID) (model.Scope, error) {
	args := m.Called(ctx, columnID)
	return args.Get(0).(model.Scope), args.Error(1)
}

func (m *MockScopeResolver) TaskScope(ctx context.Context, taskID uuid.UUID) (model.Scope, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(model.Scope), args.Error(1)
}

func TestAllows(t *testing.T) {
	cases := []struct {
		role       model.Role
		capability access.Capability
		allow      bool
	}{
		{model.RoleOwner, access.CapabilityOwner, true},
		{model.RoleOwner, access.CapabilityAdmin, true},
		{model.RoleOwner, access.CapabilityMember, true},
		{model.RoleAdmin, access.CapabilityOwner, false},
		{model.RoleAdmin, access.CapabilityAdmin, true},
		{model.RoleAdmin, access.CapabilityMember, true},
		{model.RoleMember, access.CapabilityOwner, false},
		{model.RoleMember, access.CapabilityAdmin, false},
		{model.RoleMember, access.CapabilityMember, true},
		{model.RoleNone, access.CapabilityMember, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+string(tc.capability), func(t *testing.T) {
			assert.Equal(t, tc.allow, access.Allows(tc.role, tc.capability))
		})
	}
}

func TestGuard_Require(t *testing.T) {
	projectID := uuid.New()
	userID := uuid.New()

	cases := []struct {
		name       string
		role       model.Role
		capability access.Capability
		wantErr    error
	}{
		{name: "member may access", role: model.RoleMember, capability: access.CapabilityMember},
		{name: "member is not admin", role: model.RoleMember, capability: access.CapabilityAdmin, wantErr: access.ErrAdminRequired},
		{name: "admin is not owner", role: model.RoleAdmin, capability: access.CapabilityOwner, wantErr: access.ErrOwnerRequired},
		{name: "owner may do anything", role: model.RoleOwner, capability: access.CapabilityOwner},
		{name: "stranger sees nothing", role: model.RoleNone, capability: access.CapabilityMember, wantErr: repository.ErrProjectNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roles := new(MockRoleLookup)
			roles.On("RoleOf", mock.Anything, projectID, userID).Return(tc.role, nil)
			guard := access.NewGuard(roles, new(MockScopeResolver))

			role, err := guard.Require(context.Background(), userID, projectID, tc.capability)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.role, role)
			}
			roles.AssertExpectations(t)
		})
	}
}

func TestGuard_RequireAuthenticated(t *testing.T) {
	guard := access.NewGuard(new(MockRoleLookup), new(MockScopeResolver))

	_, err := guard.RequireProjectAccess(context.Background(), uuid.Nil, uuid.New())

	assert.ErrorIs(t, err, access.ErrUnauthenticated)
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestGuard_RoleLookupFailure(t *testing.T) {
	roles := new(MockRoleLookup)
	roles.On("RoleOf", mock.Anything, mock.Anything, mock.Anything).Return(model.RoleNone, errors.New("connection reset"))
	guard := access.NewGuard(roles, new(MockScopeResolver))

	_, err := guard.RequireProjectAccess(context.Background(), uuid.New(), uuid.New())

	assert.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}

func TestGuard_ForTask_HidesFromStrangers(t *testing.T) {
	userID := uuid.New()
	scope := model.Scope{ProjectID: uuid.New(), BoardID: uuid.New(), ColumnID: uuid.New(), TaskID: uuid.New()}

	roles := new(MockRoleLookup)
	roles.On("RoleOf", mock.Anything, scope.ProjectID, userID).Return(model.RoleNone, nil)
	scopes := new(MockScopeResolver)
	scopes.On("TaskScope", mock.Anything, scope.TaskID).Return(scope, nil)
	guard := access.NewGuard(roles, scopes)

	_, err := guard.ForTask(context.Background(), userID, scope.TaskID, access.CapabilityMember)

	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestGuard_ForColumn_ReturnsScope(t *testing.T) {
	userID := uuid.New()
	scope := model.Scope{ProjectID: uuid.New(), BoardID: uuid.New(), ColumnID: uuid.New()}

	roles := new(MockRoleLookup)
	roles.On("RoleOf", mock.Anything, scope.ProjectID, userID).Return(model.RoleMember, nil)
	scopes := new(MockScopeResolver)
	scopes.On("ColumnScope", mock.Anything, scope.ColumnID).Return(scope, nil)
	guard := access.NewGuard(roles, scopes)

	got, err := guard.ForColumn(context.Background(), userID, scope.ColumnID, access.CapabilityMember)

	assert.NoError(t, err)
	assert.Equal(t, scope, got)
}

func TestGuard_ForBoard_UnknownBoard(t *testing.T) {
	boardID := uuid.New()
	scopes := new(MockScopeResolver)
	scopes.On("BoardScope", mock.Anything, boardID).Return(model.Scope{}, repository.ErrBoardNotFound)
	roles := new(MockRoleLookup)
	guard := access.NewGuard(roles, scopes)

	_, err := guard.ForBoard(context.Background(), uuid.New(), boardID, access.CapabilityMember)

	assert.ErrorIs(t, err, repository.ErrBoardNotFound)
	roles.AssertNotCalled(t, "RoleOf", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequireAuthor(t *testing.T) {
	author := uuid.New()

	assert.NoError(t, access.RequireAuthor(author, author))
	assert.ErrorIs(t, access.RequireAuthor(uuid.New(), author), access.ErrAuthorRequired)
	assert.ErrorIs(t, access.RequireAuthor(uuid.Nil, author), access.ErrUnauthenticated)
}
