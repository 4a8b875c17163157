package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/testutil"
)

type cacheFixture struct {
	db      *gorm.DB
	cache   *CachedMemberships
	redis   *miniredis.Miniredis
	fx      *testutil.Fixtures
	project *model.Project
	owner   *model.User
}

func setupRoleCache(t *testing.T) *cacheFixture {
	db := testutil.NewDB(t)
	fx := testutil.NewFixtures(t, db)
	owner := fx.User("owner")
	project := fx.Project(owner)

	s := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + s.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &cacheFixture{
		db:      db,
		cache:   NewCachedMemberships(repository.NewMembershipRepository(db), client, time.Minute),
		redis:   s,
		fx:      fx,
		project: project,
		owner:   owner,
	}
}

func TestRoleOf_ReadThrough(t *testing.T) {
	f := setupRoleCache(t)
	ctx := context.Background()

	role, err := f.cache.RoleOf(ctx, f.project.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)

	key := f.cache.key(f.project.ID, f.owner.ID)
	cached, err := f.redis.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "0:owner", cached)
	assert.Equal(t, time.Minute, f.redis.TTL(key))

	// Served from Redis even if the value there disagrees with the DB.
	require.NoError(t, f.redis.Set(key, "0:member"))
	role, err = f.cache.RoleOf(ctx, f.project.ID, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)
}

func TestRoleOf_CachesMissingRole(t *testing.T) {
	f := setupRoleCache(t)
	stranger := f.fx.User("stranger")

	role, err := f.cache.RoleOf(context.Background(), f.project.ID, stranger.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleNone, role)

	cached, err := f.redis.Get(f.cache.key(f.project.ID, stranger.ID))
	require.NoError(t, err)
	assert.Equal(t, "0:"+noRole, cached)
}

func TestMutationsInvalidate(t *testing.T) {
	f := setupRoleCache(t)
	ctx := context.Background()
	user := f.fx.User("user")
	key := f.cache.key(f.project.ID, user.ID)

	role, err := f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleNone, role)

	membership, err := f.cache.AddMember(ctx, f.project.ID, user.ID, model.RoleMember)
	require.NoError(t, err)
	assert.False(t, f.redis.Exists(key))

	role, err = f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)

	require.NoError(t, f.cache.ChangeRole(ctx, membership, model.RoleAdmin))
	assert.False(t, f.redis.Exists(key))
	role, err = f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, role)

	require.NoError(t, f.cache.RemoveMember(ctx, membership))
	assert.False(t, f.redis.Exists(key))
	role, err = f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleNone, role)
}

func TestRoleOf_IgnoresEntriesFromOlderGeneration(t *testing.T) {
	f := setupRoleCache(t)
	ctx := context.Background()
	user := f.fx.User("user")
	membership := f.fx.Member(f.project, user, model.RoleAdmin)

	role, err := f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, role)

	// Another user's change retires every entry of the project.
	other := f.fx.User("other")
	_, err = f.cache.AddMember(ctx, f.project.ID, other.ID, model.RoleMember)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(membership).Update("role", model.RoleMember).Error)

	role, err = f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, role)

	cached, err := f.redis.Get(f.cache.key(f.project.ID, user.ID))
	require.NoError(t, err)
	assert.Equal(t, "1:member", cached)
}

func TestRoleOf_RemovalDuringReadIsNotCached(t *testing.T) {
	f := setupRoleCache(t)
	ctx := context.Background()
	user := f.fx.User("user")
	membership := f.fx.Member(f.project, user, model.RoleMember)

	// The member is removed right after the cache miss has read the old
	// row from the database, before the role is written to Redis.
	removed := false
	require.NoError(t, f.db.Callback().Query().After("gorm:query").Register("test:remove_member", func(tx *gorm.DB) {
		if removed || tx.Statement.Table != "memberships" {
			return
		}
		removed = true
		_ = tx.AddError(f.cache.RemoveMember(ctx, membership))
	}))
	t.Cleanup(func() { _ = f.db.Callback().Query().Remove("test:remove_member") })

	role, err := f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	require.True(t, removed)
	assert.Equal(t, model.RoleMember, role)
	assert.False(t, f.redis.Exists(f.cache.key(f.project.ID, user.ID)))

	role, err = f.cache.RoleOf(ctx, f.project.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleNone, role)
}

func TestFailedMutationKeepsEntry(t *testing.T) {
	f := setupRoleCache(t)
	ctx := context.Background()

	_, err := f.cache.RoleOf(ctx, f.project.ID, f.owner.ID)
	require.NoError(t, err)

	_, err = f.cache.AddMember(ctx, f.project.ID, f.owner.ID, model.RoleMember)
	assert.ErrorIs(t, err, repository.ErrAlreadyMember)
	assert.True(t, f.redis.Exists(f.cache.key(f.project.ID, f.owner.ID)))
}

func TestForgetProject(t *testing.T) {
	f := setupRoleCache(t)
	ctx := context.Background()
	other := f.fx.Project(f.fx.User("other"))

	_, err := f.cache.RoleOf(ctx, f.project.ID, f.owner.ID)
	require.NoError(t, err)
	_, err = f.cache.RoleOf(ctx, other.ID, f.owner.ID)
	require.NoError(t, err)

	f.cache.ForgetProject(ctx, f.project.ID)

	assert.False(t, f.redis.Exists(f.cache.key(f.project.ID, f.owner.ID)))
	assert.True(t, f.redis.Exists(f.cache.key(other.ID, f.owner.ID)))
}

func TestRoleOf_FallsBackWhenRedisIsDown(t *testing.T) {
	f := setupRoleCache(t)
	f.redis.Close()

	role, err := f.cache.RoleOf(context.Background(), f.project.ID, f.owner.ID)

	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)
}
