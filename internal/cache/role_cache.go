// Package cache holds a Redis read-through cache for project roles.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// noRole is stored for users without a role so misses are cached too.
const noRole = "-"

var errGenerationMoved = errors.New("role generation moved")

// CachedMemberships wraps the membership registry. RoleOf is served from
// Redis when possible; every mutation bumps the project's generation after
// the database write succeeds, which retires all of its cached entries.
type CachedMemberships struct {
	*repository.MembershipRepository
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedMemberships(repo *repository.MembershipRepository, client *redis.Client, ttl time.Duration) *CachedMemberships {
	return &CachedMemberships{
		MembershipRepository: repo,
		client:               client,
		ttl:                  ttl,
		prefix:               "role:",
	}
}

// NewRedisClient connects and pings, like the session store does.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func (c *CachedMemberships) key(projectID, userID uuid.UUID) string {
	return c.prefix + projectID.String() + ":" + userID.String()
}

// generationKey counts invalidations of a project's roles. Entries carry
// the generation they were read under and are ignored once it moves on.
func (c *CachedMemberships) generationKey(projectID uuid.UUID) string {
	return c.prefix + "gen:" + projectID.String()
}

// RoleOf consults Redis first. Redis failures fall back to the database.
func (c *CachedMemberships) RoleOf(ctx context.Context, projectID, userID uuid.UUID) (model.Role, error) {
	key := c.key(projectID, userID)
	logger := zerolog.Ctx(ctx)

	generation, cached, err := c.lookup(ctx, projectID, key)
	switch {
	case err != nil:
		logger.Warn().Err(err).Str("key", key).Msg("role cache read failed")
	case cached != nil:
		return *cached, nil
	}

	role, err := c.MembershipRepository.RoleOf(ctx, projectID, userID)
	if err != nil {
		return model.RoleNone, err
	}

	if generation != "" {
		c.store(ctx, projectID, key, generation, role)
	}
	return role, nil
}

// lookup returns the project's current generation and the cached role,
// if an entry of that generation exists.
func (c *CachedMemberships) lookup(ctx context.Context, projectID uuid.UUID, key string) (string, *model.Role, error) {
	values, err := c.client.MGet(ctx, c.generationKey(projectID), key).Result()
	if err != nil {
		return "", nil, err
	}

	generation := "0"
	if value, ok := values[0].(string); ok {
		generation = value
	}
	entry, ok := values[1].(string)
	if !ok {
		return generation, nil, nil
	}

	entryGeneration, value, found := strings.Cut(entry, ":")
	if !found || entryGeneration != generation {
		return generation, nil, nil
	}
	role := model.Role(value)
	if value == noRole {
		role = model.RoleNone
	}
	return generation, &role, nil
}

// store writes the role only if no invalidation happened since
// generation was read. A membership change that commits while the
// database read is in flight bumps the generation, and the WATCH makes
// the write fail instead of caching the old role.
func (c *CachedMemberships) store(ctx context.Context, projectID uuid.UUID, key, generation string, role model.Role) {
	value := string(role)
	if role == model.RoleNone {
		value = noRole
	}
	generationKey := c.generationKey(projectID)

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = "0"
		case err != nil:
			return err
		}
		if current != generation {
			return errGenerationMoved
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, generation+":"+value, c.ttl)
			if c.ttl > 0 {
				// Outlive every entry tagged with this generation, so an
				// expired counter never revalidates them.
				pipe.Expire(ctx, generationKey, 2*c.ttl)
			}
			return nil
		})
		return err
	}, generationKey)

	switch {
	case err == nil:
	case errors.Is(err, errGenerationMoved), errors.Is(err, redis.TxFailedErr):
		zerolog.Ctx(ctx).Debug().Str("key", key).Msg("role changed during read, not cached")
	default:
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("role cache write failed")
	}
}

// Forget invalidates every cached role in the project and drops the
// entry of userID.
func (c *CachedMemberships) Forget(ctx context.Context, projectID, userID uuid.UUID) error {
	if err := c.bump(ctx, projectID); err != nil {
		return err
	}
	return c.client.Del(ctx, c.key(projectID, userID)).Err()
}

func (c *CachedMemberships) bump(ctx context.Context, projectID uuid.UUID) error {
	generationKey := c.generationKey(projectID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		if c.ttl > 0 {
			pipe.Expire(ctx, generationKey, 2*c.ttl)
		}
		return nil
	})
	return err
}

func (c *CachedMemberships) AddMember(ctx context.Context, projectID, userID uuid.UUID, role model.Role) (*model.Membership, error) {
	membership, err := c.MembershipRepository.AddMember(ctx, projectID, userID, role)
	if err != nil {
		return nil, err
	}
	c.forget(ctx, projectID, userID)
	return membership, nil
}

func (c *CachedMemberships) ChangeRole(ctx context.Context, membership *model.Membership, role model.Role) error {
	if err := c.MembershipRepository.ChangeRole(ctx, membership, role); err != nil {
		return err
	}
	c.forget(ctx, membership.ProjectID, membership.UserID)
	return nil
}

func (c *CachedMemberships) RemoveMember(ctx context.Context, membership *model.Membership) error {
	if err := c.MembershipRepository.RemoveMember(ctx, membership); err != nil {
		return err
	}
	c.forget(ctx, membership.ProjectID, membership.UserID)
	return nil
}

func (c *CachedMemberships) forget(ctx context.Context, projectID, userID uuid.UUID) {
	if err := c.Forget(ctx, projectID, userID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("project_id", projectID.String()).
			Str("user_id", userID.String()).
			Msg("role cache invalidation failed")
	}
}

// ForgetProject drops every cached role of a deleted project.
func (c *CachedMemberships) ForgetProject(ctx context.Context, projectID uuid.UUID) {
	if err := c.bump(ctx, projectID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("project_id", projectID.String()).Msg("role cache invalidation failed")
	}
	pattern := c.prefix + projectID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("key", iter.Val()).Msg("role cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("project_id", projectID.String()).Msg("role cache scan failed")
	}
}
