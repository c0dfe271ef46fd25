// Package cache provides an optional Redis read-through cache in front of
// the profile store. The store stays authoritative: every write goes to the
// store first and invalidates the cached row, and entitlement-critical reads
// inside transactions never touch the cache.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/logger"
)

type ProfileCache struct {
	inner  profile.Repository
	client *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewProfileCache wraps a profile repository with a Redis cache keyed by
// profile id.
func NewProfileCache(inner profile.Repository, client *redis.Client, ttl time.Duration, log *logger.Logger) *ProfileCache {
	return &ProfileCache{inner: inner, client: client, ttl: ttl, logger: log}
}

func cacheKey(id string) string {
	return "profile:" + id
}

func (c *ProfileCache) invalidate(ctx context.Context, id string) {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.WithError(err).Warn("Failed to invalidate profile cache")
	}
}

// GetByID serves from Redis when possible and falls back to the store on
// any cache miss or error.
func (c *ProfileCache) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	raw, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err == nil {
		var p profile.Profile
		if err := json.Unmarshal(raw, &p); err == nil {
			return &p, nil
		}
	} else if err != redis.Nil {
		c.logger.WithError(err).Warn("Profile cache read failed")
	}

	p, err := c.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, cacheKey(p.ID), raw, c.ttl).Err(); err != nil {
			c.logger.WithError(err).Warn("Profile cache write failed")
		}
	}
	return p, nil
}

// GetByEmail is not cached; it is only used on auth and webhook paths.
func (c *ProfileCache) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	return c.inner.GetByEmail(ctx, email)
}

func (c *ProfileCache) Create(ctx context.Context, p *profile.Profile) error {
	if err := c.inner.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *ProfileCache) Upsert(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	stored, err := c.inner.Upsert(ctx, p)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, p.ID)
	return stored, nil
}

func (c *ProfileCache) SetPlanByID(ctx context.Context, id, plan string) (bool, error) {
	matched, err := c.inner.SetPlanByID(ctx, id, plan)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx, id)
	return matched, nil
}

func (c *ProfileCache) SetPlanByEmail(ctx context.Context, email, plan string) (bool, error) {
	matched, err := c.inner.SetPlanByEmail(ctx, email, plan)
	if err != nil {
		return false, err
	}
	if matched {
		if p, err := c.inner.GetByEmail(ctx, email); err == nil {
			c.invalidate(ctx, p.ID)
		}
	}
	return matched, nil
}

func (c *ProfileCache) ConsumeCounter(ctx context.Context, id string, counter profile.Counter, quota int, today string) (bool, error) {
	allowed, err := c.inner.ConsumeCounter(ctx, id, counter, quota, today)
	if err != nil {
		return false, err
	}
	c.invalidate(ctx, id)
	return allowed, nil
}

func (c *ProfileCache) ResetStale(ctx context.Context, id, today string) error {
	if err := c.inner.ResetStale(ctx, id, today); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}
