// Package quota enforces the free-tier generation limit per identity.
//
// Authenticated usage is canonical in Postgres with a Redis read-through
// cache. Anonymous usage lives only in Redis keyed by a client token and is
// never reconciled with the authenticated records. Check and commit are not
// atomic: a racing duplicate submission can exceed the quota by one.
package quota

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/metrics"
	"tubescript/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	userCachePrefix = "usage:user:"
	anonKeyPrefix   = "usage:anon:"

	// Anonymous counters expire eventually; the client token is
	// regenerated on storage reset anyway.
	anonCounterTTL = 30 * 24 * time.Hour
)

type Gate struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewGate(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Gate {
	return &Gate{
		config: config,
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"component": "quota-gate"}),
	}
}

// CheckAndReserve returns nil when the identity may generate, a
// QuotaExceededError when the free-tier limit is reached, and a
// UsageCheckFailedError when the store cannot be consulted. Must be called
// before any completion provider call.
func (g *Gate) CheckAndReserve(ctx context.Context, identity models.Identity) error {
	if identity.IsAnonymous() {
		return g.checkAnonymous(ctx, identity.AnonToken)
	}
	return g.checkUser(ctx, identity.UserID)
}

// Commit records one successful generation for the identity.
func (g *Gate) Commit(ctx context.Context, identity models.Identity) error {
	if identity.IsAnonymous() {
		if err := g.redis.Incr(ctx, anonKeyPrefix+identity.AnonToken).Err(); err != nil {
			return apperrors.NewUsageCheckFailedError(err)
		}
		g.redis.Expire(ctx, anonKeyPrefix+identity.AnonToken, anonCounterTTL)
		return nil
	}

	query := `UPDATE users SET scripts_generated = scripts_generated + 1, updated_at = NOW() WHERE user_id = $1`
	if _, err := g.db.ExecContext(ctx, query, identity.UserID); err != nil {
		return apperrors.NewUsageCheckFailedError(err)
	}

	// Drop the cached record so the next check sees the new count.
	g.redis.Del(ctx, userCachePrefix+identity.UserID)

	return nil
}

// GetUser returns the usage record for an authenticated identity, creating a
// default { free, 0 } record on first sight.
func (g *Gate) GetUser(ctx context.Context, userID string) (*models.User, error) {
	cacheKey := userCachePrefix + userID
	if val, err := g.redis.Get(ctx, cacheKey).Result(); err == nil {
		var user models.User
		if err := json.Unmarshal([]byte(val), &user); err == nil {
			return &user, nil
		}
	}

	user, err := g.fetchUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := g.createDefaultUser(ctx, userID); err != nil {
			return nil, err
		}
		user, err = g.fetchUser(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("load usage record: %w", err)
	}

	if data, err := json.Marshal(user); err == nil {
		g.redis.Set(ctx, cacheKey, data, g.config.CacheTTL)
	}

	return user, nil
}

func (g *Gate) checkUser(ctx context.Context, userID string) error {
	user, err := g.GetUser(ctx, userID)
	if err != nil {
		return apperrors.NewUsageCheckFailedError(err)
	}

	if user.IsPaid() {
		return nil
	}

	if user.ScriptsGenerated >= g.config.FreeTierLimit {
		metrics.QuotaRejections.Inc()
		return apperrors.NewQuotaExceededError(userID, g.config.FreeTierLimit)
	}

	return nil
}

func (g *Gate) checkAnonymous(ctx context.Context, token string) error {
	count, err := g.redis.Get(ctx, anonKeyPrefix+token).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return apperrors.NewUsageCheckFailedError(err)
	}

	if count >= g.config.FreeTierLimit {
		metrics.QuotaRejections.Inc()
		return apperrors.NewQuotaExceededError("anonymous", g.config.FreeTierLimit)
	}

	return nil
}

func (g *Gate) fetchUser(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT user_id, COALESCE(email, ''), subscription_tier, scripts_generated,
		       COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''),
		       COALESCE(stripe_subscription_status, ''), created_at, updated_at
		FROM users WHERE user_id = $1`

	var user models.User
	err := g.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.Email, &user.SubscriptionTier, &user.ScriptsGenerated,
		&user.StripeCustomerID, &user.StripeSubscriptionID,
		&user.StripeSubscriptionStatus, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (g *Gate) createDefaultUser(ctx context.Context, userID string) error {
	query := `
		INSERT INTO users (user_id, subscription_tier, scripts_generated, created_at, updated_at)
		VALUES ($1, 'free', 0, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := g.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("create default usage record: %w", err)
	}

	g.logger.Info("created default usage record", map[string]interface{}{"userId": userID})
	return nil
}
