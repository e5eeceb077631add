package billing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const userCachePrefix = "usage:user:"

// Store persists subscription state transitions driven by webhook events.
// Every tier change also drops the cached usage record so the quota gate
// sees it immediately.
type Store struct {
	db    *sql.DB
	redis *redis.Client
}

func NewStore(db *sql.DB, rdb *redis.Client) *Store {
	return &Store{db: db, redis: rdb}
}

// UserBillingInfo returns the email and Stripe customer id for a user.
func (s *Store) UserBillingInfo(ctx context.Context, userID string) (email, customerID string, err error) {
	query := `SELECT COALESCE(email, ''), COALESCE(stripe_customer_id, '') FROM users WHERE user_id = $1`
	err = s.db.QueryRowContext(ctx, query, userID).Scan(&email, &customerID)
	if err != nil {
		return "", "", fmt.Errorf("load billing info: %w", err)
	}
	return email, customerID, nil
}

// SaveCustomerID persists a newly created Stripe customer id.
func (s *Store) SaveCustomerID(ctx context.Context, userID, customerID string) error {
	query := `UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID, customerID); err != nil {
		return fmt.Errorf("save customer id: %w", err)
	}
	return nil
}

// Upgrade marks the user as paid with the given subscription.
func (s *Store) Upgrade(ctx context.Context, userID, subscriptionID, status string) error {
	query := `
		UPDATE users
		SET subscription_tier = 'paid', stripe_subscription_id = $2,
		    stripe_subscription_status = $3, updated_at = NOW()
		WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID, subscriptionID, status); err != nil {
		return fmt.Errorf("upgrade user: %w", err)
	}
	s.redis.Del(ctx, userCachePrefix+userID)
	return nil
}

// MarkActiveByCustomer sets the subscription status to active for the user
// owning the Stripe customer id.
func (s *Store) MarkActiveByCustomer(ctx context.Context, customerID string) error {
	userID, err := s.userIDByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	query := `UPDATE users SET stripe_subscription_status = 'active', updated_at = NOW() WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("mark subscription active: %w", err)
	}
	s.redis.Del(ctx, userCachePrefix+userID)
	return nil
}

// DowngradeByCustomer returns the user owning the Stripe customer id to the
// free tier with a canceled status.
func (s *Store) DowngradeByCustomer(ctx context.Context, customerID string) error {
	userID, err := s.userIDByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	query := `
		UPDATE users
		SET subscription_tier = 'free', stripe_subscription_status = 'canceled', updated_at = NOW()
		WHERE user_id = $1`
	if _, err := s.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("downgrade user: %w", err)
	}
	s.redis.Del(ctx, userCachePrefix+userID)
	return nil
}

func (s *Store) userIDByCustomer(ctx context.Context, customerID string) (string, error) {
	var userID string
	query := `SELECT user_id FROM users WHERE stripe_customer_id = $1`
	err := s.db.QueryRowContext(ctx, query, customerID).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no user found for customer %s", customerID)
		}
		return "", fmt.Errorf("lookup user by customer: %w", err)
	}
	return userID, nil
}
