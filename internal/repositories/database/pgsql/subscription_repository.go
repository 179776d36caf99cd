package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openclaw/billing/internal/apperrors"
	"github.com/openclaw/billing/internal/core/domain"
	portsrepo "github.com/openclaw/billing/internal/core/ports/repositories"
	"github.com/openclaw/billing/internal/models"
	"github.com/openclaw/billing/internal/utils/mapping"
)

type PgxSubscriptionRepository struct {
	BaseRepository
}

// newPgxSubscriptionRepository creates a new repository for subscription data.
func newPgxSubscriptionRepository(pool PgxPool) portsrepo.SubscriptionRepository {
	return &PgxSubscriptionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.SubscriptionRepository = (*PgxSubscriptionRepository)(nil)

const subscriptionColumns = `subscription_id, account_id, stripe_subscription_id, stripe_customer_id, tier, status, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var m models.Subscription
	err := row.Scan(
		&m.SubscriptionID,
		&m.AccountID,
		&m.StripeSubscriptionID,
		&m.StripeCustomerID,
		&m.Tier,
		&m.Status,
		&m.CurrentPeriodStart,
		&m.CurrentPeriodEnd,
		&m.CancelAtPeriodEnd,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan subscription row: %w", err)
	}
	sub := mapping.ToDomainSubscription(m)
	return &sub, nil
}

// FindByStripeID retrieves a subscription by the provider's subscription id.
func (r *PgxSubscriptionRepository) FindByStripeID(ctx context.Context, stripeSubscriptionID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1;`
	return scanSubscription(r.Pool.QueryRow(ctx, query, stripeSubscriptionID))
}

// FindByAccountID retrieves the subscription for an account. An account that
// canceled and re-subscribed has one row per provider subscription; the most
// recently updated row is the current one.
func (r *PgxSubscriptionRepository) FindByAccountID(ctx context.Context, accountID string) (*domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE account_id = $1 ORDER BY updated_at DESC LIMIT 1;`
	return scanSubscription(r.Pool.QueryRow(ctx, query, accountID))
}

// Upsert inserts or updates the subscription keyed by the provider's
// subscription id.
func (r *PgxSubscriptionRepository) Upsert(ctx context.Context, sub domain.Subscription) error {
	m := mapping.ToModelSubscription(sub)
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (stripe_subscription_id) DO UPDATE
		SET tier = EXCLUDED.tier,
		    status = EXCLUDED.status,
		    current_period_start = EXCLUDED.current_period_start,
		    current_period_end = EXCLUDED.current_period_end,
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		    updated_at = EXCLUDED.updated_at;
	`
	_, err := r.Pool.Exec(ctx, query,
		m.SubscriptionID,
		m.AccountID,
		m.StripeSubscriptionID,
		m.StripeCustomerID,
		m.Tier,
		m.Status,
		m.CurrentPeriodStart,
		m.CurrentPeriodEnd,
		m.CancelAtPeriodEnd,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription %s: %w", m.StripeSubscriptionID, err)
	}
	return nil
}
