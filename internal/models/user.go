package models

import "time"

// SubscriptionTier is the billing tier gating generation quota.
type SubscriptionTier string

const (
	TierFree SubscriptionTier = "free"
	TierPaid SubscriptionTier = "paid"
)

// SubscriptionStatus mirrors the Stripe subscription lifecycle states the
// webhook handler cares about.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// User is an authenticated identity with its usage counter and billing
// linkage. Created with { free, 0 } on first sight.
type User struct {
	UserID                   string             `json:"userId"`
	Email                    string             `json:"email"`
	SubscriptionTier         SubscriptionTier   `json:"subscriptionTier"`
	ScriptsGenerated         int                `json:"scriptsGenerated"`
	StripeCustomerID         string             `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID     string             `json:"stripeSubscriptionId,omitempty"`
	StripeSubscriptionStatus SubscriptionStatus `json:"stripeSubscriptionStatus,omitempty"`
	CreatedAt                time.Time          `json:"createdAt"`
	UpdatedAt                time.Time          `json:"updatedAt"`
}

// IsPaid reports whether the user bypasses the free-tier quota.
func (u *User) IsPaid() bool {
	return u.SubscriptionTier == TierPaid
}
