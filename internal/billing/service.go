// Package billing bridges the service to Stripe Checkout and reconciles
// subscription state from signed webhook events.
package billing

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "tubescript/internal/common/errors"
	"tubescript/internal/common/logger"
	"tubescript/internal/common/metrics"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

type Service struct {
	config *Config
	stripe *client.API
	store  *Store
	email  *EmailSender
	logger logger.Logger
}

func NewService(config *Config, store *Store, email *EmailSender, log logger.Logger) *Service {
	sc := &client.API{}
	sc.Init(config.SecretKey, nil)

	return &Service{
		config: config,
		stripe: sc,
		store:  store,
		email:  email,
		logger: log.WithFields(map[string]interface{}{"component": "billing"}),
	}
}

// CreateCheckoutSession creates a subscription-mode Checkout session for the
// user, creating and persisting a Stripe customer first when none exists.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, error) {
	if priceID == "" {
		priceID = s.config.PriceID
	}
	if priceID == "" {
		return "", apperrors.NewValidationError("priceId", "price ID is required")
	}

	email, customerID, err := s.store.UserBillingInfo(ctx, userID)
	if err != nil {
		return "", apperrors.NewCheckoutFailedError(err)
	}

	if customerID == "" {
		cust, err := s.stripe.Customers.New(&stripe.CustomerParams{
			Email: stripe.String(email),
			Params: stripe.Params{
				Metadata: map[string]string{"userId": userID},
			},
		})
		if err != nil {
			return "", apperrors.NewCheckoutFailedError(err)
		}
		customerID = cust.ID
		if err := s.store.SaveCustomerID(ctx, userID, customerID); err != nil {
			return "", apperrors.NewCheckoutFailedError(err)
		}
	}

	sess, err := s.stripe.CheckoutSessions.New(&stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(s.config.BaseURL + "/?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.config.BaseURL + "/"),
		Params: stripe.Params{
			Metadata: map[string]string{"userId": userID},
		},
	})
	if err != nil {
		return "", apperrors.NewCheckoutFailedError(err)
	}

	s.logger.Info("checkout session created", map[string]interface{}{
		"userId":    userID,
		"sessionId": sess.ID,
	})

	return sess.ID, nil
}

// HandleWebhook verifies the event signature against the configured secret
// and applies the subscription state transition. A signature failure rejects
// the event with no state mutation.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	// Dashboard-configured endpoints deliver events pinned to the account's
	// API version, which rarely matches the SDK's. Signature still verifies.
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		return apperrors.NewWebhookVerificationError(err)
	}

	var handleErr error
	switch event.Type {
	case "checkout.session.completed":
		handleErr = s.handleCheckoutCompleted(ctx, event)
	case "invoice.payment_succeeded":
		handleErr = s.handleInvoicePaid(ctx, event)
	case "customer.subscription.deleted":
		handleErr = s.handleSubscriptionDeleted(ctx, event)
	default:
		// Acknowledged and ignored.
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "ignored").Inc()
		return nil
	}

	if handleErr != nil {
		metrics.WebhookEvents.WithLabelValues(string(event.Type), "failed").Inc()
		return apperrors.NewWebhookHandlingError(string(event.Type), handleErr)
	}

	metrics.WebhookEvents.WithLabelValues(string(event.Type), "handled").Inc()
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("unmarshal checkout session: %w", err)
	}

	userID := sess.Metadata["userId"]
	if userID == "" || sess.Subscription == nil {
		return fmt.Errorf("session %s missing userId metadata or subscription", sess.ID)
	}

	sub, err := s.stripe.Subscriptions.Get(sess.Subscription.ID, nil)
	if err != nil {
		return fmt.Errorf("retrieve subscription %s: %w", sess.Subscription.ID, err)
	}

	if err := s.store.Upgrade(ctx, userID, sub.ID, string(sub.Status)); err != nil {
		return err
	}

	s.logger.Info("user upgraded to paid tier", map[string]interface{}{
		"userId":         userID,
		"subscriptionId": sub.ID,
	})

	if s.email != nil {
		email, _, err := s.store.UserBillingInfo(ctx, userID)
		if err == nil && email != "" {
			if err := s.email.SendSubscriptionConfirmation(ctx, email); err != nil {
				// Email is best-effort; the upgrade already happened.
				s.logger.Warn("confirmation email failed", map[string]interface{}{
					"userId": userID,
					"error":  err.Error(),
				})
			}
		}
	}

	return nil
}

func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		return fmt.Errorf("invoice %s has no subscription", invoice.ID)
	}

	sub, err := s.stripe.Subscriptions.Get(invoice.Subscription.ID, nil)
	if err != nil {
		return fmt.Errorf("retrieve subscription %s: %w", invoice.Subscription.ID, err)
	}
	if sub.Customer == nil {
		return fmt.Errorf("subscription %s has no customer", sub.ID)
	}

	return s.store.MarkActiveByCustomer(ctx, sub.Customer.ID)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("unmarshal subscription: %w", err)
	}
	if sub.Customer == nil {
		return fmt.Errorf("subscription %s has no customer", sub.ID)
	}

	if err := s.store.DowngradeByCustomer(ctx, sub.Customer.ID); err != nil {
		return err
	}

	s.logger.Info("subscription canceled, user downgraded", map[string]interface{}{
		"customerId": sub.Customer.ID,
	})

	return nil
}
