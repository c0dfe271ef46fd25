package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"studypilot/backend/internal/config"
	"studypilot/backend/internal/domain/profile"
	apperrors "studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/metrics"
)

// BillingService creates checkout sessions and applies verified billing
// events to profiles. The only plan transition it performs is free to
// premium; subscription cancellations are acknowledged but not acted on.
type BillingService struct {
	stripeCfg config.StripeConfig
	appURL    string
	store     profile.Repository
	logger    *logger.Logger
}

// NewBillingService creates a new billing service and sets the global
// Stripe API key.
func NewBillingService(stripeCfg config.StripeConfig, appURL string, store profile.Repository, log *logger.Logger) *BillingService {
	stripe.Key = stripeCfg.SecretKey
	return &BillingService{
		stripeCfg: stripeCfg,
		appURL:    strings.TrimRight(appURL, "/"),
		store:     store,
		logger:    log,
	}
}

// CreateCheckoutSession starts a subscription checkout for the given user.
// The user id travels as the client reference so the webhook can promote
// the right profile even when the payment email differs.
func (s *BillingService) CreateCheckoutSession(ctx context.Context, userID, email string) (string, error) {
	if s.stripeCfg.SecretKey == "" || s.stripeCfg.PriceID == "" {
		return "", apperrors.Internal("Billing is not configured", nil)
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.stripeCfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.appURL + "/success"),
		CancelURL:         stripe.String(s.appURL + "/pricing"),
		ClientReferenceID: stripe.String(userID),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		s.logger.WithError(err).Error("Failed to create checkout session")
		return "", apperrors.Internal("Failed to create checkout session", err)
	}
	return sess.URL, nil
}

// VerifyEvent checks the webhook signature and parses the event. Unsigned
// or tampered payloads fail here and must be rejected with a 400.
func (s *BillingService) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.stripeCfg.WebhookSecret)
	if err != nil {
		return stripe.Event{}, apperrors.WebhookError("Webhook signature verification failed", err)
	}
	return event, nil
}

// eventSubject is the slice of the event payload the promotion needs,
// shared by checkout sessions and invoices.
type eventSubject struct {
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
	CustomerDetails   struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// HandleEvent applies one verified event. Payment success events promote
// the referenced profile; everything else is acknowledged and ignored.
// Events that match no profile are still acknowledged, since retrying them
// can never succeed.
func (s *BillingService) HandleEvent(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)

	switch eventType {
	case "checkout.session.completed", "invoice.payment_succeeded":
		var subject eventSubject
		if err := json.Unmarshal(event.Data.Raw, &subject); err != nil {
			metrics.RecordWebhookEvent(eventType, "error")
			return apperrors.WebhookError("Malformed event payload", err)
		}
		email := subject.CustomerEmail
		if email == "" {
			email = subject.CustomerDetails.Email
		}
		return s.promote(ctx, eventType, subject.ClientReferenceID, email)

	case "customer.subscription.deleted":
		// Downgrades are intentionally not automated.
		s.logger.With("event_id", event.ID).Info("Subscription deleted, leaving plan unchanged")
		metrics.RecordWebhookEvent(eventType, "ignored")
		return nil

	default:
		s.logger.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": eventType,
		}).Debug("Ignoring unhandled webhook event")
		metrics.RecordWebhookEvent(eventType, "ignored")
		return nil
	}
}

// promote upgrades the referenced profile to premium. The client reference
// id takes precedence over the payment email; replays of an event against
// an already premium profile are no-ops.
func (s *BillingService) promote(ctx context.Context, eventType, userID, email string) error {
	if userID != "" {
		done, err := s.promoteByID(ctx, eventType, userID)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	if email != "" {
		done, err := s.promoteByEmail(ctx, eventType, email)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"event_type": eventType,
		"user_id":    userID,
		"email":      email,
	}).Warn("Payment event matched no profile")
	metrics.RecordWebhookEvent(eventType, "no_match")
	return nil
}

func (s *BillingService) promoteByID(ctx context.Context, eventType, userID string) (bool, error) {
	p, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		metrics.RecordWebhookEvent(eventType, "error")
		return false, err
	}
	if p.Plan == profile.PlanPremium {
		metrics.RecordWebhookEvent(eventType, "replay")
		return true, nil
	}
	if _, err := s.store.SetPlanByID(ctx, userID, profile.PlanPremium); err != nil {
		metrics.RecordWebhookEvent(eventType, "error")
		return false, err
	}
	s.logger.With("profile_id", userID).Info("Premium access granted via user id")
	metrics.RecordPlanPromotion()
	metrics.RecordWebhookEvent(eventType, "promoted")
	return true, nil
}

func (s *BillingService) promoteByEmail(ctx context.Context, eventType, email string) (bool, error) {
	p, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		metrics.RecordWebhookEvent(eventType, "error")
		return false, err
	}
	if p.Plan == profile.PlanPremium {
		metrics.RecordWebhookEvent(eventType, "replay")
		return true, nil
	}
	if _, err := s.store.SetPlanByEmail(ctx, email, profile.PlanPremium); err != nil {
		metrics.RecordWebhookEvent(eventType, "error")
		return false, err
	}
	s.logger.With("email", email).Info("Premium access granted via email")
	metrics.RecordPlanPromotion()
	metrics.RecordWebhookEvent(eventType, "promoted")
	return true, nil
}

func isNotFound(err error) bool {
	appErr, ok := err.(*apperrors.AppError)
	return ok && appErr.Code == apperrors.ErrCodeNotFound
}
