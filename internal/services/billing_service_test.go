package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"studypilot/backend/internal/config"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/testutil"
)

const testWebhookSecret = "whsec_test_secret"

func newBillingFixture(repo *testutil.MockProfileRepository) *BillingService {
	return NewBillingService(config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: testWebhookSecret,
		PriceID:       "price_123",
	}, "http://localhost:3000", repo, testLogger())
}

func checkoutEvent(t *testing.T, eventType, userID, email string) stripe.Event {
	t.Helper()
	object := map[string]interface{}{}
	if userID != "" {
		object["client_reference_id"] = userID
	}
	if email != "" {
		object["customer_email"] = email
	}
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal event object: %v", err)
	}
	return stripe.Event{
		ID:   "evt_test_1",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestVerifyEventValidSignature(t *testing.T) {
	svc := newBillingFixture(testutil.NewMockProfileRepository())

	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	event, err := svc.VerifyEvent(signed.Payload, signed.Header)
	if err != nil {
		t.Fatalf("VerifyEvent failed: %v", err)
	}
	if string(event.Type) != "checkout.session.completed" {
		t.Errorf("unexpected event type: %s", event.Type)
	}
}

func TestVerifyEventBadSignature(t *testing.T) {
	svc := newBillingFixture(testutil.NewMockProfileRepository())

	payload := []byte(`{"id":"evt_1","object":"event"}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_wrong_secret",
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	if _, err := svc.VerifyEvent(signed.Payload, signed.Header); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestHandleEventPromotesByID(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	repo.Seed(&profile.Profile{ID: "u1", Email: "u1@example.com", Plan: profile.PlanFree})
	svc := newBillingFixture(repo)

	event := checkoutEvent(t, "checkout.session.completed", "u1", "other@example.com")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if repo.Get("u1").Plan != profile.PlanPremium {
		t.Error("profile was not promoted")
	}
}

func TestHandleEventIDTakesPrecedenceOverEmail(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	repo.Seed(&profile.Profile{ID: "u1", Email: "u1@example.com", Plan: profile.PlanFree})
	repo.Seed(&profile.Profile{ID: "u2", Email: "payer@example.com", Plan: profile.PlanFree})
	svc := newBillingFixture(repo)

	event := checkoutEvent(t, "checkout.session.completed", "u1", "payer@example.com")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if repo.Get("u1").Plan != profile.PlanPremium {
		t.Error("referenced profile was not promoted")
	}
	if repo.Get("u2").Plan != profile.PlanFree {
		t.Error("email match must not be used when the id matches")
	}
}

func TestHandleEventFallsBackToEmail(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	repo.Seed(&profile.Profile{ID: "u2", Email: "payer@example.com", Plan: profile.PlanFree})
	svc := newBillingFixture(repo)

	// The id references nobody; the email still matches.
	event := checkoutEvent(t, "invoice.payment_succeeded", "ghost", "payer@example.com")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if repo.Get("u2").Plan != profile.PlanPremium {
		t.Error("email fallback did not promote")
	}
}

func TestHandleEventReplayIsIdempotent(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	repo.Seed(&profile.Profile{ID: "u1", Email: "u1@example.com", Plan: profile.PlanFree})
	svc := newBillingFixture(repo)

	event := checkoutEvent(t, "checkout.session.completed", "u1", "")
	for i := 0; i < 3; i++ {
		if err := svc.HandleEvent(context.Background(), event); err != nil {
			t.Fatalf("replay %d failed: %v", i+1, err)
		}
	}
	if repo.Get("u1").Plan != profile.PlanPremium {
		t.Error("profile should stay premium across replays")
	}
}

func TestHandleEventNoMatchIsAcknowledged(t *testing.T) {
	svc := newBillingFixture(testutil.NewMockProfileRepository())

	event := checkoutEvent(t, "checkout.session.completed", "ghost", "nobody@example.com")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("no-match events must be acknowledged, got: %v", err)
	}
}

func TestHandleEventSubscriptionDeletedIgnored(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	repo.Seed(&profile.Profile{ID: "u1", Email: "u1@example.com", Plan: profile.PlanPremium})
	svc := newBillingFixture(repo)

	event := checkoutEvent(t, "customer.subscription.deleted", "u1", "")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if repo.Get("u1").Plan != profile.PlanPremium {
		t.Error("cancellation must not downgrade the plan")
	}
}
