package services

import (
	"context"
	"fmt"
	"testing"

	"studypilot/backend/internal/domain/feature"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

func seedProfile(repo *testutil.MockProfileRepository, plan string, notes, qna int) *profile.Profile {
	p := &profile.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		Plan:       plan,
		NotesToday: notes,
		QnaToday:   qna,
		LastReset:  profile.Today(),
	}
	repo.Seed(p)
	return p
}

func lookup(t *testing.T, key string) feature.Feature {
	t.Helper()
	f, ok := feature.Lookup(key)
	if !ok {
		t.Fatalf("feature %q not registered", key)
	}
	return f
}

func TestCheckFreeWithinQuota(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanFree, 1, 0)
	svc := NewEntitlementService(repo, testLogger())

	d := svc.Check(context.Background(), "u1", lookup(t, feature.Notes))
	if !d.Allowed {
		t.Errorf("expected allow at 1/2 notes, got denial: %s", d.Reason)
	}
}

func TestCheckFreeAtQuota(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanFree, 2, 1)
	svc := NewEntitlementService(repo, testLogger())

	for _, key := range []string{feature.Notes, feature.QnA} {
		d := svc.Check(context.Background(), "u1", lookup(t, key))
		if d.Allowed {
			t.Errorf("%s: expected denial at quota", key)
		}
		if !d.Upgrade {
			t.Errorf("%s: denial should carry the upgrade flag", key)
		}
		if d.Reason == "" {
			t.Errorf("%s: denial should carry a reason", key)
		}
	}
}

func TestCheckPremiumUnlimited(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanPremium, 99, 99)
	svc := NewEntitlementService(repo, testLogger())

	for _, key := range []string{feature.Notes, feature.QnA, feature.Flashcards, feature.StudyPlan} {
		d := svc.Check(context.Background(), "u1", lookup(t, key))
		if !d.Allowed {
			t.Errorf("%s: premium should always be allowed, got: %s", key, d.Reason)
		}
	}
}

func TestCheckPremiumOnlyFeatures(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanFree, 0, 0)
	svc := NewEntitlementService(repo, testLogger())

	premiumOnly := []string{
		feature.Flashcards, feature.Test, feature.Citations,
		feature.Presentation, feature.VisualMap, feature.Grammar,
		feature.Paraphrase, feature.Career, feature.StudyPlan,
	}
	for _, key := range premiumOnly {
		d := svc.Check(context.Background(), "u1", lookup(t, key))
		if d.Allowed {
			t.Errorf("%s: free plan should be denied", key)
		}
		if !d.Upgrade {
			t.Errorf("%s: denial should carry the upgrade flag", key)
		}
	}
}

func TestCheckStaleCountersReset(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	repo.Seed(&profile.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		Plan:       profile.PlanFree,
		NotesToday: 2,
		QnaToday:   1,
		LastReset:  "2020-01-01",
	})
	svc := NewEntitlementService(repo, testLogger())

	d := svc.Check(context.Background(), "u1", lookup(t, feature.Notes))
	if !d.Allowed {
		t.Errorf("stale counters should reset on check, got denial: %s", d.Reason)
	}

	// The reset must be persisted.
	stored := repo.Get("u1")
	if stored.NotesToday != 0 || stored.LastReset != profile.Today() {
		t.Errorf("reset not persisted: notes=%d last_reset=%s", stored.NotesToday, stored.LastReset)
	}
}

func TestCheckSameDayCountersKept(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanFree, 2, 0)
	svc := NewEntitlementService(repo, testLogger())

	d := svc.Check(context.Background(), "u1", lookup(t, feature.Notes))
	if d.Allowed {
		t.Error("same-day counters must not reset")
	}
}

func TestCheckMissingProfileTreatedAsFree(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	svc := NewEntitlementService(repo, testLogger())

	d := svc.Check(context.Background(), "ghost", lookup(t, feature.Notes))
	if !d.Allowed {
		t.Errorf("missing profile should act as fresh free user, got: %s", d.Reason)
	}

	d = svc.Check(context.Background(), "ghost", lookup(t, feature.Flashcards))
	if d.Allowed {
		t.Error("missing profile must not get premium features")
	}
}

func TestCheckStoreErrorDenies(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanPremium, 0, 0)
	repo.GetError = fmt.Errorf("connection refused")
	svc := NewEntitlementService(repo, testLogger())

	d := svc.Check(context.Background(), "u1", lookup(t, feature.Notes))
	if d.Allowed {
		t.Error("store errors must deny, never default to premium")
	}
	if d.Upgrade {
		t.Error("store error denial must not suggest an upgrade")
	}
}

func TestConsumeIncrementsUpToQuota(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanFree, 0, 0)
	svc := NewEntitlementService(repo, testLogger())
	notes := lookup(t, feature.Notes)

	for i := 0; i < 2; i++ {
		ok, err := svc.Consume(context.Background(), "u1", notes)
		if err != nil || !ok {
			t.Fatalf("consume %d failed: ok=%v err=%v", i+1, ok, err)
		}
	}

	ok, err := svc.Consume(context.Background(), "u1", notes)
	if err != nil {
		t.Fatalf("consume returned error: %v", err)
	}
	if ok {
		t.Error("third consume should fail at quota 2")
	}
	if got := repo.Get("u1").NotesToday; got != 2 {
		t.Errorf("counter overshot quota: %d", got)
	}
}

func TestConsumePremiumOnlyIsNoOp(t *testing.T) {
	repo := testutil.NewMockProfileRepository()
	seedProfile(repo, profile.PlanPremium, 0, 0)
	svc := NewEntitlementService(repo, testLogger())

	ok, err := svc.Consume(context.Background(), "u1", lookup(t, feature.Flashcards))
	if err != nil || !ok {
		t.Fatalf("premium-only consume: ok=%v err=%v", ok, err)
	}
	stored := repo.Get("u1")
	if stored.NotesToday != 0 || stored.QnaToday != 0 {
		t.Error("premium-only features must not touch counters")
	}
}
