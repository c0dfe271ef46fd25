package services

import (
	"context"
	"testing"

	"studypilot/backend/internal/domain/feature"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/testutil"
)

func newProfileFixture() (*ProfileService, *testutil.MockProfileRepository) {
	repo := testutil.NewMockProfileRepository()
	return NewProfileService(repo, 4, testLogger()), repo
}

func TestRegisterCreatesFreeProfile(t *testing.T) {
	svc, repo := newProfileFixture()

	p, err := svc.Register(context.Background(), "new@example.com", "password123")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Plan != profile.PlanFree {
		t.Errorf("plan = %q, want free", p.Plan)
	}
	if p.PasswordHash == "password123" || p.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if repo.Get(p.ID) == nil {
		t.Error("profile not persisted")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, repo := newProfileFixture()
	repo.Seed(&profile.Profile{ID: "u1", Email: "taken@example.com"})

	_, err := svc.Register(context.Background(), "taken@example.com", "password123")
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAuthenticateDoesNotLeakAccountExistence(t *testing.T) {
	svc, _ := newProfileFixture()

	p, err := svc.Register(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := svc.Authenticate(context.Background(), "user@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("authenticated wrong profile: %s", got.ID)
	}

	_, badPass := svc.Authenticate(context.Background(), "user@example.com", "wrong")
	_, noUser := svc.Authenticate(context.Background(), "nobody@example.com", "wrong")
	if badPass == nil || noUser == nil {
		t.Fatal("both failure modes must error")
	}
	if badPass.Error() != noUser.Error() {
		t.Errorf("failure messages differ: %q vs %q", badPass, noUser)
	}
}

func TestSummaryFreeReportsRemaining(t *testing.T) {
	svc, repo := newProfileFixture()
	repo.Seed(&profile.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		Plan:       profile.PlanFree,
		NotesToday: 1,
		QnaToday:   1,
		LastReset:  profile.Today(),
	})

	sum, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Plan != profile.PlanFree {
		t.Errorf("plan = %q", sum.Plan)
	}
	if sum.RemainingToday[feature.Notes] != 1 {
		t.Errorf("notes remaining = %d, want 1", sum.RemainingToday[feature.Notes])
	}
	if sum.RemainingToday[feature.QnA] != 0 {
		t.Errorf("qna remaining = %d, want 0", sum.RemainingToday[feature.QnA])
	}
}

func TestSummaryStaleCountersReportFullAllowance(t *testing.T) {
	svc, repo := newProfileFixture()
	repo.Seed(&profile.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		Plan:       profile.PlanFree,
		NotesToday: 2,
		QnaToday:   1,
		LastReset:  "2020-01-01",
	})

	sum, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.RemainingToday[feature.Notes] != 2 || sum.RemainingToday[feature.QnA] != 1 {
		t.Errorf("stale counters must read as reset: %v", sum.RemainingToday)
	}
}

func TestSummaryPremiumOmitsCounters(t *testing.T) {
	svc, repo := newProfileFixture()
	repo.Seed(&profile.Profile{ID: "u1", Email: "u1@example.com", Plan: profile.PlanPremium})

	sum, err := svc.Summary(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Plan != profile.PlanPremium {
		t.Errorf("plan = %q", sum.Plan)
	}
	if sum.RemainingToday != nil {
		t.Errorf("premium summary must not carry counters: %v", sum.RemainingToday)
	}
}
