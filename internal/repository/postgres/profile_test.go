package postgres_test

import (
	"context"
	"sync"
	"testing"

	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/repository/postgres"
	"studypilot/backend/internal/testutil"
)

func newRepo(t *testing.T) *postgres.ProfileRepository {
	t.Helper()
	return postgres.NewProfileRepository(testutil.NewTestDB(t), "sqlite")
}

func mustCreate(t *testing.T, repo *postgres.ProfileRepository, p *profile.Profile) {
	t.Helper()
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, &profile.Profile{
		ID:           "u1",
		Email:        "u1@example.com",
		PasswordHash: "hash",
	})

	byID, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID.Email != "u1@example.com" || byID.Plan != profile.PlanFree {
		t.Errorf("unexpected profile: %+v", byID)
	}
	if byID.LastReset != profile.Today() {
		t.Errorf("last_reset = %q, want today", byID.LastReset)
	}

	byEmail, err := repo.GetByEmail(ctx, "u1@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if byEmail.ID != "u1" {
		t.Errorf("GetByEmail returned id %q", byEmail.ID)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetByID(context.Background(), "ghost")
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestUpsertIsIdempotentOnID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &profile.Profile{ID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if first.Plan != profile.PlanFree {
		t.Errorf("plan = %q, want free", first.Plan)
	}

	if _, err := repo.SetPlanByID(ctx, "u1", profile.PlanPremium); err != nil {
		t.Fatalf("SetPlanByID failed: %v", err)
	}

	// A replayed upsert must not clobber the existing row.
	second, err := repo.Upsert(ctx, &profile.Profile{ID: "u1", Email: "other@example.com"})
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if second.Plan != profile.PlanPremium {
		t.Errorf("upsert overwrote the plan: %q", second.Plan)
	}
	if second.Email != "u1@example.com" {
		t.Errorf("upsert overwrote the email: %q", second.Email)
	}
}

func TestSetPlanMatchedFlags(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, &profile.Profile{ID: "u1", Email: "u1@example.com"})

	matched, err := repo.SetPlanByID(ctx, "u1", profile.PlanPremium)
	if err != nil || !matched {
		t.Fatalf("SetPlanByID: matched=%v err=%v", matched, err)
	}
	matched, err = repo.SetPlanByID(ctx, "ghost", profile.PlanPremium)
	if err != nil || matched {
		t.Fatalf("SetPlanByID for unknown id: matched=%v err=%v", matched, err)
	}

	matched, err = repo.SetPlanByEmail(ctx, "u1@example.com", profile.PlanFree)
	if err != nil || !matched {
		t.Fatalf("SetPlanByEmail: matched=%v err=%v", matched, err)
	}
	matched, err = repo.SetPlanByEmail(ctx, "nobody@example.com", profile.PlanFree)
	if err != nil || matched {
		t.Fatalf("SetPlanByEmail for unknown email: matched=%v err=%v", matched, err)
	}
}

func TestConsumeCounterEnforcesQuota(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	today := profile.Today()

	mustCreate(t, repo, &profile.Profile{ID: "u1", Email: "u1@example.com"})

	for i := 0; i < 2; i++ {
		ok, err := repo.ConsumeCounter(ctx, "u1", profile.CounterNotes, 2, today)
		if err != nil || !ok {
			t.Fatalf("consume %d: ok=%v err=%v", i+1, ok, err)
		}
	}

	ok, err := repo.ConsumeCounter(ctx, "u1", profile.CounterNotes, 2, today)
	if err != nil {
		t.Fatalf("consume at quota returned error: %v", err)
	}
	if ok {
		t.Error("consume should fail once the quota is reached")
	}

	p, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p.NotesToday != 2 {
		t.Errorf("notes_today = %d, want 2", p.NotesToday)
	}
	if p.QnaToday != 0 {
		t.Errorf("qna_today = %d, want 0 (other counter untouched)", p.QnaToday)
	}
}

func TestConsumeCounterLazyReset(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, &profile.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		NotesToday: 2,
		QnaToday:   1,
		LastReset:  "2020-01-01",
	})

	// Yesterday's exhausted counters must not block today.
	ok, err := repo.ConsumeCounter(ctx, "u1", profile.CounterNotes, 2, profile.Today())
	if err != nil || !ok {
		t.Fatalf("consume after stale day: ok=%v err=%v", ok, err)
	}

	p, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p.NotesToday != 1 || p.QnaToday != 0 {
		t.Errorf("counters after reset: notes=%d qna=%d, want 1/0", p.NotesToday, p.QnaToday)
	}
	if p.LastReset != profile.Today() {
		t.Errorf("last_reset = %q, want today", p.LastReset)
	}
}

func TestConsumeCounterPremiumBypass(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, &profile.Profile{ID: "u1", Email: "u1@example.com", Plan: profile.PlanPremium})

	for i := 0; i < 5; i++ {
		ok, err := repo.ConsumeCounter(ctx, "u1", profile.CounterNotes, 2, profile.Today())
		if err != nil || !ok {
			t.Fatalf("premium consume %d: ok=%v err=%v", i+1, ok, err)
		}
	}

	p, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p.NotesToday != 0 {
		t.Errorf("premium usage incremented the counter: %d", p.NotesToday)
	}
}

func TestConsumeCounterMissingProfile(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.ConsumeCounter(context.Background(), "ghost", profile.CounterNotes, 2, profile.Today())
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestConsumeCounterConcurrent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	today := profile.Today()

	mustCreate(t, repo, &profile.Profile{ID: "u1", Email: "u1@example.com"})

	const workers = 10
	var wg sync.WaitGroup
	granted := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ConsumeCounter(ctx, "u1", profile.CounterQnA, 1, today)
			if err != nil {
				t.Errorf("concurrent consume failed: %v", err)
				return
			}
			granted <- ok
		}()
	}
	wg.Wait()
	close(granted)

	grants := 0
	for ok := range granted {
		if ok {
			grants++
		}
	}
	if grants != 1 {
		t.Errorf("quota 1 granted %d times", grants)
	}

	p, err := repo.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p.QnaToday != 1 {
		t.Errorf("qna_today = %d, want 1", p.QnaToday)
	}
}

func TestResetStale(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	today := profile.Today()

	mustCreate(t, repo, &profile.Profile{
		ID:         "u1",
		Email:      "u1@example.com",
		NotesToday: 2,
		QnaToday:   1,
		LastReset:  "2020-01-01",
	})

	if err := repo.ResetStale(ctx, "u1", today); err != nil {
		t.Fatalf("ResetStale failed: %v", err)
	}
	p, _ := repo.GetByID(ctx, "u1")
	if p.NotesToday != 0 || p.QnaToday != 0 || p.LastReset != today {
		t.Errorf("reset not applied: %+v", p)
	}

	// Same-day reset must not zero counters used today.
	if ok, err := repo.ConsumeCounter(ctx, "u1", profile.CounterNotes, 2, today); err != nil || !ok {
		t.Fatalf("consume failed: ok=%v err=%v", ok, err)
	}
	if err := repo.ResetStale(ctx, "u1", today); err != nil {
		t.Fatalf("same-day ResetStale failed: %v", err)
	}
	p, _ = repo.GetByID(ctx, "u1")
	if p.NotesToday != 1 {
		t.Errorf("same-day reset zeroed the counter: %d", p.NotesToday)
	}
}

func TestCountByPlan(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	mustCreate(t, repo, &profile.Profile{ID: "u1", Email: "u1@example.com"})
	mustCreate(t, repo, &profile.Profile{ID: "u2", Email: "u2@example.com"})
	mustCreate(t, repo, &profile.Profile{ID: "u3", Email: "u3@example.com", Plan: profile.PlanPremium})

	counts, err := repo.CountByPlan(ctx)
	if err != nil {
		t.Fatalf("CountByPlan failed: %v", err)
	}
	if counts[profile.PlanFree] != 2 || counts[profile.PlanPremium] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
