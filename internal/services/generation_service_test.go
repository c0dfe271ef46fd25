package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"studypilot/backend/internal/api/dto"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/testutil"
)

func newGenerationFixture(completer *testutil.MockCompleter) (*GenerationService, *testutil.MockProfileRepository) {
	repo := testutil.NewMockProfileRepository()
	log := testLogger()
	ent := NewEntitlementService(repo, log)
	return NewGenerationService(ent, completer, log), repo
}

func TestNotesSuccessConsumesCounter(t *testing.T) {
	completer := &testutil.MockCompleter{Response: "# Notes\n- point one"}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanFree, 0, 0)

	out, err := svc.Notes(context.Background(), "u1", dto.NotesRequest{Text: "photosynthesis"})
	if err != nil {
		t.Fatalf("Notes failed: %v", err)
	}
	if out.Notes != "# Notes\n- point one" {
		t.Errorf("unexpected notes: %q", out.Notes)
	}
	if got := repo.Get("u1").NotesToday; got != 1 {
		t.Errorf("counter = %d, want 1", got)
	}
}

func TestNotesDeniedAtQuota(t *testing.T) {
	completer := &testutil.MockCompleter{Response: "notes"}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanFree, 2, 0)

	_, err := svc.Notes(context.Background(), "u1", dto.NotesRequest{Text: "x"})
	if err == nil {
		t.Fatal("expected denial at quota")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeUpgradeRequired {
		t.Fatalf("expected upgrade-required error, got %v", err)
	}
	if completer.CallCount() != 0 {
		t.Error("denied request must not reach the provider")
	}
}

func TestNotesRelayFailureDoesNotConsume(t *testing.T) {
	completer := &testutil.MockCompleter{Err: fmt.Errorf("provider down")}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanFree, 0, 0)

	out, err := svc.Notes(context.Background(), "u1", dto.NotesRequest{Text: "x"})
	if err != nil {
		t.Fatalf("relay failure must not surface as error: %v", err)
	}
	if out.Notes != "No notes generated." {
		t.Errorf("expected fallback payload, got %q", out.Notes)
	}
	if got := repo.Get("u1").NotesToday; got != 0 {
		t.Errorf("failed generation consumed an allowance: counter = %d", got)
	}
}

func TestFlashcardsDecodesWrappedAndBareArrays(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"wrapped object", `{"flashcards":[{"question":"Q1","answer":"A1"}]}`},
		{"bare array", `[{"question":"Q1","answer":"A1"}]`},
		{"fenced", "```json\n{\"flashcards\":[{\"question\":\"Q1\",\"answer\":\"A1\"}]}\n```"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			completer := &testutil.MockCompleter{Response: tc.response}
			svc, repo := newGenerationFixture(completer)
			seedProfile(repo, profile.PlanPremium, 0, 0)

			out, err := svc.Flashcards(context.Background(), "u1", dto.FlashcardsRequest{Topic: "biology"})
			if err != nil {
				t.Fatalf("Flashcards failed: %v", err)
			}
			if len(out.Flashcards) != 1 || out.Flashcards[0].Question != "Q1" {
				t.Errorf("unexpected flashcards: %+v", out.Flashcards)
			}
		})
	}
}

func TestFlashcardsUnparsableFallsBack(t *testing.T) {
	completer := &testutil.MockCompleter{Response: "I cannot produce JSON today"}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.Flashcards(context.Background(), "u1", dto.FlashcardsRequest{Topic: "biology"})
	if err != nil {
		t.Fatalf("unparsable output must not surface as error: %v", err)
	}
	if out.Flashcards == nil || len(out.Flashcards) != 0 {
		t.Errorf("expected empty fallback, got %+v", out.Flashcards)
	}
}

func TestPremiumOnlyFeatureDeniedForFree(t *testing.T) {
	completer := &testutil.MockCompleter{Response: "{}"}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanFree, 0, 0)

	_, err := svc.Flashcards(context.Background(), "u1", dto.FlashcardsRequest{Topic: "x"})
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != errors.ErrCodeUpgradeRequired {
		t.Fatalf("expected upgrade-required, got %v", err)
	}
	if appErr.Message != "This feature requires a Premium plan." {
		t.Errorf("unexpected reason: %q", appErr.Message)
	}
}

func TestCitationsClampsCountAndStyle(t *testing.T) {
	completer := &testutil.MockCompleter{Err: fmt.Errorf("down")}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.Citations(context.Background(), "u1", dto.CitationsRequest{Topic: "history"})
	if err != nil {
		t.Fatalf("Citations failed: %v", err)
	}
	if len(out.Citations) != 6 {
		t.Errorf("default count = %d, want 6", len(out.Citations))
	}
	for _, c := range out.Citations {
		if c.Text == "" {
			t.Error("fallback citation must not be empty")
		}
	}
}

func TestCitationsLineSplitFallback(t *testing.T) {
	// Not JSON, but line-per-citation output is still usable.
	completer := &testutil.MockCompleter{Response: "Smith, A. (2024). One.\nKhan, R. (2023). Two."}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.Citations(context.Background(), "u1", dto.CitationsRequest{Topic: "x", Count: 5})
	if err != nil {
		t.Fatalf("Citations failed: %v", err)
	}
	if len(out.Citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(out.Citations))
	}
	if out.Citations[0].Text != "Smith, A. (2024). One." {
		t.Errorf("unexpected first citation: %q", out.Citations[0].Text)
	}
}

func TestVisualMapDropsBadEdges(t *testing.T) {
	completer := &testutil.MockCompleter{
		Response: `{"nodes":[{"id":"n1","label":"A"},{"id":"n2","label":"B"}],` +
			`"edges":[{"source":"n1","target":"n2"},{"source":"n1","target":"n1"},{"source":"nX","target":"n2"}]}`,
	}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.VisualMap(context.Background(), "u1", dto.VisualMapRequest{Topic: "x"})
	if err != nil {
		t.Fatalf("VisualMap failed: %v", err)
	}
	if len(out.Edges) != 1 {
		t.Errorf("got %d edges, want 1 (self loop and unknown id dropped)", len(out.Edges))
	}
}

func TestVisualMapChainsWhenNoEdges(t *testing.T) {
	completer := &testutil.MockCompleter{
		Response: `{"nodes":[{"id":"n1","label":"A"},{"id":"n2","label":"B"},{"id":"n3","label":"C"}],"edges":[]}`,
	}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.VisualMap(context.Background(), "u1", dto.VisualMapRequest{Topic: "x"})
	if err != nil {
		t.Fatalf("VisualMap failed: %v", err)
	}
	if len(out.Edges) != 2 {
		t.Errorf("got %d edges, want 2 chain edges", len(out.Edges))
	}
}

func TestGrammarFallbackEchoesInput(t *testing.T) {
	completer := &testutil.MockCompleter{Err: fmt.Errorf("down")}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.Grammar(context.Background(), "u1", dto.GrammarRequest{Text: "me has wrote"})
	if err != nil {
		t.Fatalf("Grammar failed: %v", err)
	}
	if out.Corrected != "me has wrote" {
		t.Errorf("fallback must echo the input, got %q", out.Corrected)
	}
	if out.Changes == nil {
		t.Error("changes must be an empty slice, not nil")
	}
}

func TestCareerFallbackPerMode(t *testing.T) {
	completer := &testutil.MockCompleter{Err: fmt.Errorf("down")}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.Career(context.Background(), "u1", dto.CareerRequest{Mode: "opt1", Role: "Data Scientist"})
	if err != nil {
		t.Fatalf("Career failed: %v", err)
	}
	if out.Result == "" {
		t.Fatal("fallback result must not be empty")
	}
	if len(out.Blocks) == 0 {
		t.Error("fallback must still split into blocks")
	}
}

func TestStudyPlanPromptCarriesInputs(t *testing.T) {
	completer := &testutil.MockCompleter{Response: "Day 1: algebra"}
	svc, repo := newGenerationFixture(completer)
	seedProfile(repo, profile.PlanPremium, 0, 0)

	out, err := svc.StudyPlan(context.Background(), "u1", dto.StudyPlanRequest{
		Subject: "Math", ExamDate: "2026-10-01", HoursPerDay: 3,
	})
	if err != nil {
		t.Fatalf("StudyPlan failed: %v", err)
	}
	if out.Plan != "Day 1: algebra" {
		t.Errorf("unexpected plan: %q", out.Plan)
	}
	if completer.CallCount() != 1 {
		t.Fatalf("expected one relay call, got %d", completer.CallCount())
	}
	prompt := completer.Calls[0].User
	for _, want := range []string{"Math", "2026-10-01", "3 hours"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
