package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"studypilot/backend/internal/api/dto"
	"studypilot/backend/internal/domain/feature"
	apperrors "studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/metrics"
	"studypilot/backend/internal/relay"
)

// GenerationService runs the generation pipeline shared by every feature:
// entitlement check, prompt relay, response normalization, and usage
// consumption. Provider failures produce the feature's fallback payload with
// a 200 response; they never consume the caller's daily allowance.
type GenerationService struct {
	entitlements *EntitlementService
	completer    relay.Completer
	logger       *logger.Logger
}

// NewGenerationService creates a new generation service.
func NewGenerationService(entitlements *EntitlementService, completer relay.Completer, log *logger.Logger) *GenerationService {
	return &GenerationService{
		entitlements: entitlements,
		completer:    completer,
		logger:       log,
	}
}

// authorize runs the entitlement check and maps denials onto HTTP errors.
func (s *GenerationService) authorize(ctx context.Context, userID string, f feature.Feature) error {
	d := s.entitlements.Check(ctx, userID, f)
	if d.Allowed {
		return nil
	}
	metrics.RecordGeneration(f.Key, "denied")
	metrics.RecordQuotaDenial(f.Key)
	if d.Upgrade {
		return apperrors.UpgradeRequired(d.Reason)
	}
	return apperrors.Forbidden(d.Reason)
}

// complete relays one prompt and times the provider call.
func (s *GenerationService) complete(ctx context.Context, f feature.Feature, req relay.Request) (string, error) {
	start := time.Now()
	raw, err := s.completer.Complete(ctx, req)
	metrics.ObserveRelay(f.Key, time.Since(start))
	if err != nil {
		s.logger.WithError(err).With("feature", f.Key).Warn("Relay call failed, serving fallback")
	}
	return raw, err
}

// settle consumes one unit of the feature's allowance after a fully
// successful generation. A consume that comes back false means a concurrent
// request took the last slot after our check; the work is already done, so
// the result is still returned.
func (s *GenerationService) settle(ctx context.Context, userID string, f feature.Feature) {
	metrics.RecordGeneration(f.Key, "ok")
	allowed, err := s.entitlements.Consume(ctx, userID, f)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"feature":    f.Key,
			"profile_id": userID,
		}).Error("Failed to record feature usage")
		return
	}
	if !allowed {
		s.logger.WithFields(map[string]interface{}{
			"feature":    f.Key,
			"profile_id": userID,
		}).Warn("Allowance exhausted by concurrent request")
	}
}

func (s *GenerationService) fallback(f feature.Feature) {
	metrics.RecordGeneration(f.Key, "fallback")
}

func mustFeature(key string) feature.Feature {
	f, ok := feature.Lookup(key)
	if !ok {
		panic(fmt.Sprintf("unknown feature %q", key))
	}
	return f
}

// Notes generates structured study notes from free text.
func (s *GenerationService) Notes(ctx context.Context, userID string, req dto.NotesRequest) (*dto.NotesResponse, error) {
	f := mustFeature(feature.Notes)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, notesPrompt(req.Text))
	if err != nil || strings.TrimSpace(raw) == "" {
		s.fallback(f)
		return &dto.NotesResponse{Notes: fallbackNotes()}, nil
	}

	s.settle(ctx, userID, f)
	return &dto.NotesResponse{Notes: strings.TrimSpace(raw)}, nil
}

// QnA generates question-answer pairs for a topic.
func (s *GenerationService) QnA(ctx context.Context, userID string, req dto.QnARequest) (*dto.QnAResponse, error) {
	f := mustFeature(feature.QnA)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, qnaPrompt(req.Topic))
	if err != nil || strings.TrimSpace(raw) == "" {
		s.fallback(f)
		return &dto.QnAResponse{Result: fallbackQnA()}, nil
	}

	s.settle(ctx, userID, f)
	return &dto.QnAResponse{Result: strings.TrimSpace(raw)}, nil
}

// Flashcards generates question/answer cards for a topic.
func (s *GenerationService) Flashcards(ctx context.Context, userID string, req dto.FlashcardsRequest) (*dto.FlashcardsResponse, error) {
	f := mustFeature(feature.Flashcards)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, flashcardsPrompt(req.Topic))
	if err == nil {
		var out dto.FlashcardsResponse
		if relay.Decode(raw, &out) == nil && len(out.Flashcards) > 0 {
			s.settle(ctx, userID, f)
			return &out, nil
		}
		// Some responses come back as a bare array of cards.
		var cards []dto.Flashcard
		if relay.Decode(raw, &cards) == nil && len(cards) > 0 {
			s.settle(ctx, userID, f)
			return &dto.FlashcardsResponse{Flashcards: cards}, nil
		}
	}

	s.fallback(f)
	return &dto.FlashcardsResponse{Flashcards: fallbackFlashcards()}, nil
}

// Test generates a full exam for a topic.
func (s *GenerationService) Test(ctx context.Context, userID string, req dto.TestRequest) (*dto.TestResponse, error) {
	f := mustFeature(feature.Test)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, testPrompt(req.Topic))
	if err == nil {
		var test dto.Test
		if relay.Decode(raw, &test) == nil && len(test.MCQs) > 0 {
			normalizeTest(&test)
			s.settle(ctx, userID, f)
			return &dto.TestResponse{Test: test}, nil
		}
	}

	s.fallback(f)
	return &dto.TestResponse{Test: fallbackTest()}, nil
}

func normalizeTest(t *dto.Test) {
	if t.TrueFalse == nil {
		t.TrueFalse = []dto.TrueFalse{}
	}
	if t.Short == nil {
		t.Short = []dto.WrittenQuestion{}
	}
	if t.Long == nil {
		t.Long = []dto.WrittenQuestion{}
	}
	for i := range t.MCQs {
		if t.MCQs[i].CorrectIndex < 0 || t.MCQs[i].CorrectIndex >= len(t.MCQs[i].Options) {
			t.MCQs[i].CorrectIndex = 0
		}
	}
}

// Citations generates formatted citations in the requested style.
func (s *GenerationService) Citations(ctx context.Context, userID string, req dto.CitationsRequest) (*dto.CitationsResponse, error) {
	f := mustFeature(feature.Citations)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	style := req.Style
	if style == "" {
		style = "APA"
	}
	count := req.Count
	if count < 5 || count > 8 {
		count = 6
	}

	raw, err := s.complete(ctx, f, citationsPrompt(req.Topic, style, count))
	if err == nil {
		if texts := decodeCitationLines(raw); len(texts) > 0 {
			if len(texts) > count {
				texts = texts[:count]
			}
			out := make([]dto.Citation, 0, len(texts))
			for _, t := range texts {
				out = append(out, dto.Citation{Text: t})
			}
			s.settle(ctx, userID, f)
			return &dto.CitationsResponse{Citations: out}, nil
		}
	}

	s.fallback(f)
	return &dto.CitationsResponse{Citations: fallbackCitations(req.Topic, style, count)}, nil
}

// decodeCitationLines accepts a JSON array of strings or, failing that,
// treats each non-empty line of the raw output as one citation.
func decodeCitationLines(raw string) []string {
	var texts []string
	if relay.Decode(raw, &texts) == nil && len(texts) > 0 {
		return texts
	}
	texts = texts[:0]
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			texts = append(texts, line)
		}
	}
	return texts
}

// Presentation generates a slide deck outline for a topic.
func (s *GenerationService) Presentation(ctx context.Context, userID string, req dto.PresentationRequest) (*dto.PresentationResponse, error) {
	f := mustFeature(feature.Presentation)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	maxSlides := req.Slides
	if maxSlides < 1 || maxSlides > 15 {
		maxSlides = 12
	}

	raw, err := s.complete(ctx, f, presentationPrompt(req.Topic))
	if err == nil {
		var out dto.PresentationResponse
		if relay.Decode(raw, &out) == nil && len(out.Slides) > 0 {
			if len(out.Slides) > maxSlides {
				out.Slides = out.Slides[:maxSlides]
			}
			for i := range out.Slides {
				if out.Slides[i].Title == "" {
					out.Slides[i].Title = "Slide"
				}
				if out.Slides[i].Bullets == nil {
					out.Slides[i].Bullets = []string{}
				}
			}
			s.settle(ctx, userID, f)
			return &out, nil
		}
	}

	s.fallback(f)
	return &dto.PresentationResponse{Slides: fallbackPresentation(req.Topic)}, nil
}

// VisualMap generates a concept map for a topic. Edges referencing unknown
// nodes or forming self loops are dropped; when the model returns nodes but
// no usable edges, a simple chain keeps the map renderable.
func (s *GenerationService) VisualMap(ctx context.Context, userID string, req dto.VisualMapRequest) (*dto.VisualMapResponse, error) {
	f := mustFeature(feature.VisualMap)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, visualMapPrompt(req.Topic))
	if err == nil {
		var out dto.VisualMapResponse
		if relay.Decode(raw, &out) == nil && len(out.Nodes) > 0 {
			normalizeVisualMap(&out)
			s.settle(ctx, userID, f)
			return &out, nil
		}
	}

	s.fallback(f)
	fb := fallbackVisualMap()
	return &fb, nil
}

func normalizeVisualMap(m *dto.VisualMapResponse) {
	if len(m.Nodes) > 15 {
		m.Nodes = m.Nodes[:15]
	}
	ids := make(map[string]bool, len(m.Nodes))
	for i := range m.Nodes {
		if m.Nodes[i].ID == "" {
			m.Nodes[i].ID = fmt.Sprintf("n%d", i+1)
		}
		if m.Nodes[i].Label == "" {
			m.Nodes[i].Label = fmt.Sprintf("Concept %d", i+1)
		}
		ids[m.Nodes[i].ID] = true
	}

	kept := m.Edges[:0]
	for _, e := range m.Edges {
		if e.Source == e.Target || !ids[e.Source] || !ids[e.Target] {
			continue
		}
		kept = append(kept, e)
	}
	m.Edges = kept

	if len(m.Edges) == 0 && len(m.Nodes) > 1 {
		for i := 0; i < len(m.Nodes)-1; i++ {
			m.Edges = append(m.Edges, dto.MapEdge{Source: m.Nodes[i].ID, Target: m.Nodes[i+1].ID})
		}
	}
	if m.Edges == nil {
		m.Edges = []dto.MapEdge{}
	}
}

// Grammar corrects a text in the requested tone. The fallback echoes the
// original text unchanged so the editor page never loses user input.
func (s *GenerationService) Grammar(ctx context.Context, userID string, req dto.GrammarRequest) (*dto.GrammarResponse, error) {
	f := mustFeature(feature.Grammar)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, grammarPrompt(req.Text, req.Tone))
	if err == nil {
		var out dto.GrammarResponse
		if relay.Decode(raw, &out) == nil && out.Corrected != "" {
			if len(out.Changes) > 25 {
				out.Changes = out.Changes[:25]
			}
			if out.Changes == nil {
				out.Changes = []dto.GrammarChange{}
			}
			s.settle(ctx, userID, f)
			return &out, nil
		}
	}

	s.fallback(f)
	return &dto.GrammarResponse{Corrected: req.Text, Changes: []dto.GrammarChange{}}, nil
}

// Paraphrase rewrites a text in clear professional English.
func (s *GenerationService) Paraphrase(ctx context.Context, userID string, req dto.ParaphraseRequest) (*dto.ParaphraseResponse, error) {
	f := mustFeature(feature.Paraphrase)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, paraphrasePrompt(req.Text))
	if err != nil || strings.TrimSpace(raw) == "" {
		s.fallback(f)
		return &dto.ParaphraseResponse{Paraphrased: fallbackParaphrase()}, nil
	}

	s.settle(ctx, userID, f)
	return &dto.ParaphraseResponse{Paraphrased: strings.TrimSpace(raw)}, nil
}

// Career generates career or side-income guidance in one of three modes.
// The advisor text is returned whole and split into titled blocks.
func (s *GenerationService) Career(ctx context.Context, userID string, req dto.CareerRequest) (*dto.CareerResponse, error) {
	f := mustFeature(feature.Career)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, careerPrompt(req.Mode, req.Role, req.Answers))
	text := strings.TrimSpace(raw)
	if err != nil || text == "" {
		s.fallback(f)
		text = fallbackCareer(req.Mode, req.Role)
		return &dto.CareerResponse{Result: text, Blocks: splitCareerBlocks(text)}, nil
	}

	s.settle(ctx, userID, f)
	return &dto.CareerResponse{Result: text, Blocks: splitCareerBlocks(text)}, nil
}

// StudyPlan generates a day-by-day study plan up to an exam date.
func (s *GenerationService) StudyPlan(ctx context.Context, userID string, req dto.StudyPlanRequest) (*dto.StudyPlanResponse, error) {
	f := mustFeature(feature.StudyPlan)
	if err := s.authorize(ctx, userID, f); err != nil {
		return nil, err
	}

	raw, err := s.complete(ctx, f, studyPlanPrompt(req.Subject, req.ExamDate, req.HoursPerDay))
	if err != nil || strings.TrimSpace(raw) == "" {
		s.fallback(f)
		return &dto.StudyPlanResponse{Plan: fallbackStudyPlan()}, nil
	}

	s.settle(ctx, userID, f)
	return &dto.StudyPlanResponse{Plan: strings.TrimSpace(raw)}, nil
}
