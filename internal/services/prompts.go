package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studypilot/backend/internal/api/dto"
	"studypilot/backend/internal/relay"
)

// Prompt builders for each generation feature. Kept together so the wording
// and temperature choices are reviewable in one place.

func notesPrompt(text string) relay.Request {
	return relay.Request{
		System:    "You are an AI assistant that generates clean, structured, and detailed study notes.",
		User:      fmt.Sprintf("Generate detailed, structured study notes from this text:\n\n%s", text),
		MaxTokens: 700,
	}
}

func qnaPrompt(topic string) relay.Request {
	return relay.Request{
		System: "You are a study assistant that generates 5 question-answer pairs based on a topic.",
		User:   fmt.Sprintf("Generate 5 detailed Q&A pairs for the topic: %s", topic),
	}
}

func flashcardsPrompt(topic string) relay.Request {
	return relay.Request{
		System:   "You are an expert study assistant that generates flashcards for learning. Each card should have a concise question and a clear, memorable answer.",
		User:     fmt.Sprintf(`Generate 10 flashcards (question and answer) about: %s. Format as JSON: {"flashcards": [{"question": "...", "answer": "..."}]}`, topic),
		JSONMode: true,
	}
}

func testPrompt(topic string) relay.Request {
	return relay.Request{
		System: "You create exams. Output ONLY JSON that matches the requested shape. No markdown, no commentary.",
		User: fmt.Sprintf(`Make an exam for topic: %q. Create:
- 8 multiple-choice questions (each exactly 4 options, one correct)
- 8 true/false statements
- 5 short-answer questions (1-2 sentence answer)
- 2 long-answer questions (3-5 sentence answer)
Keep language concise and student-friendly.
Return JSON with keys: mcqs (question, options, correctIndex), trueFalse (statement, answer), short (question, answer), long (question, answer).`, topic),
		Temperature: 0.3,
		MaxTokens:   1200,
		JSONMode:    true,
	}
}

func citationsPrompt(topic, style string, count int) relay.Request {
	return relay.Request{
		System: "You format citations precisely. Output only a JSON array of strings.",
		User: fmt.Sprintf(`Generate %d credible %s citations about %q.
Return ONLY a JSON array of strings, each string is one fully formatted citation.
No commentary, no extra keys, no markdown.
If a URL is used, ensure it's plausible and stable; prefer books, journals, reputable sites.`, count, style, topic),
		Temperature: 0.2,
	}
}

func presentationPrompt(topic string) relay.Request {
	return relay.Request{
		System: "Respond with STRICT JSON only. No prose.",
		User: fmt.Sprintf(`You are an elite slide writer. Create a JSON with exactly this shape:
{
  "slides": [
    { "title": "...", "bullets": ["...", "...", "..."], "notes": "..." }
  ]
}

Rules:
- 10-12 slides max.
- Titles short and informative.
- Bullets: concrete facts, definitions, examples, stats if relevant.
- No markdown symbols. Plain text only.
- Keep bullets punchy (5-12 words).
- First slide = title slide. Final slide = summary / next steps.
Topic: %q`, topic),
		Temperature: 0.4,
		MaxTokens:   2000,
		JSONMode:    true,
	}
}

func visualMapPrompt(topic string) relay.Request {
	return relay.Request{
		System:      `You generate clean concept maps. Return ONLY compact JSON: {"nodes":[{"id":"n1","label":"..."}],"edges":[{"source":"n1","target":"n2"}]}. 10-15 nodes. Include main concept, key ideas, definitions, relationships. No code fences. No extra text.`,
		User:        fmt.Sprintf("Make a clear concept map for: %s", topic),
		Temperature: 0.4,
		JSONMode:    true,
	}
}

func grammarPrompt(text, tone string) relay.Request {
	if tone == "" {
		tone = "Academic"
	}
	return relay.Request{
		System: "You are a writing editor. Fix grammar, punctuation, and style. " +
			"Preserve meaning and details. Return strict JSON with keys: corrected, changes. " +
			"changes is an array of objects with keys: from, to, reason. Keep the tone requested exactly.",
		User:        fmt.Sprintf("Tone: %s\nText:\n%s", tone, text),
		Temperature: 0.2,
		JSONMode:    true,
	}
}

func paraphrasePrompt(text string) relay.Request {
	return relay.Request{
		User: fmt.Sprintf(`Paraphrase the following text in clear, natural, and professional English.
Keep the same meaning but make it smoother and more concise:
%q`, text),
	}
}

func careerPrompt(mode, role string, answers map[string]string) relay.Request {
	var user string
	switch mode {
	case "opt1":
		user = fmt.Sprintf(`You are a world-class career mentor. The user wants to become a %s.
Create a full professional roadmap including:
1. Description of this career
2. Skills & education needed
3. 12-month learning roadmap (Q1-Q4)
4. Entry-level job titles & salary
5. Long-term success tips
Keep it inspiring and clear.`, role)
	case "opt2":
		user = fmt.Sprintf(`You are a friendly career counselor. Here are the user's answers:
%s
Based on these, suggest 3 career paths that fit their personality.
For each path:
1. Short description
2. Why it's a match
3. What to learn
4. Steps to start
5. Motivational note`, formatAnswers(answers))
	case "opt3":
		user = fmt.Sprintf(`You are an expert side-income coach. The user wants to earn part-time. Answers:
%s
Suggest 3 income ideas that are realistic and fun.
For each:
1. What it is
2. How to start today
3. How much they can earn
4. How to grow it
5. Bonus tip`, formatAnswers(answers))
	}
	return relay.Request{
		System:      "You are a professional career and income advisor who writes clear, structured plans with headings.",
		User:        user,
		Temperature: 0.8,
	}
}

func formatAnswers(answers map[string]string) string {
	raw, err := json.MarshalIndent(answers, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func studyPlanPrompt(subject, examDate string, hoursPerDay int) relay.Request {
	return relay.Request{
		System: "You are a helpful study planner assistant.",
		User: fmt.Sprintf(`You are an AI study planner. Create a detailed, structured daily study plan for the topic %q.
The exam date is %s, and the student has %d hours per day to study.
The plan should include specific topics or subtopics for each day, review days, and breaks.
Format it neatly and clearly with days as headings and bullet points under each.
Make it motivational but realistic.`, subject, examDate, hoursPerDay),
		Temperature: 0.8,
	}
}

// Deterministic fallbacks, used whenever the relay call fails or its output
// cannot be decoded. Generation endpoints never surface provider errors.

func fallbackNotes() string { return "No notes generated." }

func fallbackQnA() string { return "No response generated." }

func fallbackParaphrase() string { return "Error generating paraphrased text." }

func fallbackStudyPlan() string { return "Error generating plan." }

func fallbackFlashcards() []dto.Flashcard { return []dto.Flashcard{} }

func fallbackTest() dto.Test {
	return dto.Test{
		MCQs:      []dto.MCQ{},
		TrueFalse: []dto.TrueFalse{},
		Short:     []dto.WrittenQuestion{},
		Long:      []dto.WrittenQuestion{},
	}
}

func fallbackPresentation(topic string) []dto.Slide {
	return []dto.Slide{
		{Title: topic, Bullets: []string{"Overview", "Why it matters", "What you'll learn"}},
		{Title: "Core Concepts", Bullets: []string{"Concept A", "Concept B", "Concept C"}},
	}
}

func fallbackVisualMap() dto.VisualMapResponse {
	return dto.VisualMapResponse{Nodes: []dto.MapNode{}, Edges: []dto.MapEdge{}}
}

// fallbackCitations produces plausible formatted citations so the page still
// renders something professional when the provider is unavailable.
func fallbackCitations(topic, style string, count int) []dto.Citation {
	year := time.Now().Year()
	type entry struct {
		author, title, publisher, city string
		year                           int
	}
	base := []entry{
		{"Smith, A.", fmt.Sprintf("Foundations of %s", topic), "Scholarly Press", "New York", year},
		{"Khan, R.", fmt.Sprintf("%s: A Comprehensive Review", topic), "Global Academic", "London", year - 1},
		{"Chen, L.", fmt.Sprintf("Modern Perspectives on %s", topic), "University Press", "Cambridge", year - 2},
		{"Garcia, M.", fmt.Sprintf("The Impact of %s", topic), "Insight Books", "Toronto", year - 3},
		{"Patel, S.", fmt.Sprintf("%s in Practice", topic), "Fieldhouse", "Chicago", year - 1},
		{"Dubois, C.", fmt.Sprintf("Historical Views of %s", topic), "Heritage", "Paris", year - 4},
		{"Okafor, T.", fmt.Sprintf("Applied %s Methods", topic), "Vector", "Lagos", year - 2},
		{"Yamada, H.", fmt.Sprintf("Emerging Trends in %s", topic), "Pacific Press", "Tokyo", year - 1},
	}
	if count > len(base) {
		count = len(base)
	}
	out := make([]dto.Citation, 0, count)
	for _, b := range base[:count] {
		var text string
		switch style {
		case "MLA":
			text = fmt.Sprintf("%s %s. %s, %d.", b.author, b.title, b.publisher, b.year)
		case "Chicago":
			text = fmt.Sprintf("%s %s. %s: %s, %d.", b.author, b.title, b.city, b.publisher, b.year)
		default: // APA
			text = fmt.Sprintf("%s (%d). %s. %s: %s.", b.author, b.year, b.title, b.city, b.publisher)
		}
		out = append(out, dto.Citation{Text: text})
	}
	return out
}

func fallbackCareer(mode, role string) string {
	switch mode {
	case "opt1":
		return fmt.Sprintf(`Career Goal: %s

Step 1: Learn the basics. Study free resources on YouTube, Coursera, or books.
Step 2: Build foundation. Practice projects, join communities.
Step 3: Gain credibility. Take a certification or course.
Step 4: Build portfolio. Showcase small achievements.
Step 5: Apply for internships or freelance roles.
Step 6: Grow by networking, reading, and sharing your work.`, role)
	case "opt2":
		return `Possible Careers Based on Your Answers:

1. Digital Marketing
   - Uses creativity and strategy.
   - Learn SEO, content, ads.
   - Start with freelancing or small projects.

2. Software Development
   - Great for logical thinkers.
   - Learn coding basics, build small apps.
   - Start with internships or open-source work.

3. Business & Sales
   - Perfect for communicators.
   - Learn persuasion, cold outreach, and business.
   - Start selling products or services locally.`
	case "opt3":
		return `Side Income Ideas:

1. Freelance Design or Writing
   - Use Fiverr or Upwork.
   - Start free, then scale your clients.

2. Tutoring or Teaching
   - Teach what you know online.
   - Platforms: Preply, Wyzant, YouTube.

3. Social Media Services
   - Help small businesses manage TikTok or Instagram.
   - Start with 2-3 clients and grow from there.`
	}
	return ""
}

// splitCareerBlocks turns the advisor's free text into titled sections. A
// block starts at a heading-looking line; the first line becomes the title.
func splitCareerBlocks(text string) []dto.CareerBlock {
	var blocks []dto.CareerBlock
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		title := strings.Trim(strings.TrimSpace(current[0]), "#* ")
		body := strings.TrimSpace(strings.Join(current[1:], "\n"))
		if len(title)+len(body) > 5 {
			blocks = append(blocks, dto.CareerBlock{Title: title, Body: body})
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && looksLikeHeading(trimmed) && len(current) > 0 {
			flush()
		}
		if trimmed == "" && len(current) == 0 {
			continue
		}
		current = append(current, line)
	}
	flush()

	if len(blocks) == 0 && strings.TrimSpace(text) != "" {
		blocks = append(blocks, dto.CareerBlock{Title: "Plan", Body: strings.TrimSpace(text)})
	}
	return blocks
}

func looksLikeHeading(line string) bool {
	if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "**") {
		return true
	}
	for _, prefix := range []string{"Career", "Step", "Idea"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	if len(line) > 2 && line[1] == '.' && line[0] >= '1' && line[0] <= '9' {
		return true
	}
	return strings.HasSuffix(line, ":")
}
