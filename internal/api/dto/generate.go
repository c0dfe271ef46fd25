package dto

// Request bodies for the generation endpoints. Validation tags mirror the
// required-field checks each route performs before any provider call.

type NotesRequest struct {
	Text string `json:"text" validate:"required"`
}

type QnARequest struct {
	Topic string `json:"topic" validate:"required"`
}

type FlashcardsRequest struct {
	Topic string `json:"topic" validate:"required"`
}

type TestRequest struct {
	Topic string `json:"topic" validate:"required"`
}

type CitationsRequest struct {
	Topic string `json:"topic" validate:"required"`
	Style string `json:"style,omitempty" validate:"omitempty,oneof=APA MLA Chicago"`
	Count int    `json:"count,omitempty" validate:"omitempty,gte=1,lte=8"`
}

type PresentationRequest struct {
	Topic  string `json:"topic" validate:"required"`
	Slides int    `json:"slides,omitempty" validate:"omitempty,gte=1,lte=15"`
}

type VisualMapRequest struct {
	Topic string `json:"topic" validate:"required"`
}

type GrammarRequest struct {
	Text string `json:"text" validate:"required"`
	Tone string `json:"tone,omitempty"`
}

type ParaphraseRequest struct {
	Text string `json:"text" validate:"required"`
}

type CareerRequest struct {
	Mode    string            `json:"mode" validate:"required,oneof=opt1 opt2 opt3"`
	Role    string            `json:"role,omitempty"`
	Answers map[string]string `json:"answers,omitempty"`
}

type StudyPlanRequest struct {
	Subject     string `json:"subject" validate:"required"`
	ExamDate    string `json:"examDate" validate:"required"`
	HoursPerDay int    `json:"hoursPerDay" validate:"required,gte=1,lte=24"`
}

// Response shapes. These are flat (no success envelope) for parity with the
// client pages consuming them.

type NotesResponse struct {
	Notes string `json:"notes"`
}

type QnAResponse struct {
	Result string `json:"result"`
}

type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type FlashcardsResponse struct {
	Flashcards []Flashcard `json:"flashcards"`
}

type MCQ struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

type TrueFalse struct {
	Statement string `json:"statement"`
	Answer    bool   `json:"answer"`
}

type WrittenQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Test struct {
	MCQs      []MCQ             `json:"mcqs"`
	TrueFalse []TrueFalse       `json:"trueFalse"`
	Short     []WrittenQuestion `json:"short"`
	Long      []WrittenQuestion `json:"long"`
}

type TestResponse struct {
	Test Test `json:"test"`
}

type Citation struct {
	Text string `json:"text"`
}

type CitationsResponse struct {
	Citations []Citation `json:"citations"`
}

type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Notes   string   `json:"notes"`
}

type PresentationResponse struct {
	Slides []Slide `json:"slides"`
}

type MapNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type MapEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type VisualMapResponse struct {
	Nodes []MapNode `json:"nodes"`
	Edges []MapEdge `json:"edges"`
}

type GrammarChange struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason"`
}

type GrammarResponse struct {
	Corrected string          `json:"corrected"`
	Changes   []GrammarChange `json:"changes"`
}

type ParaphraseResponse struct {
	Paraphrased string `json:"paraphrased"`
}

type CareerBlock struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type CareerResponse struct {
	Result string        `json:"result"`
	Blocks []CareerBlock `json:"blocks"`
}

type StudyPlanResponse struct {
	Plan string `json:"plan"`
}
