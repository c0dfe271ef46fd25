// Package feature defines the generation feature registry: which features
// exist, which are quota limited on the free plan, and which require a
// premium plan outright.
package feature

import "studypilot/backend/internal/domain/profile"

// Feature keys, matching the public route suffixes.
const (
	Notes        = "notes"
	QnA          = "qna"
	Flashcards   = "flashcards"
	Test         = "test"
	Citations    = "citations"
	Presentation = "presentation"
	VisualMap    = "visual-map"
	Grammar      = "grammar"
	Paraphrase   = "paraphrase"
	Career       = "career"
	StudyPlan    = "study-plan"
)

// Feature describes one generation feature's entitlement policy.
type Feature struct {
	Key string

	// DailyQuota is the free-plan allowance per UTC calendar day.
	// Zero means the feature is premium-only.
	DailyQuota int

	// Counter is the profile column tracking free-plan usage.
	// Empty for premium-only features.
	Counter profile.Counter
}

// Quotad reports whether the feature is quota limited on the free plan.
func (f Feature) Quotad() bool {
	return f.DailyQuota > 0
}

var registry = map[string]Feature{
	Notes:        {Key: Notes, DailyQuota: 2, Counter: profile.CounterNotes},
	QnA:          {Key: QnA, DailyQuota: 1, Counter: profile.CounterQnA},
	Flashcards:   {Key: Flashcards},
	Test:         {Key: Test},
	Citations:    {Key: Citations},
	Presentation: {Key: Presentation},
	VisualMap:    {Key: VisualMap},
	Grammar:      {Key: Grammar},
	Paraphrase:   {Key: Paraphrase},
	Career:       {Key: Career},
	StudyPlan:    {Key: StudyPlan},
}

// Lookup returns the feature for the given key.
func Lookup(key string) (Feature, bool) {
	f, ok := registry[key]
	return f, ok
}

// Quotad returns the quota limited features.
func Quotad() []Feature {
	var out []Feature
	for _, f := range registry {
		if f.Quotad() {
			out = append(out, f)
		}
	}
	return out
}

// Decision is the transient result of evaluating a profile against a
// feature's policy. It is never persisted.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	// Upgrade marks denials that a plan upgrade would lift, as opposed to
	// authentication failures.
	Upgrade bool `json:"upgrade,omitempty"`
}
