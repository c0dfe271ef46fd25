package profile

import "time"

// Profile represents a user profile row. One row per authenticated user,
// created at signup and never deleted by the application.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Plan         string    `json:"plan"`
	NotesToday   int       `json:"notes_today"`
	QnaToday     int       `json:"qna_today"`
	LastReset    string    `json:"last_reset"` // UTC calendar date, YYYY-MM-DD
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Plans. The only automatic transition is free to premium; downgrades are
// not performed by this system.
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// Today returns the current UTC calendar date in the last_reset format.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}

// ApplyReset zeroes the daily counters if last_reset is older than today.
// It reports whether anything changed, so same-day calls are no-ops and
// repeated resets never zero counters mid-day.
func (p *Profile) ApplyReset(today string) bool {
	if p.LastReset == today {
		return false
	}
	p.NotesToday = 0
	p.QnaToday = 0
	p.LastReset = today
	return true
}

// Counter identifies one of the per-day usage counters.
type Counter string

const (
	CounterNotes Counter = "notes_today"
	CounterQnA   Counter = "qna_today"
)

// Value returns the current value of the given counter.
func (p *Profile) Value(c Counter) int {
	switch c {
	case CounterNotes:
		return p.NotesToday
	case CounterQnA:
		return p.QnaToday
	}
	return 0
}
