package profile

import "context"

// Service defines the interface for profile business logic
type Service interface {
	// Register creates a new profile with plan free and zeroed counters
	Register(ctx context.Context, email, password string) (*Profile, error)

	// Authenticate verifies credentials and returns the profile
	Authenticate(ctx context.Context, email, password string) (*Profile, error)

	// GetByID retrieves a profile by ID
	GetByID(ctx context.Context, id string) (*Profile, error)

	// GetByEmail retrieves a profile by email
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// Summary returns the caller-facing plan and remaining daily allowances
	Summary(ctx context.Context, id string) (*Summary, error)
}

// Summary is the caller-facing view of a profile's plan and allowances.
type Summary struct {
	Plan           string         `json:"plan"`
	RemainingToday map[string]int `json:"remaining_today,omitempty"` // per feature key, free plan only
}
