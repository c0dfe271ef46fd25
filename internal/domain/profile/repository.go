package profile

import "context"

// Repository defines the interface for profile data access
type Repository interface {
	// Create inserts a new profile
	Create(ctx context.Context, p *Profile) error

	// GetByID retrieves a profile by ID
	GetByID(ctx context.Context, id string) (*Profile, error)

	// GetByEmail retrieves a profile by email
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// Upsert inserts the profile or, when a row with the same id already
	// exists, leaves it untouched and returns the stored row. Idempotent
	// keyed on id.
	Upsert(ctx context.Context, p *Profile) (*Profile, error)

	// SetPlanByID sets the plan on the profile with the given id. Returns
	// false when no row matched. Safe under replay: setting the same plan
	// twice has no additional effect.
	SetPlanByID(ctx context.Context, id, plan string) (bool, error)

	// SetPlanByEmail is the email fallback used when a payment event does
	// not carry the internal id.
	SetPlanByEmail(ctx context.Context, email, plan string) (bool, error)

	// ConsumeCounter performs the lazy daily reset and the conditional
	// increment of one counter as a single atomic operation. It returns
	// false when the profile is on the free plan and the counter already
	// reached quota; the stored counter never exceeds quota. Premium
	// profiles always consume successfully without incrementing.
	ConsumeCounter(ctx context.Context, id string, c Counter, quota int, today string) (bool, error)

	// ResetStale persists the daily reset for the given profile if
	// last_reset is older than today. Same-day calls are no-ops.
	ResetStale(ctx context.Context, id, today string) error
}
