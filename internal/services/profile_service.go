package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"studypilot/backend/internal/domain/feature"
	"studypilot/backend/internal/domain/profile"
	apperrors "studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
)

// ProfileService implements profile.Service on top of the profile store.
type ProfileService struct {
	store      profile.Repository
	bcryptCost int
	logger     *logger.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(store profile.Repository, bcryptCost int, log *logger.Logger) *ProfileService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &ProfileService{
		store:      store,
		bcryptCost: bcryptCost,
		logger:     log,
	}
}

// Register creates a new free-plan profile with zeroed counters.
func (s *ProfileService) Register(ctx context.Context, email, password string) (*profile.Profile, error) {
	if existing, err := s.store.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.Conflict("An account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	now := time.Now().UTC()
	p := &profile.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Plan:         profile.PlanFree,
		LastReset:    profile.Today(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"profile_id": p.ID,
		"email":      p.Email,
	}).Info("Profile registered")

	return p, nil
}

// Authenticate verifies credentials. Unknown emails and bad passwords fail
// with the same error so the response does not leak which emails exist.
func (s *ProfileService) Authenticate(ctx context.Context, email, password string) (*profile.Profile, error) {
	p, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	return p, nil
}

// GetByID retrieves a profile by ID.
func (s *ProfileService) GetByID(ctx context.Context, id string) (*profile.Profile, error) {
	return s.store.GetByID(ctx, id)
}

// GetByEmail retrieves a profile by email.
func (s *ProfileService) GetByEmail(ctx context.Context, email string) (*profile.Profile, error) {
	return s.store.GetByEmail(ctx, email)
}

// Summary returns the caller-facing plan and remaining allowances. The view
// applies the daily reset in memory, so a stale row still reports a full
// allowance without requiring a write on the read path.
func (s *ProfileService) Summary(ctx context.Context, id string) (*profile.Summary, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &profile.Summary{Plan: p.Plan}
	if p.Plan == profile.PlanPremium {
		return out, nil
	}

	view := *p
	view.ApplyReset(profile.Today())

	out.RemainingToday = make(map[string]int)
	for _, f := range feature.Quotad() {
		remaining := f.DailyQuota - view.Value(f.Counter)
		if remaining < 0 {
			remaining = 0
		}
		out.RemainingToday[f.Key] = remaining
	}
	return out, nil
}
