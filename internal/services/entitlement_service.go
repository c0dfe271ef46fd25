package services

import (
	"context"
	"errors"
	"fmt"

	"studypilot/backend/internal/domain/feature"
	"studypilot/backend/internal/domain/profile"
	apperrors "studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
)

// EntitlementService decides whether a profile may use a generation feature
// and records consumption of the free-plan daily allowances.
type EntitlementService struct {
	store  profile.Repository
	logger *logger.Logger
}

// NewEntitlementService creates a new entitlement service.
func NewEntitlementService(store profile.Repository, log *logger.Logger) *EntitlementService {
	return &EntitlementService{store: store, logger: log}
}

// Check evaluates the profile against the feature's policy without consuming
// anything. Store failures deny: a user must never get premium behavior
// because the database was unreachable.
func (s *EntitlementService) Check(ctx context.Context, userID string, f feature.Feature) feature.Decision {
	p, err := s.store.GetByID(ctx, userID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeNotFound {
			// No profile row yet. Treat as a fresh free-plan user with
			// zero usage so new signups are not locked out.
			p = &profile.Profile{ID: userID, Plan: profile.PlanFree, LastReset: profile.Today()}
		} else {
			s.logger.WithError(err).With("profile_id", userID).Error("Entitlement lookup failed")
			return feature.Decision{Allowed: false, Reason: "Unable to verify your plan. Please try again."}
		}
	}

	today := profile.Today()
	view := *p
	if view.ApplyReset(today) {
		// Persist the reset so the stored counters match what the user
		// sees. Best effort: the consume step resets atomically anyway.
		if err := s.store.ResetStale(ctx, userID, today); err != nil {
			s.logger.WithError(err).With("profile_id", userID).Warn("Failed to persist daily reset")
		}
	}

	if view.Plan == profile.PlanPremium {
		return feature.Decision{Allowed: true}
	}

	if !f.Quotad() {
		return feature.Decision{
			Allowed: false,
			Reason:  "This feature requires a Premium plan.",
			Upgrade: true,
		}
	}

	if view.Value(f.Counter) >= f.DailyQuota {
		return feature.Decision{
			Allowed: false,
			Reason:  quotaReason(f),
			Upgrade: true,
		}
	}

	return feature.Decision{Allowed: true}
}

// Consume records one use of a quota-limited feature. It returns false when
// the allowance ran out between Check and Consume. Premium profiles and
// premium-only features never consume a counter.
func (s *EntitlementService) Consume(ctx context.Context, userID string, f feature.Feature) (bool, error) {
	if !f.Quotad() {
		return true, nil
	}
	return s.store.ConsumeCounter(ctx, userID, f.Counter, f.DailyQuota, profile.Today())
}

func quotaReason(f feature.Feature) string {
	switch f.Key {
	case feature.Notes:
		return "Free users can only create 2 notes per day. Upgrade to Premium for unlimited notes."
	case feature.QnA:
		return "Free users can only create 1 Q&A per day. Upgrade to Premium for unlimited Q&A."
	}
	return fmt.Sprintf("Free users can only use this feature %d times per day. Upgrade to Premium for unlimited access.", f.DailyQuota)
}
