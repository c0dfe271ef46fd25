package handlers

import (
	"net/http"

	"studypilot/backend/internal/api/middleware"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/utils"
)

// ProfileHandler serves the caller's plan and remaining daily allowances.
type ProfileHandler struct {
	profiles profile.Service
	logger   *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles profile.Service, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: log}
}

// Summary returns the authenticated user's plan and remaining allowances
// @Summary Profile summary
// @Tags Profile
// @Produce json
// @Success 200 {object} profile.Summary "Plan and remaining allowances"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Router /profile [get]
func (h *ProfileHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	summary, err := h.profiles.Summary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, errors.Internal("Failed to load profile", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, summary)
}
