package handlers

import (
	"net/http"

	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/utils"
)

// writeServiceError writes err when it is an AppError and falls back to the
// given default otherwise, so internal error strings never leak to clients.
func writeServiceError(w http.ResponseWriter, err error, fallback *errors.AppError) {
	if appErr, ok := err.(*errors.AppError); ok {
		utils.WriteError(w, appErr)
		return
	}
	utils.WriteError(w, fallback)
}
