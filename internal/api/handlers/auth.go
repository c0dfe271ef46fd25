package handlers

import (
	"encoding/json"
	"net/http"

	"studypilot/backend/internal/api/dto"
	"studypilot/backend/internal/api/middleware"
	"studypilot/backend/internal/auth"
	"studypilot/backend/internal/config"
	"studypilot/backend/internal/domain/profile"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/utils"
	"studypilot/backend/internal/pkg/validator"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	profiles  profile.Service
	config    *config.Config
	logger    *logger.Logger
	validator *validator.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	profiles profile.Service,
	cfg *config.Config,
	log *logger.Logger,
	val *validator.Validator,
) *AuthHandler {
	return &AuthHandler{
		profiles:  profiles,
		config:    cfg,
		logger:    log,
		validator: val,
	}
}

// Register handles user registration
// @Summary Register a new account
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.AuthResponse "Account created"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 409 {object} utils.ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if validationErrs := h.validator.Validate(req); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return
	}

	p, err := h.profiles.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err, errors.Internal("Failed to register", err))
		return
	}

	h.respondWithTokens(w, http.StatusCreated, p)
}

// Login handles user login
// @Summary User login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse "Successfully authenticated"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Failure 401 {object} utils.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if validationErrs := h.validator.Validate(req); len(validationErrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", validationErrs))
		return
	}

	p, err := h.profiles.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.With("email", req.Email).Warn("Authentication failed")
		writeServiceError(w, err, errors.Unauthorized("Invalid credentials"))
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"user_id": p.ID,
		"email":   p.Email,
	}).Info("User logged in successfully")

	h.respondWithTokens(w, http.StatusOK, p)
}

// Refresh exchanges a valid refresh token for a fresh token pair
// @Summary Refresh tokens
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} dto.AuthResponse "New token pair"
// @Failure 401 {object} utils.ErrorResponse "Invalid refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	tokenStr := ""
	if cookie, err := r.Cookie("refreshToken"); err == nil {
		tokenStr = cookie.Value
	}
	if tokenStr == "" {
		var req dto.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			tokenStr = req.RefreshToken
		}
	}
	if tokenStr == "" {
		utils.WriteError(w, errors.Unauthorized("Missing refresh token"))
		return
	}

	claims, err := auth.ParseClaims(tokenStr, h.config.Auth.JWTSecret)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Invalid or expired refresh token"))
		return
	}

	p, err := h.profiles.GetByID(r.Context(), claims.UserID)
	if err != nil {
		utils.WriteError(w, errors.Unauthorized("Account no longer exists"))
		return
	}

	h.respondWithTokens(w, http.StatusOK, p)
}

// Me returns the authenticated user's public profile
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.UserDTO "Current user"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}

	p, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, errors.Internal("Failed to load profile", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.UserDTO{ID: p.ID, Email: p.Email, Plan: p.Plan})
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, status int, p *profile.Profile) {
	tokens, err := auth.MintTokens(
		p.ID,
		p.Email,
		h.config.Auth.JWTSecret,
		h.config.Auth.AccessTokenExpiry,
		h.config.Auth.RefreshTokenExpiry,
	)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to generate tokens")
		utils.WriteError(w, errors.Internal("Failed to generate tokens", err))
		return
	}

	secure := h.config.Server.Environment == "production"
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    tokens.AccessToken,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(h.config.Auth.AccessTokenExpiry.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    tokens.RefreshToken,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   int(h.config.Auth.RefreshTokenExpiry.Seconds()),
	})

	utils.WriteSuccess(w, status, dto.AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         &dto.UserDTO{ID: p.ID, Email: p.Email, Plan: p.Plan},
	})
}
