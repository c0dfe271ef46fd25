package handlers

import (
	"encoding/json"
	"net/http"

	"studypilot/backend/internal/api/dto"
	"studypilot/backend/internal/api/middleware"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/metrics"
	"studypilot/backend/internal/pkg/utils"
	"studypilot/backend/internal/pkg/validator"
	"studypilot/backend/internal/services"
)

// GenerateHandler exposes the generation features. Unlike the rest of the
// API these endpoints speak flat JSON: the success payload is the feature's
// document and failures are {"error": ...}, with "upgrade": true marking
// denials that a plan upgrade would lift.
type GenerateHandler struct {
	generation *services.GenerationService
	logger     *logger.Logger
	validator  *validator.Validator
}

// NewGenerateHandler creates a new generation handler
func NewGenerateHandler(generation *services.GenerationService, log *logger.Logger, val *validator.Validator) *GenerateHandler {
	return &GenerateHandler{
		generation: generation,
		logger:     log,
		validator:  val,
	}
}

// decodeRequest parses and validates a generation request body. It writes
// the flat 400 response itself and reports whether the handler may proceed.
func (h *GenerateHandler) decodeRequest(w http.ResponseWriter, r *http.Request, feature string, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		metrics.RecordGeneration(feature, "invalid")
		utils.WriteFlatError(w, http.StatusBadRequest, "Invalid request body", false)
		return false
	}
	if validationErrs := h.validator.Validate(req); len(validationErrs) > 0 {
		metrics.RecordGeneration(feature, "invalid")
		utils.WriteFlatError(w, http.StatusBadRequest, validationErrs[0].Message, false)
		return false
	}
	return true
}

// userID resolves the authenticated user, writing the flat 401 on failure.
func (h *GenerateHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteFlatError(w, http.StatusUnauthorized, "Not authenticated", false)
	}
	return userID, ok
}

// respond writes the generation outcome: the flat document on success, or
// the flat error carrying the upgrade flag on denial.
func (h *GenerateHandler) respond(w http.ResponseWriter, feature string, result interface{}, err error) {
	if err == nil {
		utils.WriteJSON(w, http.StatusOK, result)
		return
	}
	if appErr, ok := err.(*errors.AppError); ok {
		upgrade := appErr.Code == errors.ErrCodeUpgradeRequired
		utils.WriteFlatError(w, appErr.StatusCode, appErr.Message, upgrade)
		return
	}
	h.logger.WithError(err).With("feature", feature).Error("Generation failed")
	utils.WriteFlatError(w, http.StatusInternalServerError, "Failed to generate "+feature+".", false)
}

// Notes generates study notes from free text
// @Summary Generate study notes
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.NotesRequest true "Source text"
// @Success 200 {object} dto.NotesResponse
// @Failure 403 "Daily limit reached"
// @Router /generate [post]
func (h *GenerateHandler) Notes(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.NotesRequest
	if !h.decodeRequest(w, r, "notes", &req) {
		return
	}
	result, err := h.generation.Notes(r.Context(), userID, req)
	h.respond(w, "notes", result, err)
}

// QnA generates question-answer pairs for a topic
// @Summary Generate Q&A pairs
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.QnARequest true "Topic"
// @Success 200 {object} dto.QnAResponse
// @Failure 403 "Daily limit reached"
// @Router /generate-qna [post]
func (h *GenerateHandler) QnA(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.QnARequest
	if !h.decodeRequest(w, r, "qna", &req) {
		return
	}
	result, err := h.generation.QnA(r.Context(), userID, req)
	h.respond(w, "qna", result, err)
}

// Flashcards generates flashcards for a topic
// @Summary Generate flashcards
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.FlashcardsRequest true "Topic"
// @Success 200 {object} dto.FlashcardsResponse
// @Failure 403 "Premium required"
// @Router /generate-flashcards [post]
func (h *GenerateHandler) Flashcards(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.FlashcardsRequest
	if !h.decodeRequest(w, r, "flashcards", &req) {
		return
	}
	result, err := h.generation.Flashcards(r.Context(), userID, req)
	h.respond(w, "flashcards", result, err)
}

// Test generates a full exam for a topic
// @Summary Generate a practice test
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.TestRequest true "Topic"
// @Success 200 {object} dto.TestResponse
// @Failure 403 "Premium required"
// @Router /generate-test [post]
func (h *GenerateHandler) Test(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.TestRequest
	if !h.decodeRequest(w, r, "test", &req) {
		return
	}
	result, err := h.generation.Test(r.Context(), userID, req)
	h.respond(w, "test", result, err)
}

// Citations generates formatted citations
// @Summary Generate citations
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.CitationsRequest true "Topic, style, count"
// @Success 200 {object} dto.CitationsResponse
// @Failure 403 "Premium required"
// @Router /generate-citations [post]
func (h *GenerateHandler) Citations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.CitationsRequest
	if !h.decodeRequest(w, r, "citations", &req) {
		return
	}
	result, err := h.generation.Citations(r.Context(), userID, req)
	h.respond(w, "citations", result, err)
}

// Presentation generates a slide deck outline
// @Summary Generate a presentation outline
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.PresentationRequest true "Topic and slide count"
// @Success 200 {object} dto.PresentationResponse
// @Failure 403 "Premium required"
// @Router /generate-presentation [post]
func (h *GenerateHandler) Presentation(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.PresentationRequest
	if !h.decodeRequest(w, r, "presentation", &req) {
		return
	}
	result, err := h.generation.Presentation(r.Context(), userID, req)
	h.respond(w, "presentation", result, err)
}

// VisualMap generates a concept map
// @Summary Generate a concept map
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.VisualMapRequest true "Topic"
// @Success 200 {object} dto.VisualMapResponse
// @Failure 403 "Premium required"
// @Router /generate-visual-map [post]
func (h *GenerateHandler) VisualMap(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.VisualMapRequest
	if !h.decodeRequest(w, r, "visual-map", &req) {
		return
	}
	result, err := h.generation.VisualMap(r.Context(), userID, req)
	h.respond(w, "visual-map", result, err)
}

// Grammar corrects a text in the requested tone
// @Summary Correct grammar
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.GrammarRequest true "Text and tone"
// @Success 200 {object} dto.GrammarResponse
// @Failure 403 "Premium required"
// @Router /grammar [post]
func (h *GenerateHandler) Grammar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.GrammarRequest
	if !h.decodeRequest(w, r, "grammar", &req) {
		return
	}
	result, err := h.generation.Grammar(r.Context(), userID, req)
	h.respond(w, "grammar", result, err)
}

// Paraphrase rewrites a text
// @Summary Paraphrase text
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.ParaphraseRequest true "Text"
// @Success 200 {object} dto.ParaphraseResponse
// @Failure 403 "Premium required"
// @Router /paraphrase [post]
func (h *GenerateHandler) Paraphrase(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.ParaphraseRequest
	if !h.decodeRequest(w, r, "paraphrase", &req) {
		return
	}
	result, err := h.generation.Paraphrase(r.Context(), userID, req)
	h.respond(w, "paraphrase", result, err)
}

// Career generates career guidance
// @Summary Generate career guidance
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.CareerRequest true "Mode, role, answers"
// @Success 200 {object} dto.CareerResponse
// @Failure 403 "Premium required"
// @Router /career [post]
func (h *GenerateHandler) Career(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.CareerRequest
	if !h.decodeRequest(w, r, "career", &req) {
		return
	}
	result, err := h.generation.Career(r.Context(), userID, req)
	h.respond(w, "career", result, err)
}

// StudyPlan generates a day-by-day study plan
// @Summary Generate a study plan
// @Tags Generate
// @Accept json
// @Produce json
// @Param request body dto.StudyPlanRequest true "Subject, exam date, hours per day"
// @Success 200 {object} dto.StudyPlanResponse
// @Failure 403 "Premium required"
// @Router /generate-study-plan [post]
func (h *GenerateHandler) StudyPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req dto.StudyPlanRequest
	if !h.decodeRequest(w, r, "study-plan", &req) {
		return
	}
	result, err := h.generation.StudyPlan(r.Context(), userID, req)
	h.respond(w, "study-plan", result, err)
}
