package handlers

import (
	"io"
	"net/http"

	"studypilot/backend/internal/api/middleware"
	"studypilot/backend/internal/pkg/errors"
	"studypilot/backend/internal/pkg/logger"
	"studypilot/backend/internal/pkg/utils"
	"studypilot/backend/internal/services"
)

// maxWebhookBody bounds the webhook payload read, per Stripe's guidance.
const maxWebhookBody = int64(65536)

// BillingHandler handles checkout sessions and billing webhooks.
type BillingHandler struct {
	billing *services.BillingService
	logger  *logger.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing *services.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, logger: log}
}

// CreateCheckoutSession starts a subscription checkout for the caller
// @Summary Create a checkout session
// @Tags Billing
// @Produce json
// @Success 200 "Checkout URL"
// @Failure 401 {object} utils.ErrorResponse "Not authenticated"
// @Router /create-checkout-session [post]
func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Not authenticated"))
		return
	}
	email, _ := middleware.GetUserEmail(r)

	url, err := h.billing.CreateCheckoutSession(r.Context(), userID, email)
	if err != nil {
		writeServiceError(w, err, errors.Internal("Failed to create checkout session", err))
		return
	}

	// Flat shape: the pricing page redirects to this URL directly.
	utils.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook receives billing provider events. The signature is verified
// before anything else; verified events are always acknowledged with 200
// even when they match no profile, since retries cannot change that.
// @Summary Billing webhook
// @Tags Billing
// @Accept json
// @Produce json
// @Success 200 "Event received"
// @Failure 400 "Invalid signature or payload"
// @Router /stripe/webhook [post]
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read webhook body")
		utils.WriteFlatError(w, http.StatusServiceUnavailable, "Failed to read request body", false)
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		utils.WriteFlatError(w, http.StatusBadRequest, "Missing stripe-signature", false)
		return
	}

	event, err := h.billing.VerifyEvent(payload, sig)
	if err != nil {
		h.logger.WithError(err).Warn("Webhook signature verification failed")
		utils.WriteFlatError(w, http.StatusBadRequest, "Invalid payload", false)
		return
	}

	if err := h.billing.HandleEvent(r.Context(), event); err != nil {
		// Non-2xx makes the provider retry, which is what we want for
		// transient store failures.
		h.logger.WithError(err).With("event_id", event.ID).Error("Failed to apply webhook event")
		utils.WriteFlatError(w, http.StatusInternalServerError, "Failed to process event", false)
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
