package api

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/logger"
)

// maxWebhookBody caps the accepted payload size. Invoice events carry
// the full line-item expansion and can run well past 64KB.
const maxWebhookBody = 1 << 20

// webhookHandler receives signed processor events
func (h *Handler) webhookHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, "failed to read body")
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if err := h.router.Process(r.Context(), payload, sig); err != nil {
		if stderrors.Is(err, errors.ErrBadSignature) {
			h.writeErrorResponse(w, r, http.StatusBadRequest, "invalid signature")
			return
		}
		logger.Error("Webhook processing failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, "event processing failed")
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]bool{"received": true})
}

// billingRunHandler triggers a billing run outside the schedule
func (h *Handler) billingRunHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orch.RunBilling(r.Context())
	if err != nil {
		logger.Error("Manual billing run failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSONResponse(w, http.StatusOK, summary)
}

// subscriptionSyncHandler triggers a subscription sync pass
func (h *Handler) subscriptionSyncHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.subs.SyncAll(r.Context())
	if err != nil {
		logger.Error("Manual subscription sync failed", "error", err)
		h.writeErrorResponse(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSONResponse(w, http.StatusOK, summary)
}
