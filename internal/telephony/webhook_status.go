package telephony

import (
	"log/slog"
	"net/http"
	"strconv"

	"baitboard/internal/calls"
	"baitboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// StatusWebhookHandler consumes the provider's call-status callbacks.
//
// Deliveries are at-least-once and possibly out of order. Safety comes from
// the order of checks: signature first, then field validation, then the
// terminal-state guard against a fresh read. Only a persistence failure
// returns 5xx, because that is the one case where a provider retry can help.
type StatusWebhookHandler struct {
	Calls     *calls.Service
	Validator *SignatureValidator

	// PublicBaseURL is what the provider saw when it signed the request.
	PublicBaseURL string
}

func (h StatusWebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	form, ok := parseSignedForm(c, h.Validator, h.PublicBaseURL)
	if !ok {
		return
	}

	callSid := form.Get("CallSid")
	providerStatus := form.Get("CallStatus")
	if callSid == "" || providerStatus == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid and CallStatus are required"})
		return
	}

	status := calls.MapProviderStatus(providerStatus)
	if !knownProviderStatus(providerStatus) {
		// Classified as failed by the mapping's default arm. Logged so new
		// provider vocabulary gets noticed by an operator.
		log.Warn("unrecognized provider call status", "callSid", callSid, "callStatus", providerStatus)
	}

	duration := parseDuration(form.Get("CallDuration"), log, callSid)

	res, err := h.Calls.ApplyProviderStatus(c.Request.Context(), callSid, status, duration)
	if err != nil {
		log.Error("status update failed", "callSid", callSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	switch res.Outcome {
	case calls.OutcomeNotFound:
		// The call record may be created moments later by the incoming-call
		// webhook. Respond 200 so the provider does not retry.
		log.Warn("status for unknown call", "callSid", callSid, "callStatus", providerStatus)
		c.JSON(http.StatusOK, gin.H{"warning": "call not found", "callSid": callSid})
	case calls.OutcomeAlreadyTerminal:
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "already_terminal"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"callId":   res.Call.ID,
			"status":   res.Call.Status,
			"duration": res.Call.DurationSeconds,
		})
	}
}

// parseDuration treats non-numeric or negative values as absent; a bad
// duration never fails the request.
func parseDuration(raw string, log *slog.Logger, callSid string) *int {
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Warn("ignoring invalid call duration", "callSid", callSid, "callDuration", raw)
		return nil
	}
	return &n
}

func knownProviderStatus(s string) bool {
	switch s {
	case "queued", "ringing", "in-progress", "completed", "busy", "failed", "no-answer", "canceled":
		return true
	default:
		return false
	}
}
