package telephony

import (
	"context"
	"errors"
	"io"
	"net/http"

	"baitboard/internal/calls"
	"baitboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RecordingFetcher pulls recording audio from the provider.
type RecordingFetcher interface {
	FetchRecording(ctx context.Context, recordingURL string) (io.ReadCloser, string, error)
}

// RecordingStore uploads audio and returns the public URL it is served from.
type RecordingStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// RecordingWebhookHandler consumes recording-status callbacks.
//
// Unlike the status webhook, every outcome past validation responds 200:
// once a recording fetch or upload has failed, a provider redelivery of the
// same payload will fail the same way, so signaling retry is pure noise.
// The failure is written onto the call's notes instead.
type RecordingWebhookHandler struct {
	Calls     *calls.Service
	Validator *SignatureValidator
	Fetcher   RecordingFetcher
	Store     RecordingStore

	PublicBaseURL string
}

func (h RecordingWebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	form, ok := parseSignedForm(c, h.Validator, h.PublicBaseURL)
	if !ok {
		return
	}

	callSid := form.Get("CallSid")
	recordingSid := form.Get("RecordingSid")
	if callSid == "" || recordingSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid and RecordingSid are required"})
		return
	}

	status := form.Get("RecordingStatus")
	switch status {
	case "completed":
		h.handleCompleted(c, form.Get("RecordingUrl"), callSid, recordingSid)
	case "failed":
		note := "recording failed"
		if ec := form.Get("ErrorCode"); ec != "" {
			note += ": provider error " + ec
		}
		if err := h.Calls.AppendNote(c.Request.Context(), callSid, note); err != nil && !errors.Is(err, calls.ErrNotFound) {
			log.Error("recording failure note not written", "callSid", callSid, "err", err)
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "failed_noted"})
	default:
		// in-progress or absent: acknowledge without side effects.
		c.JSON(http.StatusOK, gin.H{"success": true, "status": "ignored"})
	}
}

func (h RecordingWebhookHandler) handleCompleted(c *gin.Context, recordingURL, callSid, recordingSid string) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	if h.Fetcher == nil || h.Store == nil {
		log.Error("recording pipeline not configured", "callSid", callSid)
		c.JSON(http.StatusOK, gin.H{"error": "recording pipeline unavailable"})
		return
	}

	body, contentType, err := h.Fetcher.FetchRecording(ctx, recordingURL)
	if err != nil {
		log.Error("recording fetch failed", "callSid", callSid, "recordingSid", recordingSid, "err", err)
		_ = h.Calls.AppendNote(ctx, callSid, "recording fetch failed")
		c.JSON(http.StatusOK, gin.H{"error": "recording fetch failed"})
		return
	}
	defer body.Close()

	key := "recordings/" + callSid + "/" + recordingSid + ".mp3"
	storedURL, err := h.Store.Upload(ctx, key, contentType, body)
	if err != nil {
		log.Error("recording upload failed", "callSid", callSid, "recordingSid", recordingSid, "err", err)
		_ = h.Calls.AppendNote(ctx, callSid, "recording upload failed")
		c.JSON(http.StatusOK, gin.H{"error": "recording upload failed"})
		return
	}

	duration := parseDuration(c.Request.PostForm.Get("RecordingDuration"), log, callSid)

	call, err := h.Calls.AttachRecording(ctx, callSid, storedURL, duration)
	if errors.Is(err, calls.ErrNotFound) {
		log.Warn("recording for unknown call", "callSid", callSid)
		c.JSON(http.StatusOK, gin.H{"warning": "call not found", "callSid": callSid})
		return
	}
	if err != nil {
		log.Error("recording attach failed", "callSid", callSid, "err", err)
		c.JSON(http.StatusOK, gin.H{"error": "recording attach failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"callId":       call.ID,
		"recordingUrl": call.RecordingURL,
	})
}
