package telephony

import (
	"net/http"
	"strings"

	"baitboard/internal/calls"
	"baitboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PersonaSource supplies the persona the voice agent should answer with.
type PersonaSource interface {
	ActivePersona() (id, voice, greeting string)
}

// IncomingWebhookHandler answers the provider's inbound-voice webhook.
// It creates the call record and hands the audio leg to the voice agent via
// a media stream. Creation is idempotent on the provider call id because the
// provider may redeliver.
type IncomingWebhookHandler struct {
	Calls     *calls.Service
	Validator *SignatureValidator
	Personas  PersonaSource

	PublicBaseURL string
}

func (h IncomingWebhookHandler) Handle(c *gin.Context) {
	log := logger.FromGin(c)

	form, ok := parseSignedForm(c, h.Validator, h.PublicBaseURL)
	if !ok {
		return
	}

	callSid := form.Get("CallSid")
	if callSid == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "CallSid is required"})
		return
	}
	from := strings.TrimSpace(form.Get("From"))
	to := strings.TrimSpace(form.Get("To"))

	personaID, voice, greeting := "", "", ""
	if h.Personas != nil {
		personaID, voice, greeting = h.Personas.ActivePersona()
	}

	call, err := h.Calls.RecordIncoming(c.Request.Context(), callSid, from, to, personaID)
	if err != nil {
		log.Error("incoming call not recorded", "callSid", callSid, "err", err)
		// Reject rather than answer a call we cannot track.
		twiml, rerr := RenderRejectTwiML()
		if rerr != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
			return
		}
		c.Header("Content-Type", "application/xml")
		c.String(http.StatusOK, twiml)
		return
	}

	twiml, err := RenderStreamTwiML(StreamConnect{
		Greeting:      greeting,
		GreetingVoice: voice,
		StreamURL:     mediaStreamURL(h.PublicBaseURL),
		Parameters: map[string]string{
			"callSid":   callSid,
			"callId":    call.ID,
			"personaId": personaID,
		},
	})
	if err != nil {
		log.Error("twiml render failed", "callSid", callSid, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

// mediaStreamURL converts the public https base into the wss media endpoint
// the voice agent listens on.
func mediaStreamURL(publicBaseURL string) string {
	ws := publicBaseURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimRight(ws, "/") + "/media"
}
