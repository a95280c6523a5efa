package telephony

import (
	"net/http"
	"net/url"

	"baitboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

// parseSignedForm parses the webhook form body and verifies the provider
// signature before anything else. Signature rejection happens before field
// validation or any lookup, so a forged payload learns nothing about stored
// calls.
//
// The signed URL is reconstructed from the configured public base URL plus
// the request URI, because the provider signs what it dialed, not what the
// reverse proxy forwarded.
func parseSignedForm(c *gin.Context, v *SignatureValidator, publicBaseURL string) (url.Values, bool) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("webhook form parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return nil, false
	}

	if v == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "telephony provider not configured"})
		return nil, false
	}

	signedURL := publicBaseURL + c.Request.URL.RequestURI()
	if !v.Valid(signedURL, c.Request.PostForm, c.GetHeader(SignatureHeader)) {
		log.Warn("webhook signature rejected", "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return nil, false
	}

	return c.Request.PostForm, true
}
