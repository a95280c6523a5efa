package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"baitboard/internal/settings"
	"baitboard/pkg/logger"
)

func (h Handlers) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.Settings.Get())
}

// PutSettings replaces the whole settings document. Partial updates are not
// supported; the dashboard always sends the full document.
func (h Handlers) PutSettings(c *gin.Context) {
	var req settings.Settings
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "invalid json"})
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, h.Env, ValidationError{Msg: err.Error()})
		return
	}
	if err := h.Settings.Put(req); err != nil {
		respondError(c, h.Env, err)
		return
	}
	actor, ip := actorFromContext(c)
	if h.Audit != nil {
		if err := h.Audit.LogSettingsUpdate(c.Request.Context(), actor, ip); err != nil {
			logger.FromGin(c).Error("audit append failed", "err", err)
		}
	}
	c.JSON(http.StatusOK, h.Settings.Get())
}
