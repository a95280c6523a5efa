package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"baitboard/internal/audit"
	"baitboard/internal/auth"
	"baitboard/internal/calls"
	"baitboard/internal/health"
	"baitboard/internal/settings"
	"baitboard/internal/social"
	"baitboard/internal/storage"
	"baitboard/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth     *auth.Manager
	Calls    *calls.Service
	Stats    *calls.StatsService
	Settings *settings.Store
	Audit    *audit.Service
	Cards    social.Renderer
	Uploads  storage.Uploader
	Health   health.Checker

	// AdminPasswordHash is the bcrypt hash login attempts are checked against.
	AdminPasswordHash string

	// Env controls error redaction; SiteName is stamped on share cards.
	Env      string
	SiteName string
}

// --- Auth ---

// adminUserID is the fixed identity behind the dashboard password.
const adminUserID = "admin"

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the dashboard password and issues a JWT pair. This is a
// single-operator service: a correct password is the admin identity.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.Env, ValidationError{Msg: "invalid json"})
		return
	}
	if err := auth.CheckPassword(h.AdminPasswordHash, req.Password); err != nil {
		logger.FromGin(c).Warn("login rejected", "ip", c.ClientIP())
		respondError(c, h.Env, AuthError{Msg: "bad credentials"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), adminUserID, auth.RoleAdmin)
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair. Role is re-derived, not
// copied from the old token.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		respondError(c, h.Env, ValidationError{Msg: "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		respondError(c, h.Env, AuthError{Msg: "invalid token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID, auth.RoleAdmin)
	if err != nil {
		respondError(c, h.Env, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Health ---

func (h Handlers) Healthz(c *gin.Context) {
	report := h.Health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func actorFromContext(c *gin.Context) (actor, ip string) {
	actor, _ = auth.UserID(c.Request.Context())
	return actor, c.ClientIP()
}
