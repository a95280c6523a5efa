package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"baitboard/internal/auth"
	"baitboard/internal/health"
)

func TestLoginIssuesTokenPair(t *testing.T) {
	rg := newRig(t)

	w := rg.do(http.MethodPost, "/auth/login", gin.H{"password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	access, _ := body["access_token"].(string)
	if access == "" || body["refresh_token"] == "" {
		t.Fatalf("missing tokens: %v", body)
	}

	claims, err := rg.handlers.Auth.Verify(access, auth.TokenTypeAccess, time.Now())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != auth.RoleAdmin {
		t.Fatalf("role = %q", claims.Role)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	rg := newRig(t)

	w := rg.do(http.MethodPost, "/auth/login", gin.H{"password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decode(t, w); body["code"] != "unauthorized" {
		t.Fatalf("body = %v", body)
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	rg := newRig(t)

	login := decode(t, rg.do(http.MethodPost, "/auth/login", gin.H{"password": testPassword}))
	w := rg.do(http.MethodPost, "/auth/refresh", gin.H{"refresh_token": login["refresh_token"]})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["access_token"] == "" || body["refresh_token"] == "" {
		t.Fatalf("missing tokens: %v", body)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	rg := newRig(t)

	login := decode(t, rg.do(http.MethodPost, "/auth/login", gin.H{"password": testPassword}))
	w := rg.do(http.MethodPost, "/auth/refresh", gin.H{"refresh_token": login["access_token"]})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRequireAccessTokenGuardsRoutes(t *testing.T) {
	rg := newRig(t)

	r := gin.New()
	r.GET("/guarded", auth.RequireAccessToken(rg.handlers.Auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := doRaw(t, r, http.MethodGet, "/guarded", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}

	login := decode(t, rg.do(http.MethodPost, "/auth/login", gin.H{"password": testPassword}))
	w = doRaw(t, r, http.MethodGet, "/guarded", "Bearer "+login["access_token"].(string))
	if w.Code != http.StatusOK {
		t.Fatalf("with token: status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestHealthzOK(t *testing.T) {
	rg := newRig(t)

	w := rg.do(http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthzDegradedStillOKStatus(t *testing.T) {
	rg := newRig(t)
	rg.handlers.Health = health.Checker{
		PingDB: func(context.Context) error { return nil },
		// telephony/storage left unconfigured
	}
	rg.mount()

	w := rg.do(http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "degraded" {
		t.Fatalf("body = %v", body)
	}
}

func TestHealthzUnhealthyIs503(t *testing.T) {
	rg := newRig(t)
	rg.handlers.Health = health.Checker{
		PingDB: func(context.Context) error { return errors.New("down") },
	}
	rg.mount()

	w := rg.do(http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}
