package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"baitboard/internal/audit"
	"baitboard/internal/auth"
	"baitboard/internal/calls"
	"baitboard/internal/config"
	"baitboard/internal/health"
	"baitboard/internal/settings"
	"baitboard/internal/storage"
)

func init() { gin.SetMode(gin.TestMode) }

const testPassword = "correct-horse"

type rig struct {
	t        *testing.T
	handlers Handlers
	router   *gin.Engine

	repo      *calls.MemoryRepo
	svc       *calls.Service
	auditRepo *audit.MemoryRepo
	store     *settings.Store
	uploads   *storage.MemoryStore
}

// newRig wires handlers over in-memory collaborators and mounts the same
// route shape the binary uses, minus auth middleware (exercised separately).
func newRig(t *testing.T) *rig {
	t.Helper()

	repo := calls.NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)

	store := settings.NewStoreWithIO("settings.yaml",
		func(string) ([]byte, error) { return nil, os.ErrNotExist },
		func(string, []byte) error { return nil },
	)
	svc := calls.NewService(repo, store, auditSvc)
	uploads := storage.NewMemoryStore("https://cdn.test")

	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	rg := &rig{
		t: t,
		handlers: Handlers{
			Auth:              mgr,
			Calls:             svc,
			Stats:             calls.NewStatsService(repo, nil, 0),
			Settings:          store,
			Audit:             auditSvc,
			Uploads:           uploads,
			Health:            health.Checker{PingDB: func(context.Context) error { return nil }, TelephonyConfigured: true, StorageConfigured: true},
			AdminPasswordHash: hash,
			Env:               "test",
			SiteName:          "baitboard.test",
		},
		repo:      repo,
		svc:       svc,
		auditRepo: auditRepo,
		store:     store,
		uploads:   uploads,
	}
	rg.mount()
	return rg
}

// mount (re)builds the router from the current handlers value. Tests that
// swap a collaborator call it again before issuing requests.
func (rg *rig) mount() {
	h := rg.handlers
	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/refresh", h.Refresh)
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api/v1")
	api.GET("/calls", h.ListCalls)
	api.GET("/calls/:id", h.GetCall)
	api.PATCH("/calls/:id", h.PatchCall)
	api.DELETE("/calls/:id", h.DeleteCall)
	api.POST("/calls/:id/segments", h.IngestSegments)
	api.POST("/calls/:id/share-card", h.ShareCard)
	api.GET("/stats/dashboard", h.DashboardStats)
	api.GET("/stats/leaderboard", h.Leaderboard)
	api.GET("/settings", h.GetSettings)
	api.PUT("/settings", h.PutSettings)

	pub := r.Group("/public")
	pub.GET("/hall-of-fame", h.HallOfFame)
	pub.GET("/calls/:id/embed", h.Embed)

	rg.router = r
}

func (rg *rig) do(method, path string, body any) *httptest.ResponseRecorder {
	rg.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			rg.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rg.router.ServeHTTP(w, req)
	return w
}

func doRaw(t *testing.T, r *gin.Engine, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

// seedCompleted creates a call and drives it to completed with the given
// duration, returning its id.
func (rg *rig) seedCompleted(sid string, duration int) string {
	rg.t.Helper()
	ctx := context.Background()
	call, err := rg.svc.RecordIncoming(ctx, sid, "+15005550006", "+15005550007", "grandma")
	if err != nil {
		rg.t.Fatalf("seed %s: %v", sid, err)
	}
	if _, err := rg.svc.ApplyProviderStatus(ctx, sid, calls.StatusCompleted, &duration); err != nil {
		rg.t.Fatalf("complete %s: %v", sid, err)
	}
	return call.ID
}
