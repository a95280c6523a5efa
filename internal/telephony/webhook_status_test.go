package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"baitboard/internal/calls"

	"github.com/gin-gonic/gin"
)

const (
	testAuthToken = "test-auth-token"
	testBaseURL   = "https://bait.example.com"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStatusRig(t *testing.T) (*gin.Engine, *calls.Service) {
	t.Helper()
	svc := calls.NewService(calls.NewMemoryRepo(), nil, nil)
	h := StatusWebhookHandler{
		Calls:         svc,
		Validator:     NewSignatureValidator(testAuthToken),
		PublicBaseURL: testBaseURL,
	}
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.POST("/webhooks/status", h.Handle)
	return r, svc
}

// postSigned delivers a correctly signed form-encoded webhook.
func postSigned(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	v := NewSignatureValidator(testAuthToken)
	sig := v.Compute(testBaseURL+path, form)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, sig)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func seedInProgress(t *testing.T, svc *calls.Service, sid string) calls.Call {
	t.Helper()
	c, err := svc.RecordIncoming(context.Background(), sid, "+15550001111", "+15552220000", "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.ApplyProviderStatus(context.Background(), sid, calls.StatusInProgress, nil); err != nil {
		t.Fatalf("seed status: %v", err)
	}
	return c
}

func TestStatusWebhookCompletedWithDuration(t *testing.T) {
	r, svc := newStatusRig(t)
	c := seedInProgress(t, svc, "CA1")

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "120")

	w := postSigned(r, "/webhooks/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["success"] != true || body["callId"] != c.ID || body["status"] != "completed" || body["duration"] != float64(120) {
		t.Fatalf("unexpected body: %v", body)
	}

	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != calls.StatusCompleted || got.DurationSeconds == nil || *got.DurationSeconds != 120 {
		t.Fatalf("call not updated: %+v", got)
	}
}

func TestStatusWebhookAlreadyTerminal(t *testing.T) {
	r, svc := newStatusRig(t)
	c := seedInProgress(t, svc, "CA1")

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("CallStatus", "completed")
	form.Set("CallDuration", "120")
	postSigned(r, "/webhooks/status", form)

	// Redelivery, and a conflicting later status, must both be absorbed.
	for _, status := range []string{"completed", "failed", "no-answer", "in-progress"} {
		form.Set("CallStatus", status)
		form.Set("CallDuration", "999")
		w := postSigned(r, "/webhooks/status", form)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		body := decodeBody(t, w)
		if body["success"] != true || body["status"] != "already_terminal" {
			t.Fatalf("expected already_terminal for %q, got %v", status, body)
		}
	}

	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != calls.StatusCompleted || *got.DurationSeconds != 120 {
		t.Fatalf("terminal call mutated: %+v", got)
	}
}

func TestStatusWebhookCompletedWithoutDuration(t *testing.T) {
	r, svc := newStatusRig(t)
	c := seedInProgress(t, svc, "CA1")

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("CallStatus", "completed")

	w := postSigned(r, "/webhooks/status", form)
	body := decodeBody(t, w)
	if body["duration"] != nil {
		t.Fatalf("expected null duration, got %v", body["duration"])
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.DurationSeconds != nil {
		t.Fatalf("duration should remain unset")
	}
}

func TestStatusWebhookInvalidDurationIgnored(t *testing.T) {
	for _, bad := range []string{"abc", "-10", "12.5"} {
		r, svc := newStatusRig(t)
		c := seedInProgress(t, svc, "CA1")

		form := url.Values{}
		form.Set("CallSid", "CA1")
		form.Set("CallStatus", "completed")
		form.Set("CallDuration", bad)

		w := postSigned(r, "/webhooks/status", form)
		if w.Code != http.StatusOK {
			t.Fatalf("duration %q: status = %d", bad, w.Code)
		}
		got, _ := svc.Get(context.Background(), c.ID)
		if got.Status != calls.StatusCompleted {
			t.Fatalf("duration %q: status must still update, got %q", bad, got.Status)
		}
		if got.DurationSeconds != nil {
			t.Fatalf("duration %q: must be dropped, got %d", bad, *got.DurationSeconds)
		}
	}
}

func TestStatusWebhookUnknownCallWarns(t *testing.T) {
	r, _ := newStatusRig(t)

	form := url.Values{}
	form.Set("CallSid", "CA-unknown")
	form.Set("CallStatus", "ringing")

	w := postSigned(r, "/webhooks/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (must not trigger provider retry)", w.Code)
	}
	body := decodeBody(t, w)
	if body["warning"] != "call not found" || body["callSid"] != "CA-unknown" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestStatusWebhookBadSignature(t *testing.T) {
	r, svc := newStatusRig(t)
	seedInProgress(t, svc, "CA1")

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("CallStatus", "completed")

	req := httptest.NewRequest(http.MethodPost, "/webhooks/status", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SignatureHeader, "bogus")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	// Rejection happens before the lookup: the call must be untouched.
	got, err := svc.GetByProviderCallID(context.Background(), "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != calls.StatusInProgress {
		t.Fatalf("call mutated on bad signature: %+v", got)
	}
}

func TestStatusWebhookMissingFields(t *testing.T) {
	r, _ := newStatusRig(t)

	form := url.Values{}
	form.Set("CallStatus", "completed")
	w := postSigned(r, "/webhooks/status", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing CallSid: status = %d, want 400", w.Code)
	}

	form = url.Values{}
	form.Set("CallSid", "CA1")
	w = postSigned(r, "/webhooks/status", form)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing CallStatus: status = %d, want 400", w.Code)
	}
}

func TestStatusWebhookUnmappedStatusBecomesFailed(t *testing.T) {
	r, svc := newStatusRig(t)
	c := seedInProgress(t, svc, "CA1")

	form := url.Values{}
	form.Set("CallSid", "CA1")
	form.Set("CallStatus", "some-future-status")

	w := postSigned(r, "/webhooks/status", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Status != calls.StatusFailed {
		t.Fatalf("expected failed fallback, got %q", got.Status)
	}
}

func TestStatusWebhookMethodNotAllowed(t *testing.T) {
	r, _ := newStatusRig(t)
	req := httptest.NewRequest(http.MethodGet, "/webhooks/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
