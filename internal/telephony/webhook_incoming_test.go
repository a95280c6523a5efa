package telephony

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"baitboard/internal/calls"

	"github.com/gin-gonic/gin"
)

type fakePersonas struct{}

func (fakePersonas) ActivePersona() (string, string, string) {
	return "grandma", "Polly.Kimberly", "Hello? Who is this?"
}

func newIncomingRig(t *testing.T) (*gin.Engine, *calls.Service) {
	t.Helper()
	svc := calls.NewService(calls.NewMemoryRepo(), nil, nil)
	h := IncomingWebhookHandler{
		Calls:         svc,
		Validator:     NewSignatureValidator(testAuthToken),
		Personas:      fakePersonas{},
		PublicBaseURL: testBaseURL,
	}
	r := gin.New()
	r.POST("/webhooks/voice", h.Handle)
	return r, svc
}

func TestIncomingWebhookCreatesRingingCall(t *testing.T) {
	r, svc := newIncomingRig(t)

	form := url.Values{}
	form.Set("CallSid", "CA42")
	form.Set("From", "+15550001111")
	form.Set("To", "+15559998888")

	w := postSigned(r, "/webhooks/voice", form)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Fatalf("expected xml response, got %q", ct)
	}
	xml := w.Body.String()
	for _, want := range []string{"<Connect>", "wss://bait.example.com/media", "Hello? Who is this?", `name="callSid" value="CA42"`, `name="personaId" value="grandma"`} {
		if !strings.Contains(xml, want) {
			t.Fatalf("expected %q in twiml:\n%s", want, xml)
		}
	}

	got, err := svc.GetByProviderCallID(context.Background(), "CA42")
	if err != nil {
		t.Fatalf("call not created: %v", err)
	}
	if got.Status != calls.StatusRinging || got.FromNumber != "+15550001111" || got.PersonaID != "grandma" {
		t.Fatalf("unexpected call: %+v", got)
	}
}

func TestIncomingWebhookDuplicateDelivery(t *testing.T) {
	r, svc := newIncomingRig(t)

	form := url.Values{}
	form.Set("CallSid", "CA42")
	postSigned(r, "/webhooks/voice", form)
	w := postSigned(r, "/webhooks/voice", form)
	if w.Code != http.StatusOK {
		t.Fatalf("duplicate delivery: status = %d", w.Code)
	}

	rows, total, err := svc.List(context.Background(), calls.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("expected one call, got %d", total)
	}
}

func TestIncomingWebhookMissingCallSid(t *testing.T) {
	r, _ := newIncomingRig(t)
	w := postSigned(r, "/webhooks/voice", url.Values{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestMediaStreamURL(t *testing.T) {
	if got := mediaStreamURL("https://bait.example.com"); got != "wss://bait.example.com/media" {
		t.Fatalf("got %q", got)
	}
	if got := mediaStreamURL("http://localhost:8080"); got != "ws://localhost:8080/media" {
		t.Fatalf("got %q", got)
	}
}
