package telephony

import (
	"strings"
	"testing"
)

func TestRenderStreamTwiML(t *testing.T) {
	out, err := RenderStreamTwiML(StreamConnect{
		Greeting:      "Hello?",
		GreetingVoice: "Polly.Kimberly",
		StreamURL:     "wss://bait.example.com/media",
		Parameters:    map[string]string{"callSid": "CA1", "personaId": "grandma"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		`<Say voice="Polly.Kimberly">Hello?</Say>`,
		`<Stream url="wss://bait.example.com/media">`,
		`<Parameter name="callSid" value="CA1">`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRenderStreamTwiMLSkipsEmptyGreeting(t *testing.T) {
	out, err := RenderStreamTwiML(StreamConnect{StreamURL: "wss://x/media"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "<Say") {
		t.Fatalf("unexpected Say verb:\n%s", out)
	}
}

func TestRenderRejectTwiML(t *testing.T) {
	out, err := RenderRejectTwiML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `<Reject reason="busy">`) {
		t.Fatalf("expected busy reject:\n%s", out)
	}
}
