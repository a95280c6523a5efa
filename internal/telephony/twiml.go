package telephony

import (
	"bytes"
	"encoding/xml"
	"sort"
)

// Minimal TwiML builder: only the verbs this service emits.
// Intentionally avoids any provider SDK dependency.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlConnect struct {
	XMLName xml.Name    `xml:"Connect"`
	Stream  twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter,omitempty"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

// StreamConnect describes the media stream handoff to the voice agent.
type StreamConnect struct {
	Greeting      string
	GreetingVoice string
	StreamURL     string
	Parameters    map[string]string
}

// RenderStreamTwiML renders the answer document for an accepted call.
func RenderStreamTwiML(sc StreamConnect) (string, error) {
	var r twimlResponse
	if sc.Greeting != "" {
		r.Verbs = append(r.Verbs, twimlSay{Voice: sc.GreetingVoice, Text: sc.Greeting})
	}
	stream := twimlStream{URL: sc.StreamURL}
	// Stable parameter order keeps the rendered document diffable in logs.
	for _, name := range sortedKeys(sc.Parameters) {
		stream.Parameters = append(stream.Parameters, twimlParameter{Name: name, Value: sc.Parameters[name]})
	}
	r.Verbs = append(r.Verbs, twimlConnect{Stream: stream})
	return encodeTwiML(r)
}

// RenderRejectTwiML renders a busy rejection; callers ring through without
// hearing anything from us.
func RenderRejectTwiML() (string, error) {
	return encodeTwiML(twimlResponse{Verbs: []any{twimlReject{Reason: "busy"}}})
}

func encodeTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
