package calls

import "time"

// Call represents one scam-bait phone call handled by the voice agent.
//
// Lifecycle invariant: once Status is terminal (completed, failed, no_answer)
// no further status transition is applied. DurationSeconds, once set by the
// completed transition, is the authoritative call length.
type Call struct {
	ID             string `json:"id" db:"id"`
	ProviderCallID string `json:"callSid" db:"provider_call_id"`

	FromNumber string `json:"fromNumber" db:"from_number"`
	ToNumber   string `json:"toNumber" db:"to_number"`

	Status CallStatus `json:"status" db:"status"`

	// DurationSeconds is nil until the call completes with a valid duration.
	DurationSeconds *int `json:"duration" db:"duration_seconds"`

	RecordingURL  string `json:"recordingUrl,omitempty" db:"recording_url"`
	TranscriptSID string `json:"transcriptSid,omitempty" db:"transcript_sid"`

	// Annotation metadata, mutated via the dashboard.
	Title     string   `json:"title,omitempty" db:"title"`
	Notes     string   `json:"notes,omitempty" db:"notes"`
	Rating    *int     `json:"rating,omitempty" db:"rating"`
	Tags      []string `json:"tags" db:"tags"`
	Public    bool     `json:"public" db:"public"`
	Featured  bool     `json:"featured" db:"featured"`
	PersonaID string   `json:"personaId,omitempty" db:"persona_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CallStatus string

const (
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in_progress"
	StatusCompleted  CallStatus = "completed"
	StatusFailed     CallStatus = "failed"
	StatusNoAnswer   CallStatus = "no_answer"
)

// IsTerminal reports whether no further status transition may be applied.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusNoAnswer:
		return true
	default:
		return false
	}
}

// MapProviderStatus translates the provider's status vocabulary to the
// internal enum. The mapping is total: anything unrecognized is classified
// as failed. Callers should log the raw value when the default arm is hit
// so new provider vocabulary gets noticed.
func MapProviderStatus(providerStatus string) CallStatus {
	switch providerStatus {
	case "queued", "ringing":
		return StatusRinging
	case "in-progress":
		return StatusInProgress
	case "completed":
		return StatusCompleted
	case "busy", "failed", "canceled":
		return StatusFailed
	case "no-answer":
		return StatusNoAnswer
	default:
		return StatusFailed
	}
}

// Speaker identifies a conversation participant in a transcript segment.
type Speaker string

const (
	SpeakerBot    Speaker = "bot"
	SpeakerCaller Speaker = "caller"
	SpeakerSystem Speaker = "system"
)

func (s Speaker) Valid() bool {
	switch s {
	case SpeakerBot, SpeakerCaller, SpeakerSystem:
		return true
	default:
		return false
	}
}

// CallSegment is one transcript utterance. Segments are immutable once
// written and are owned exclusively by their parent call (cascade-deleted
// with it).
type CallSegment struct {
	ID            string    `json:"id" db:"id"`
	CallID        string    `json:"callId" db:"call_id"`
	Speaker       Speaker   `json:"speaker" db:"speaker"`
	Text          string    `json:"text" db:"text"`
	OffsetSeconds int       `json:"offsetSeconds" db:"offset_seconds"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
