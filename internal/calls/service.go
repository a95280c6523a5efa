package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidArgument = errors.New("calls: invalid argument")

// Tagger derives tags from transcript text. Implementations scan for
// configured keywords; see internal/tagging.
type Tagger interface {
	Tags(text string) []string
}

// AuditLog records moderation actions. Logging is best-effort: failures are
// surfaced to the caller's logger, never to the user.
type AuditLog interface {
	LogCallAction(ctx context.Context, action, callID, actor, ip string) error
}

// Service owns call lifecycle writes and dashboard mutations.
//
// Concurrency note: the terminal-state guard is re-evaluated from a fresh
// read immediately before each write. There is no row locking; a race
// between two concurrent terminal transitions is an accepted inconsistency
// window (both deliveries carry provider truth).
type Service struct {
	repo   Repository
	tagger Tagger
	audit  AuditLog
	clock  func() time.Time
}

// NewService wires the call service. tagger and audit may be nil.
func NewService(repo Repository, tagger Tagger, audit AuditLog) *Service {
	return &Service{repo: repo, tagger: tagger, audit: audit, clock: time.Now}
}

// RecordIncoming creates the call record for a newly arrived call.
// A duplicate delivery for the same provider call id returns the existing
// record unchanged.
func (s *Service) RecordIncoming(ctx context.Context, providerCallID, from, to, personaID string) (Call, error) {
	if providerCallID == "" {
		return Call{}, fmt.Errorf("%w: provider call id required", ErrInvalidArgument)
	}
	now := s.clock().UTC()
	c := Call{
		ID:             uuid.NewString(),
		ProviderCallID: providerCallID,
		FromNumber:     from,
		ToNumber:       to,
		Status:         StatusRinging,
		Tags:           []string{},
		PersonaID:      personaID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.repo.Create(ctx, c)
	if errors.Is(err, ErrDuplicate) {
		return s.repo.GetByProviderCallID(ctx, providerCallID)
	}
	if err != nil {
		return Call{}, err
	}
	return c, nil
}

// StatusOutcome classifies the result of a provider status delivery.
type StatusOutcome string

const (
	OutcomeApplied         StatusOutcome = "applied"
	OutcomeAlreadyTerminal StatusOutcome = "already_terminal"
	OutcomeNotFound        StatusOutcome = "not_found"
)

type StatusUpdateResult struct {
	Outcome StatusOutcome
	Call    Call
}

// ApplyProviderStatus applies one status transition.
//
// Terminal statuses absorb: if the stored status is already terminal the
// delivery is acknowledged without a write, whatever the new status is.
// duration is written only when the transition lands on completed.
func (s *Service) ApplyProviderStatus(ctx context.Context, providerCallID string, next CallStatus, duration *int) (StatusUpdateResult, error) {
	c, err := s.repo.GetByProviderCallID(ctx, providerCallID)
	if errors.Is(err, ErrNotFound) {
		return StatusUpdateResult{Outcome: OutcomeNotFound}, nil
	}
	if err != nil {
		return StatusUpdateResult{}, err
	}

	if c.Status.IsTerminal() {
		return StatusUpdateResult{Outcome: OutcomeAlreadyTerminal, Call: c}, nil
	}

	c.Status = next
	if next == StatusCompleted && duration != nil {
		d := *duration
		c.DurationSeconds = &d
	}
	c.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return StatusUpdateResult{}, err
	}
	return StatusUpdateResult{Outcome: OutcomeApplied, Call: c}, nil
}

// AttachRecording stores the uploaded recording URL on the call. The
// recording duration backfills the call duration only when the status
// webhook has not already set it.
func (s *Service) AttachRecording(ctx context.Context, providerCallID, recordingURL string, duration *int) (Call, error) {
	c, err := s.repo.GetByProviderCallID(ctx, providerCallID)
	if err != nil {
		return Call{}, err
	}
	c.RecordingURL = recordingURL
	if c.DurationSeconds == nil && duration != nil {
		d := *duration
		c.DurationSeconds = &d
	}
	c.UpdatedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return Call{}, err
	}
	return c, nil
}

// AppendNote adds a line to the call's notes. Used by the recording webhook
// to surface provider-side failures to the dashboard.
func (s *Service) AppendNote(ctx context.Context, providerCallID, note string) error {
	c, err := s.repo.GetByProviderCallID(ctx, providerCallID)
	if err != nil {
		return err
	}
	if c.Notes == "" {
		c.Notes = note
	} else {
		c.Notes = c.Notes + "\n" + note
	}
	c.UpdatedAt = s.clock().UTC()
	return s.repo.Update(ctx, c)
}

// SegmentInput is one transcript utterance to ingest.
type SegmentInput struct {
	Speaker       Speaker
	Text          string
	OffsetSeconds int
}

// IngestSegments appends transcript segments to a call and runs the
// auto-tagger over the new text, merging any hits into the call's tags.
func (s *Service) IngestSegments(ctx context.Context, callID string, in []SegmentInput) ([]CallSegment, error) {
	if len(in) == 0 {
		return nil, nil
	}
	c, err := s.repo.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	segs := make([]CallSegment, 0, len(in))
	var text strings.Builder
	for _, seg := range in {
		if !seg.Speaker.Valid() {
			return nil, fmt.Errorf("%w: unknown speaker %q", ErrInvalidArgument, seg.Speaker)
		}
		if seg.OffsetSeconds < 0 {
			return nil, fmt.Errorf("%w: negative segment offset", ErrInvalidArgument)
		}
		segs = append(segs, CallSegment{
			ID:            uuid.NewString(),
			CallID:        callID,
			Speaker:       seg.Speaker,
			Text:          seg.Text,
			OffsetSeconds: seg.OffsetSeconds,
			CreatedAt:     now,
		})
		text.WriteString(seg.Text)
		text.WriteString("\n")
	}

	if err := s.repo.AddSegments(ctx, segs); err != nil {
		return nil, err
	}

	if s.tagger != nil {
		if hits := s.tagger.Tags(text.String()); len(hits) > 0 {
			merged := mergeTags(c.Tags, hits)
			if len(merged) != len(c.Tags) {
				c.Tags = merged
				c.UpdatedAt = now
				if err := s.repo.Update(ctx, c); err != nil {
					return nil, err
				}
			}
		}
	}
	return segs, nil
}

func (s *Service) Get(ctx context.Context, id string) (Call, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	return s.repo.GetByProviderCallID(ctx, providerCallID)
}

func (s *Service) GetWithSegments(ctx context.Context, id string) (Call, []CallSegment, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Call{}, nil, err
	}
	segs, err := s.repo.ListSegments(ctx, id)
	if err != nil {
		return Call{}, nil, err
	}
	return c, segs, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Call, int, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: negative pagination", ErrInvalidArgument)
	}
	if f.Limit == 0 || f.Limit > 100 {
		f.Limit = 50
	}
	return s.repo.List(ctx, f)
}

// AnnotationUpdate carries the dashboard-editable fields. Nil means
// unchanged; Tags == nil means unchanged, an empty slice clears them.
type AnnotationUpdate struct {
	Title     *string
	Notes     *string
	Rating    *int
	Tags      []string
	Public    *bool
	Featured  *bool
	PersonaID *string
}

// Annotate applies dashboard edits to a call.
func (s *Service) Annotate(ctx context.Context, id string, upd AnnotationUpdate, actor, ip string) (Call, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Call{}, err
	}

	if upd.Rating != nil && (*upd.Rating < 1 || *upd.Rating > 5) {
		return Call{}, fmt.Errorf("%w: rating must be 1-5", ErrInvalidArgument)
	}

	featuredBefore := c.Featured
	if upd.Title != nil {
		c.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Notes != nil {
		c.Notes = *upd.Notes
	}
	if upd.Rating != nil {
		c.Rating = upd.Rating
	}
	if upd.Tags != nil {
		c.Tags = normalizeTags(upd.Tags)
	}
	if upd.Public != nil {
		c.Public = *upd.Public
	}
	if upd.Featured != nil {
		c.Featured = *upd.Featured
	}
	if upd.PersonaID != nil {
		c.PersonaID = *upd.PersonaID
	}
	c.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, c); err != nil {
		return Call{}, err
	}

	if s.audit != nil && c.Featured && !featuredBefore {
		_ = s.audit.LogCallAction(ctx, "call_featured", c.ID, actor, ip)
	}
	return c, nil
}

// Delete removes a call and its segments.
func (s *Service) Delete(ctx context.Context, id, actor, ip string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.LogCallAction(ctx, "call_deleted", id, actor, ip)
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func mergeTags(existing, add []string) []string {
	out := append([]string(nil), existing...)
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t] = struct{}{}
	}
	for _, t := range normalizeTags(add) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
