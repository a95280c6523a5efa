package calls

import (
	"context"
	"testing"
	"time"
)

type staticTagger struct{ tags []string }

func (t staticTagger) Tags(string) []string { return t.tags }

type recordingAudit struct {
	actions []string
}

func (a *recordingAudit) LogCallAction(_ context.Context, action, callID, actor, ip string) error {
	a.actions = append(a.actions, action)
	return nil
}

func newTestService(t *testing.T) (*Service, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	svc := NewService(repo, nil, nil)
	svc.clock = func() time.Time { return time.Unix(1700000000, 0).UTC() }
	return svc, repo
}

func mustRecord(t *testing.T, svc *Service, sid string) Call {
	t.Helper()
	c, err := svc.RecordIncoming(context.Background(), sid, "+15550001111", "+15552223333", "grandma")
	if err != nil {
		t.Fatalf("record incoming: %v", err)
	}
	return c
}

func TestRecordIncomingIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	first := mustRecord(t, svc, "CA100")
	second := mustRecord(t, svc, "CA100")
	if first.ID != second.ID {
		t.Fatalf("expected same call on duplicate delivery")
	}
	if first.Status != StatusRinging {
		t.Fatalf("expected ringing, got %q", first.Status)
	}
}

func TestApplyProviderStatusHappyPath(t *testing.T) {
	svc, _ := newTestService(t)
	mustRecord(t, svc, "CA1")

	d := 120
	res, err := svc.ApplyProviderStatus(context.Background(), "CA1", StatusCompleted, &d)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %q", res.Outcome)
	}
	if res.Call.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q", res.Call.Status)
	}
	if res.Call.DurationSeconds == nil || *res.Call.DurationSeconds != 120 {
		t.Fatalf("expected duration 120, got %v", res.Call.DurationSeconds)
	}
}

func TestApplyProviderStatusTerminalGuard(t *testing.T) {
	for _, terminal := range []CallStatus{StatusCompleted, StatusFailed, StatusNoAnswer} {
		svc, repo := newTestService(t)
		c := mustRecord(t, svc, "CA1")

		if _, err := svc.ApplyProviderStatus(context.Background(), "CA1", terminal, nil); err != nil {
			t.Fatalf("apply terminal: %v", err)
		}

		for _, next := range []CallStatus{StatusRinging, StatusInProgress, StatusCompleted, StatusFailed, StatusNoAnswer} {
			d := 999
			res, err := svc.ApplyProviderStatus(context.Background(), "CA1", next, &d)
			if err != nil {
				t.Fatalf("apply after terminal: %v", err)
			}
			if res.Outcome != OutcomeAlreadyTerminal {
				t.Fatalf("terminal %q then %q: expected already_terminal, got %q", terminal, next, res.Outcome)
			}
		}

		stored, err := repo.GetByID(context.Background(), c.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.Status != terminal {
			t.Fatalf("status moved out of terminal %q to %q", terminal, stored.Status)
		}
		if stored.DurationSeconds != nil && *stored.DurationSeconds == 999 {
			t.Fatalf("duration written after terminal state")
		}
	}
}

func TestApplyProviderStatusDurationOnlyOnCompleted(t *testing.T) {
	svc, _ := newTestService(t)
	mustRecord(t, svc, "CA1")

	d := 60
	res, err := svc.ApplyProviderStatus(context.Background(), "CA1", StatusInProgress, &d)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Call.DurationSeconds != nil {
		t.Fatalf("duration must not be set on in_progress")
	}
}

func TestApplyProviderStatusCompletedWithoutDuration(t *testing.T) {
	svc, _ := newTestService(t)
	mustRecord(t, svc, "CA1")

	res, err := svc.ApplyProviderStatus(context.Background(), "CA1", StatusCompleted, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Outcome != OutcomeApplied || res.Call.Status != StatusCompleted {
		t.Fatalf("expected completed applied")
	}
	if res.Call.DurationSeconds != nil {
		t.Fatalf("expected nil duration, got %v", *res.Call.DurationSeconds)
	}
}

func TestApplyProviderStatusUnknownCall(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.ApplyProviderStatus(context.Background(), "CA-missing", StatusCompleted, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Outcome != OutcomeNotFound {
		t.Fatalf("expected not_found, got %q", res.Outcome)
	}
}

func TestAttachRecordingBackfillsDurationOnce(t *testing.T) {
	svc, _ := newTestService(t)
	mustRecord(t, svc, "CA1")

	d := 45
	c, err := svc.AttachRecording(context.Background(), "CA1", "https://cdn.example.com/rec.mp3", &d)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if c.RecordingURL == "" || c.DurationSeconds == nil || *c.DurationSeconds != 45 {
		t.Fatalf("expected url and duration set: %+v", c)
	}

	// A second recording delivery must not overwrite the duration.
	d2 := 500
	c, err = svc.AttachRecording(context.Background(), "CA1", "https://cdn.example.com/rec2.mp3", &d2)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if *c.DurationSeconds != 45 {
		t.Fatalf("duration overwritten: %d", *c.DurationSeconds)
	}
}

func TestAppendNote(t *testing.T) {
	svc, _ := newTestService(t)
	c := mustRecord(t, svc, "CA1")

	if err := svc.AppendNote(context.Background(), "CA1", "recording failed: 11205"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := svc.AppendNote(context.Background(), "CA1", "second"); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := svc.Get(context.Background(), c.ID)
	if got.Notes != "recording failed: 11205\nsecond" {
		t.Fatalf("unexpected notes: %q", got.Notes)
	}
}

func TestIngestSegmentsRunsTagger(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, staticTagger{tags: []string{"gift-cards", "IRS"}}, nil)
	c := mustRecord(t, svc, "CA1")

	segs, err := svc.IngestSegments(context.Background(), c.ID, []SegmentInput{
		{Speaker: SpeakerCaller, Text: "you owe the IRS back taxes", OffsetSeconds: 3},
		{Speaker: SpeakerBot, Text: "oh dear, let me find my checkbook", OffsetSeconds: 9},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}

	got, _ := svc.Get(context.Background(), c.ID)
	if len(got.Tags) != 2 || got.Tags[0] != "gift-cards" || got.Tags[1] != "irs" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}

	stored, _ := repo.ListSegments(context.Background(), c.ID)
	if len(stored) != 2 || stored[0].OffsetSeconds != 3 {
		t.Fatalf("unexpected stored segments: %+v", stored)
	}
}

func TestIngestSegmentsRejectsUnknownSpeaker(t *testing.T) {
	svc, _ := newTestService(t)
	c := mustRecord(t, svc, "CA1")
	_, err := svc.IngestSegments(context.Background(), c.ID, []SegmentInput{{Speaker: "operator", Text: "hi"}})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestAnnotateValidatesRating(t *testing.T) {
	svc, _ := newTestService(t)
	c := mustRecord(t, svc, "CA1")

	bad := 6
	if _, err := svc.Annotate(context.Background(), c.ID, AnnotationUpdate{Rating: &bad}, "admin", ""); err == nil {
		t.Fatalf("expected rating validation error")
	}

	good := 5
	title := "  The IRS calls grandma  "
	got, err := svc.Annotate(context.Background(), c.ID, AnnotationUpdate{Rating: &good, Title: &title}, "admin", "")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if got.Title != "The IRS calls grandma" {
		t.Fatalf("title not trimmed: %q", got.Title)
	}
	if got.Rating == nil || *got.Rating != 5 {
		t.Fatalf("rating not applied")
	}
}

func TestAnnotateNormalizesTags(t *testing.T) {
	svc, _ := newTestService(t)
	c := mustRecord(t, svc, "CA1")

	got, err := svc.Annotate(context.Background(), c.ID, AnnotationUpdate{Tags: []string{" Gift-Cards ", "irs", "IRS", ""}}, "admin", "")
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "gift-cards" || got.Tags[1] != "irs" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}
}

func TestFeatureToggleAndDeleteAreAudited(t *testing.T) {
	repo := NewMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, nil, audit)
	c := mustRecord(t, svc, "CA1")

	on := true
	if _, err := svc.Annotate(context.Background(), c.ID, AnnotationUpdate{Featured: &on}, "admin", "1.2.3.4"); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if err := svc.Delete(context.Background(), c.ID, "admin", "1.2.3.4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(audit.actions) != 2 || audit.actions[0] != "call_featured" || audit.actions[1] != "call_deleted" {
		t.Fatalf("unexpected audit trail: %v", audit.actions)
	}

	if _, err := svc.Get(context.Background(), c.ID); err != ErrNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
