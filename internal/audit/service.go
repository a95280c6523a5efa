package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.

type Repository interface {
	Append(ctx context.Context, e Event) error
	List(ctx context.Context, limit int) ([]Event, error)
}

var ErrInvalidEvent = errors.New("audit: invalid event")

// Service records moderation actions. Callers treat logging as best-effort:
// a failed append is logged and swallowed upstream, never surfaced to users.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Action == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogCallAction records a call moderation action. It satisfies the audit hook
// the call service expects.
func (s *Service) LogCallAction(ctx context.Context, action, callID, actor, ip string) error {
	return s.Append(ctx, Event{
		Action:    Action(action),
		CallID:    callID,
		Actor:     actor,
		IPAddress: ip,
	})
}

// LogSettingsUpdate records an operator settings change.
func (s *Service) LogSettingsUpdate(ctx context.Context, actor, ip string) error {
	return s.Append(ctx, Event{
		Action:    ActionSettingsUpdated,
		Actor:     actor,
		IPAddress: ip,
		Message:   "settings replaced",
	})
}

// Recent returns the newest events, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Event, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit)
}
