package calls

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("calls: not found")
	ErrDuplicate = errors.New("calls: provider call id already exists")
)

// ListFilter narrows List results. Zero values mean "no constraint".
// Limit == 0 means no limit; results are ordered by created_at descending.
type ListFilter struct {
	Status    CallStatus
	Public    *bool
	Featured  *bool
	PersonaID string
	Tag       string

	// Search matches case-insensitively against title, notes and the
	// origin number.
	Search string

	Limit  int
	Offset int
}

// Repository is the persistence contract for calls and their segments.
//
// Segments have no update methods: they are immutable once written and are
// removed only by deleting the parent call.
type Repository interface {
	Create(ctx context.Context, c Call) error
	GetByID(ctx context.Context, id string) (Call, error)
	GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error)
	List(ctx context.Context, f ListFilter) ([]Call, int, error)
	Update(ctx context.Context, c Call) error
	Delete(ctx context.Context, id string) error

	AddSegments(ctx context.Context, segs []CallSegment) error
	ListSegments(ctx context.Context, callID string) ([]CallSegment, error)
}
