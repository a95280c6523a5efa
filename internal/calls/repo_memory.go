package calls

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory Repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	calls    map[string]Call
	segments map[string][]CallSegment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		calls:    make(map[string]Call),
		segments: make(map[string][]CallSegment),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.calls {
		if existing.ProviderCallID == c.ProviderCallID {
			return ErrDuplicate
		}
	}
	r.calls[c.ID] = cloneCall(c)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return cloneCall(c), nil
}

func (r *MemoryRepo) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.ProviderCallID == providerCallID {
			return cloneCall(c), nil
		}
	}
	return Call{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, f ListFilter) ([]Call, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call
	for _, c := range r.calls {
		if matchesFilter(c, f) {
			out = append(out, cloneCall(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[c.ID]; !ok {
		return ErrNotFound
	}
	r.calls[c.ID] = cloneCall(c)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.calls[id]; !ok {
		return ErrNotFound
	}
	delete(r.calls, id)
	delete(r.segments, id)
	return nil
}

func (r *MemoryRepo) AddSegments(ctx context.Context, segs []CallSegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range segs {
		if _, ok := r.calls[s.CallID]; !ok {
			return ErrNotFound
		}
		r.segments[s.CallID] = append(r.segments[s.CallID], s)
	}
	return nil
}

func (r *MemoryRepo) ListSegments(ctx context.Context, callID string) ([]CallSegment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	segs := r.segments[callID]
	out := make([]CallSegment, len(segs))
	copy(out, segs)
	sort.Slice(out, func(i, j int) bool { return out[i].OffsetSeconds < out[j].OffsetSeconds })
	return out, nil
}

func matchesFilter(c Call, f ListFilter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Public != nil && c.Public != *f.Public {
		return false
	}
	if f.Featured != nil && c.Featured != *f.Featured {
		return false
	}
	if f.PersonaID != "" && c.PersonaID != f.PersonaID {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range c.Tags {
			if t == f.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(c.Title), q) &&
			!strings.Contains(strings.ToLower(c.Notes), q) &&
			!strings.Contains(strings.ToLower(c.FromNumber), q) {
			return false
		}
	}
	return true
}

func cloneCall(c Call) Call {
	out := c
	if c.DurationSeconds != nil {
		v := *c.DurationSeconds
		out.DurationSeconds = &v
	}
	if c.Rating != nil {
		v := *c.Rating
		out.Rating = &v
	}
	if c.Tags != nil {
		out.Tags = append([]string(nil), c.Tags...)
	}
	return out
}
