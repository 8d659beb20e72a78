package notifications

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores events in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	events map[string]Event
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{events: make(map[string]Event)}
}

func (r *MemoryRepo) Create(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = event
	return nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if e.UserID != userID || e.IsDeleted || (unreadOnly && e.IsRead) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, userID, eventID string) error {
	return r.update(ctx, userID, eventID, func(e *Event) { e.IsRead = true })
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, eventID string) error {
	return r.update(ctx, userID, eventID, func(e *Event) { e.IsDeleted = true })
}

func (r *MemoryRepo) update(ctx context.Context, userID, eventID string, fn func(*Event)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok || e.UserID != userID || e.IsDeleted {
		return ErrNotFound
	}
	fn(&e)
	r.events[eventID] = e
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
