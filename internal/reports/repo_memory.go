package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo stores reports in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	docs     map[string]Document
	versions map[string][]Version
	now      func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:     make(map[string]Document),
		versions: make(map[string][]Version),
		now:      time.Now,
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(documentID)
}

func (r *MemoryRepo) getLocked(documentID string) (Document, error) {
	doc, ok := r.docs[documentID]
	if !ok || doc.IsDeleted {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.docs {
		if doc.GeneratedBy == userID && !doc.IsDeleted {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) UpdateTitle(ctx context.Context, documentID, title string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.getLocked(documentID)
	if err != nil {
		return Document{}, err
	}
	doc.Title = title
	doc.UpdatedAt = r.now().UTC()
	r.docs[documentID] = doc
	return doc, nil
}

func (r *MemoryRepo) BeginRun(ctx context.Context, in BeginRunInput) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.getLocked(in.DocumentID)
	if err != nil {
		return Document{}, err
	}
	if !doc.Status.CanStartRun() {
		return Document{}, ErrRunInProgress
	}
	doc.Status = StatusPending
	doc.Content = ""
	doc.ErrorDetail = ""
	doc.StartedAt = nil
	doc.Prompt = in.Prompt
	if in.FileID != "" {
		doc.FileID = in.FileID
	}
	doc.UpdatedAt = r.now().UTC()
	r.docs[doc.ID] = doc
	return doc, nil
}

func (r *MemoryRepo) MarkInProgress(ctx context.Context, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.getLocked(documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.Status != StatusPending {
		return Document{}, ErrInvalidTransition
	}
	now := r.now().UTC()
	doc.Status = StatusInProgress
	doc.StartedAt = &now
	doc.UpdatedAt = now
	r.docs[documentID] = doc
	return doc, nil
}

func (r *MemoryRepo) CompleteRun(ctx context.Context, in CompleteRunInput) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.getLocked(in.DocumentID)
	if err != nil {
		return Version{}, err
	}
	if doc.Status != StatusInProgress {
		return Version{}, ErrInvalidTransition
	}
	v := r.appendLocked(VersionInput{
		DocumentID:  in.DocumentID,
		Instruction: in.Instruction,
		Content:     in.Content,
		CreatedBy:   in.CreatedBy,
		Duration:    in.Duration,
	})
	doc.Status = StatusCompleted
	doc.Content = in.Content
	doc.ErrorDetail = ""
	doc.DurationMs = in.Duration.Milliseconds()
	doc.UpdatedAt = v.CreatedAt
	r.docs[doc.ID] = doc
	return v, nil
}

func (r *MemoryRepo) FailRun(ctx context.Context, in FailRunInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.getLocked(in.DocumentID)
	if err != nil {
		return err
	}
	if doc.Status.Terminal() {
		return ErrInvalidTransition
	}
	if !in.StaleBefore.IsZero() && !doc.UpdatedAt.Before(in.StaleBefore) {
		return ErrInvalidTransition
	}
	doc.Status = StatusFailed
	doc.Content = in.Content
	doc.ErrorDetail = in.Detail
	doc.DurationMs = in.Duration.Milliseconds()
	doc.UpdatedAt = r.now().UTC()
	r.docs[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) ListStale(ctx context.Context, before time.Time) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Document
	for _, doc := range r.docs {
		if doc.IsDeleted || doc.Status.Terminal() || !doc.UpdatedAt.Before(before) {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *MemoryRepo) SoftDelete(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, err := r.getLocked(documentID)
	if err != nil {
		return err
	}
	if !doc.Status.Terminal() {
		return ErrRunInProgress
	}
	doc.IsDeleted = true
	doc.UpdatedAt = r.now().UTC()
	r.docs[documentID] = doc
	return nil
}

func (r *MemoryRepo) AppendVersion(ctx context.Context, in VersionInput) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getLocked(in.DocumentID); err != nil {
		return Version{}, err
	}
	return r.appendLocked(in), nil
}

func (r *MemoryRepo) appendLocked(in VersionInput) Version {
	next := 1
	for _, v := range r.versions[in.DocumentID] {
		if v.Number >= next {
			next = v.Number + 1
		}
	}
	v := Version{
		ID:          uuid.NewString(),
		DocumentID:  in.DocumentID,
		Number:      next,
		Instruction: in.Instruction,
		Content:     in.Content,
		DurationMs:  in.Duration.Milliseconds(),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   r.now().UTC(),
	}
	r.versions[in.DocumentID] = append(r.versions[in.DocumentID], v)
	return v
}

func (r *MemoryRepo) ListVersions(ctx context.Context, documentID string, order Order) ([]Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]Version(nil), r.versions[documentID]...)
	sort.Slice(out, func(i, j int) bool {
		if order == OrderDesc {
			return out[i].Number > out[j].Number
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (r *MemoryRepo) LatestVersion(ctx context.Context, documentID string) (Version, error) {
	versions, err := r.ListVersions(ctx, documentID, OrderDesc)
	if err != nil {
		return Version{}, err
	}
	if len(versions) == 0 {
		return Version{}, ErrVersionNotFound
	}
	return versions[0], nil
}

func (r *MemoryRepo) GetVersion(ctx context.Context, documentID string, number int) (Version, error) {
	if err := ctx.Err(); err != nil {
		return Version{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.versions[documentID] {
		if v.Number == number {
			return v, nil
		}
	}
	return Version{}, ErrVersionNotFound
}

var _ Repo = (*MemoryRepo)(nil)
