package artifacts

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores artifacts in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Artifact
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Artifact)}
}

func (r *MemoryRepo) Create(ctx context.Context, artifact Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[artifact.ID] = artifact
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, artifactID string) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	artifact, ok := r.byID[artifactID]
	if !ok || artifact.IsDeleted {
		return Artifact{}, ErrNotFound
	}
	return artifact, nil
}

func (r *MemoryRepo) ListByProject(ctx context.Context, projectID string) ([]Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Artifact
	for _, a := range r.byID {
		if a.ProjectID == projectID && !a.IsDeleted {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
