package artifacts

import "context"

// Repo persists artifact metadata.
type Repo interface {
	Create(ctx context.Context, artifact Artifact) error
	GetByID(ctx context.Context, artifactID string) (Artifact, error)
	ListByProject(ctx context.Context, projectID string) ([]Artifact, error)
}
