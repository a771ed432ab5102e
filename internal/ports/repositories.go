package ports

import (
	"context"

	"rwadirectory/internal/domain"
)

// ProjectRepository reads submitted projects. Returns domain.ErrNotFound for unknown ids.
type ProjectRepository interface {
	GetProject(ctx context.Context, projectID string) (domain.Project, error)
}

// ValidationRepository persists the latest validation snapshot per project.
type ValidationRepository interface {
	// GetValidation returns nil, nil when the project has never been validated.
	GetValidation(ctx context.Context, projectID string) (*domain.ProjectValidation, error)
	// UpsertValidation updates the existing record in place or inserts one.
	UpsertValidation(ctx context.Context, projectID string, v domain.ProjectValidation) error
}
