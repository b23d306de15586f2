package service

import (
	"context"

	"github.com/planvista/planvista-backend/internal/projects/domain"
	"github.com/planvista/planvista-backend/internal/projects/repository"
)

// ProjectService handles project-related business logic.
type ProjectService struct {
	repo *repository.ProjectRepository
}

func NewProjectService(repo *repository.ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

// List returns everything visible to the caller: their private projects plus
// the public gallery.
func (s *ProjectService) List(ctx context.Context, ownerID string) ([]domain.Project, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *ProjectService) GetByID(ctx context.Context, id string, scope domain.Visibility, ownerID string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id, scope, ownerID)
}

func (s *ProjectService) Save(ctx context.Context, p *domain.Project, visibility domain.Visibility, ownerID, displayName string) (*domain.Project, error) {
	return s.repo.Save(ctx, p, visibility, ownerID, displayName)
}

func (s *ProjectService) Delete(ctx context.Context, id, ownerID string) error {
	return s.repo.Delete(ctx, id, ownerID)
}

// Clear removes every project the caller owns, shared ones included.
func (s *ProjectService) Clear(ctx context.Context, ownerID string) (int, int, error) {
	return s.repo.Clear(ctx, ownerID)
}
