package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/larpforge/storyai/internal/domain"
)

// LARPRepository defines the persistence interface for LARP productions
type LARPRepository interface {
	Create(ctx context.Context, l *domain.LARP) error
	GetByID(ctx context.Context, id string) (*domain.LARP, error)
	List(ctx context.Context) ([]*domain.LARP, error)
}

// LARPService manages LARP productions, the scope boundary every lore
// document and object embedding hangs off.
type LARPService struct {
	repo LARPRepository
}

// NewLARPService creates a new LARPService instance
func NewLARPService(repo LARPRepository) *LARPService {
	return &LARPService{repo: repo}
}

// Create registers a new production.
func (s *LARPService) Create(ctx context.Context, name, slug string) (*domain.LARP, error) {
	if name == "" {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "larp name is required", domain.ErrMissingRequiredField)
	}

	larp := domain.NewLARP(uuid.NewString(), name, slug, time.Now().UTC())
	if err := s.repo.Create(ctx, larp); err != nil {
		return nil, err
	}
	return larp, nil
}

// Get fetches one production by ID.
func (s *LARPService) Get(ctx context.Context, id string) (*domain.LARP, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all productions.
func (s *LARPService) List(ctx context.Context) ([]*domain.LARP, error) {
	return s.repo.List(ctx)
}
