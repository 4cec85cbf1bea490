package service

import (
	"context"

	"github.com/hse-tools/permit-service/internal/domain"
	"github.com/hse-tools/permit-service/internal/repository"
	"github.com/hse-tools/permit-service/internal/workflow"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// DirectoryService exposes contractor accounts to HSE.
type DirectoryService struct {
	users repository.UserRepository
}

// NewDirectoryService constructs the service.
func NewDirectoryService(users repository.UserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

// ListContractors returns every contractor ordered by username.
func (s *DirectoryService) ListContractors(ctx context.Context, actor domain.Identity) ([]domain.UserRef, error) {
	if err := workflow.Authorize(workflow.OpListContractors, actor.Role); err != nil {
		return nil, err
	}
	users, err := s.users.ListByRole(ctx, domain.RoleContractor)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "contractor")
	}
	refs := make([]domain.UserRef, 0, len(users))
	for i := range users {
		refs = append(refs, *users[i].Ref())
	}
	return refs, nil
}

// GetContractor returns one contractor account.
func (s *DirectoryService) GetContractor(ctx context.Context, actor domain.Identity, id string) (*domain.UserRef, error) {
	if err := workflow.Authorize(workflow.OpGetContractor, actor.Role); err != nil {
		return nil, err
	}
	if err := parseID(id, "contractor"); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapStoreError(err, "contractor")
	}
	if user.Role != domain.RoleContractor {
		return nil, apperrors.NewForbidden("not a contractor account")
	}
	return user.Ref(), nil
}
