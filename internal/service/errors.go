package service

import (
	"errors"

	"github.com/spec-kit/guild-tickets/internal/repository"
	apperrors "github.com/spec-kit/guild-tickets/pkg/util"
)

// storeError converts repository failures into the domain taxonomy.
// Already-classified errors pass through.
func storeError(err error, resource string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	default:
		return apperrors.NewPersistence(err)
	}
}
