package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/errors"
	"marketplace/internal/repository"
)

const principalCacheTTL = time.Minute

// principalKey is the cache key of the resolved principal of a user. Anything
// that changes role or ban state must drop it.
func principalKey(id uuid.UUID) string {
	return "principal:" + id.String()
}

// notFound swaps the repository's not-found error for a domain one.
func notFound(err, domain error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain
	}
	return err
}

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errors.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// requireUser returns ErrUserNotFound unless id exists.
func requireUser(ctx context.Context, users repository.UserRepository, id uuid.UUID) error {
	if _, err := users.FindByID(ctx, id); err != nil {
		return notFound(err, errors.ErrUserNotFound)
	}
	return nil
}
