package services

import (
	"context"
	"errors"
)

var (
	ErrSecretMissing = errors.New("WEBHOOK_SECRET not configured")
	ErrStoreNotReady = errors.New("database not ready")
)

type HealthService struct {
	secret string
	repo   MessageRepository
}

func NewHealthService(secret string, repo MessageRepository) *HealthService {
	return &HealthService{
		secret: secret,
		repo:   repo,
	}
}

// Ready verifies the preconditions for serving traffic: the shared
// secret is configured and the store is reachable with the schema
// applied. Surfaced only by the readiness probe, never by the
// ingestion or query paths.
func (s *HealthService) Ready(ctx context.Context) error {
	if s.secret == "" {
		return ErrSecretMissing
	}
	if err := s.repo.Ready(ctx); err != nil {
		return errors.Join(ErrStoreNotReady, err)
	}
	return nil
}
