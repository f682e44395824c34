package services

import (
	"context"

	"github.com/nimasrn/webhook-intake/internal/model"
	"github.com/nimasrn/webhook-intake/pkg/logger"
)

type MessageRepository interface {
	Insert(ctx context.Context, msg *model.Message) (model.Outcome, error)
	List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error)
	Aggregate(ctx context.Context) (*model.Stats, error)
	Ready(ctx context.Context) error
}

type MessageService struct {
	messageRepo MessageRepository
	dedup       *DedupCache
}

// NewMessageService wires the store and an optional duplicate
// fast-path cache. Passing a nil cache disables the fast path; the
// storage-engine uniqueness constraint remains the source of truth
// either way.
func NewMessageService(messageRepo MessageRepository, dedup *DedupCache) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		dedup:       dedup,
	}
}

// Ingest stores a validated payload idempotently. The cache is only
// ever consulted for ids that have already been persisted, so a hit
// can short-circuit straight to the duplicate outcome; a miss or a
// cache failure falls through to the insert, where the unique key
// decides. Cache faults degrade to the database path, never to an
// error.
func (s *MessageService) Ingest(ctx context.Context, p *model.WebhookPayload) (model.Outcome, error) {
	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, p.MessageID)
		if err != nil {
			logger.Warn("dedup cache check failed, falling back to store", "message_id", p.MessageID, "error", err)
		} else if seen {
			return model.OutcomeDuplicate, nil
		}
	}

	outcome, err := s.messageRepo.Insert(ctx, p.Message())
	if err != nil {
		return outcome, err
	}

	// mark after the row provably exists, for both created and replay
	if s.dedup != nil {
		if err := s.dedup.Mark(ctx, p.MessageID); err != nil {
			logger.Warn("dedup cache mark failed", "message_id", p.MessageID, "error", err)
		}
	}

	return outcome, nil
}

func (s *MessageService) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	return s.messageRepo.List(ctx, f)
}

func (s *MessageService) Stats(ctx context.Context) (*model.Stats, error) {
	return s.messageRepo.Aggregate(ctx)
}
