package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/webhook-intake/internal/model"
	"github.com/nimasrn/webhook-intake/pkg/pg"
	"gorm.io/gorm"
)

// created_at is stored as text with millisecond precision and a Z
// suffix; it records server time and never participates in ordering.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

var (
	// ErrStorage wraps unexpected storage faults so callers can keep
	// them distinct from the duplicate outcome.
	ErrStorage = errors.New("storage error")
)

type MessageRepository struct {
	*pg.DB
}

func NewMessageRepository(db *pg.DB) *MessageRepository {
	return &MessageRepository{
		db,
	}
}

// Insert atomically creates the row keyed by message_id and stamps
// created_at with current server UTC time. A replay of an existing key
// is reported as OutcomeDuplicate with no error and no mutation of the
// stored row; any other failure is a storage fault.
func (r *MessageRepository) Insert(ctx context.Context, msg *model.Message) (model.Outcome, error) {
	entity := toMessageEntity(msg)
	entity.CreatedAt = time.Now().UTC().Format(createdAtLayout)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return model.OutcomeDuplicate, nil
		}
		return model.OutcomeStorageError, errors.Join(ErrStorage, err)
	}

	msg.CreatedAt = entity.CreatedAt
	return model.OutcomeCreated, nil
}

// List returns the filtered page and the total match count before
// pagination. Count and fetch share one read transaction so the pair
// stays consistent within a request. Ordering is ts ascending with
// message_id as tie-break, both plain string comparison, so the result
// is stable across repeated calls against unchanged data.
func (r *MessageRepository) List(ctx context.Context, f model.MessageFilter) ([]*model.Message, int64, error) {
	var (
		entities []*MessageEntity
		total    int64
	)

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	err := r.WithinReadTransaction(ctx, func(ctx context.Context) error {
		q := r.Read(ctx).Model(&MessageEntity{})

		if f.From != nil && *f.From != "" {
			q = q.Where("from_msisdn = ?", *f.From)
		}
		if f.Since != nil && *f.Since != "" {
			q = q.Where("ts >= ?", *f.Since)
		}
		if f.Query != nil && *f.Query != "" {
			// rows with NULL text never match a non-empty query
			q = q.Where("LOWER(text) LIKE ?", "%"+strings.ToLower(*f.Query)+"%")
		}

		// Count before pagination
		if err := q.Count(&total).Error; err != nil {
			return err
		}

		return q.Order("ts ASC, message_id ASC").Limit(limit).Offset(offset).Find(&entities).Error
	})
	if err != nil {
		return nil, 0, errors.Join(ErrStorage, err)
	}

	return toMessageModels(entities), total, nil
}

type senderCountRow struct {
	FromMSISDN string `gorm:"column:from_msisdn"`
	Count      int64  `gorm:"column:count"`
}

type tsBoundsRow struct {
	FirstTS *string `gorm:"column:first_ts"`
	LastTS  *string `gorm:"column:last_ts"`
}

// Aggregate computes analytics over the full stored set: total count,
// distinct senders, top 10 senders by message count (count descending,
// sender ascending on ties so the order is deterministic for a fixed
// table state) and the min/max ts by string comparison.
func (r *MessageRepository) Aggregate(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{
		MessagesPerSender: []model.SenderCount{},
	}

	err := r.WithinReadTransaction(ctx, func(ctx context.Context) error {
		db := r.Read(ctx)

		if err := db.Model(&MessageEntity{}).Count(&stats.TotalMessages).Error; err != nil {
			return err
		}

		if err := db.Model(&MessageEntity{}).Distinct("from_msisdn").Count(&stats.SendersCount).Error; err != nil {
			return err
		}

		var senders []senderCountRow
		err := db.Model(&MessageEntity{}).
			Select("from_msisdn, COUNT(*) AS count").
			Group("from_msisdn").
			Order("count DESC, from_msisdn ASC").
			Limit(10).
			Scan(&senders).Error
		if err != nil {
			return err
		}
		for _, s := range senders {
			stats.MessagesPerSender = append(stats.MessagesPerSender, model.SenderCount{
				From:  s.FromMSISDN,
				Count: s.Count,
			})
		}

		var bounds tsBoundsRow
		err = db.Model(&MessageEntity{}).
			Select("MIN(ts) AS first_ts, MAX(ts) AS last_ts").
			Scan(&bounds).Error
		if err != nil {
			return err
		}
		stats.FirstMessageTS = bounds.FirstTS
		stats.LastMessageTS = bounds.LastTS

		return nil
	})
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return stats, nil
}

// Ready reports whether the store is reachable and the schema has been
// applied. Consumed by the readiness probe only.
func (r *MessageRepository) Ready(ctx context.Context) error {
	if !r.HasTable(ctx, MessageEntity{}.TableName()) {
		return errors.New("messages table not present")
	}
	return nil
}
