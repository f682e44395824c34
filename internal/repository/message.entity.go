package repository

import (
	"github.com/nimasrn/webhook-intake/internal/model"
)

// MessageEntity is the persisted row. message_id is the primary key,
// so uniqueness is enforced by the storage engine rather than by a
// check-then-insert in application code.
type MessageEntity struct {
	MessageID  string  `db:"message_id"  gorm:"column:message_id;primaryKey"`
	FromMSISDN string  `db:"from_msisdn" gorm:"column:from_msisdn;not null;index:idx_messages_from"`
	ToMSISDN   string  `db:"to_msisdn"   gorm:"column:to_msisdn;not null"`
	TS         string  `db:"ts"          gorm:"column:ts;not null;index:idx_messages_ts"`
	Text       *string `db:"text"        gorm:"column:text"`
	CreatedAt  string  `db:"created_at"  gorm:"column:created_at;not null"`
}

func (MessageEntity) TableName() string {
	return "messages"
}

func toMessageEntity(m *model.Message) *MessageEntity {
	if m == nil {
		return nil
	}
	return &MessageEntity{
		MessageID:  m.MessageID,
		FromMSISDN: m.From,
		ToMSISDN:   m.To,
		TS:         m.TS,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt,
	}
}

func toMessageModel(e *MessageEntity) *model.Message {
	if e == nil {
		return nil
	}
	return &model.Message{
		MessageID: e.MessageID,
		From:      e.FromMSISDN,
		To:        e.ToMSISDN,
		TS:        e.TS,
		Text:      e.Text,
		CreatedAt: e.CreatedAt,
	}
}

func toMessageModels(entities []*MessageEntity) []*model.Message {
	models := make([]*model.Message, len(entities))
	for i, e := range entities {
		models[i] = toMessageModel(e)
	}
	return models
}
