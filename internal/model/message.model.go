package model

// Message is the sole persisted entity: one inbound webhook message.
//
// TS is the caller-supplied ISO-8601 UTC instant and the primary sort
// key for listing. The format is fixed-width, zero-padded and UTC, so
// lexicographic and chronological order coincide and all ordering and
// since-filtering is plain string comparison. CreatedAt is server time
// recorded at insert and is never used for ordering or filtering.
type Message struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
	CreatedAt string  `json:"-"`
}

// Outcome classifies a terminal ingestion result. Created and duplicate
// are both successes on the wire; the distinction exists for
// observability only.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeValidationError  Outcome = "validation_error"
	OutcomeStorageError     Outcome = "storage_error"
)

// MessageFilter controls List queries. All set filters combine as an
// implicit AND.
type MessageFilter struct {
	From   *string // exact match on sender
	Since  *string // ts >= since, string comparison
	Query  *string // case-insensitive substring of text
	Limit  int
	Offset int
}

type SenderCount struct {
	From  string `json:"from"`
	Count int64  `json:"count"`
}

// Stats is the aggregate view over the full stored set. The timestamp
// fields are nil when the store is empty.
type Stats struct {
	TotalMessages     int64         `json:"total_messages"`
	SendersCount      int64         `json:"senders_count"`
	MessagesPerSender []SenderCount `json:"messages_per_sender"`
	FirstMessageTS    *string       `json:"first_message_ts"`
	LastMessageTS     *string       `json:"last_message_ts"`
}
