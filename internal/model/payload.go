package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

const maxTextLength = 4096

// E.164: + followed by digits only, no separators.
var e164Pattern = regexp.MustCompile(`^\+[0-9]+$`)

// ISO-8601 UTC with a literal Z suffix, optional fractional seconds.
var iso8601UTCPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)

var ErrMalformedJSON = errors.New("malformed JSON body")

// WebhookPayload is the inbound message body. Unknown extra fields are
// ignored; pointers distinguish absent fields from empty ones.
type WebhookPayload struct {
	MessageID string  `json:"message_id"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	TS        string  `json:"ts"`
	Text      *string `json:"text"`
}

// ParseWebhookPayload parses body as JSON and validates every field
// constraint. The first violation fails the whole payload; there is no
// partial acceptance. Callers must have verified the body signature
// beforehand, over these exact bytes.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate enforces field constraints in a fixed order so the reported
// violation is deterministic.
func (p *WebhookPayload) Validate() error {
	if p.MessageID == "" {
		return errors.New("message_id is required and must be non-empty")
	}
	if !e164Pattern.MatchString(p.From) {
		return errors.New("from: invalid E.164 format: must start with + followed by digits")
	}
	if !e164Pattern.MatchString(p.To) {
		return errors.New("to: invalid E.164 format: must start with + followed by digits")
	}
	if !iso8601UTCPattern.MatchString(p.TS) {
		return errors.New("ts: invalid ISO-8601 UTC format: must end with Z")
	}
	// the regex admits shapes like month 13; reject anything that is
	// not a real calendar instant
	if _, err := time.Parse(time.RFC3339, p.TS); err != nil {
		return errors.New("ts: invalid datetime value")
	}
	if p.Text != nil && utf8.RuneCountInString(*p.Text) > maxTextLength {
		return fmt.Errorf("text exceeds maximum length of %d characters", maxTextLength)
	}
	return nil
}

// Message converts a validated payload into the domain entity.
// CreatedAt is left for the store to assign at insert time.
func (p *WebhookPayload) Message() *Message {
	return &Message{
		MessageID: p.MessageID,
		From:      p.From,
		To:        p.To,
		TS:        p.TS,
		Text:      p.Text,
	}
}
